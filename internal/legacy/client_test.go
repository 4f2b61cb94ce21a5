package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/renthub/config"
)

func newTestClient(baseURL string) *HTTPClient {
	return NewHTTPClient(config.LegacyConfig{
		BaseURL: baseURL,
		Token:   "test-token",
		Timeout: 2 * time.Second,
	})
}

func TestCreateParsesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/records/tbl_Users", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		var fields map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
		assert.Equal(t, "Jane", fields["Name"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": 4711})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	id, err := c.Create(context.Background(), "tbl_Users", map[string]interface{}{"Name": "Jane"})
	require.NoError(t, err)
	// 遗留平台有时返回数值 id，统一收成字符串
	assert.Equal(t, "4711", id)
}

func TestUpdateAcceptsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/records/tbl_Listings/ext-9", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.Update(context.Background(), "tbl_Listings", "ext-9", map[string]interface{}{"Active": "N"})
	assert.NoError(t, err)
}

func TestGetReturnsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"UserID": "u-legacy-1"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	fields, err := c.Get(context.Background(), "tbl_HostAccounts", "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "u-legacy-1", fields["UserID"])
}

func TestErrorClassification(t *testing.T) {
	for _, tc := range []struct {
		status int
		fatal  bool
	}{
		{http.StatusUnprocessableEntity, true},
		{http.StatusBadRequest, true},
		{http.StatusNotFound, true},
		{http.StatusRequestTimeout, false},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		c := newTestClient(srv.URL)
		_, err := c.Create(context.Background(), "tbl_Users", map[string]interface{}{})
		require.Error(t, err, "status %d", tc.status)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, tc.status, apiErr.StatusCode)
		assert.Equal(t, tc.fatal, IsFatal(err), "status %d", tc.status)
		srv.Close()
	}
}

func TestConnectionErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 直接关掉，制造连接失败

	c := newTestClient(srv.URL)
	_, err := c.Create(context.Background(), "tbl_Users", map[string]interface{}{})
	require.Error(t, err)
	assert.False(t, IsFatal(err))
}

func TestTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTPClient(config.LegacyConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Create(context.Background(), "tbl_Users", map[string]interface{}{})
	require.Error(t, err)
	assert.False(t, IsFatal(err))
}

func TestIsFatalPlainError(t *testing.T) {
	assert.False(t, IsFatal(errors.New("dial tcp: connection refused")))
}
