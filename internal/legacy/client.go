package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/renthub/config"
)

// Client 遗留平台 Data API 的最小客户端面
type Client interface {
	Create(ctx context.Context, entity string, fields map[string]interface{}) (string, error)
	Update(ctx context.Context, entity, externalID string, fields map[string]interface{}) error
	Get(ctx context.Context, entity, externalID string) (map[string]interface{}, error)
}

// HTTPClient 经由 REST Data API 访问遗留平台。
// 限速在客户端侧做，平台自身的 429/限流按瞬时错误处理。
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	tracer  trace.Tracer
}

func NewHTTPClient(cfg config.LegacyConfig) *HTTPClient {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		tracer:  otel.Tracer("legacy"),
	}
}

type createResponse struct {
	ID json.Number `json:"id"`
}

// Create 新建记录，返回遗留平台侧记录号
func (c *HTTPClient) Create(ctx context.Context, entity string, fields map[string]interface{}) (string, error) {
	ctx, span := c.tracer.Start(ctx, "legacy.create",
		trace.WithAttributes(attribute.String("legacy.entity", entity)))
	defer span.End()

	body, err := c.do(ctx, http.MethodPost, c.recordsURL(entity, ""), fields)
	if err != nil {
		return "", err
	}
	var resp createResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create response missing id")
	}
	return resp.ID.String(), nil
}

// Update 按遗留平台记录号更新；响应体不要求内容
func (c *HTTPClient) Update(ctx context.Context, entity, externalID string, fields map[string]interface{}) error {
	ctx, span := c.tracer.Start(ctx, "legacy.update",
		trace.WithAttributes(attribute.String("legacy.entity", entity)))
	defer span.End()

	_, err := c.do(ctx, http.MethodPut, c.recordsURL(entity, externalID), fields)
	return err
}

// Get 读取单条记录
func (c *HTTPClient) Get(ctx context.Context, entity, externalID string) (map[string]interface{}, error) {
	ctx, span := c.tracer.Start(ctx, "legacy.get",
		trace.WithAttributes(attribute.String("legacy.entity", entity)))
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, c.recordsURL(entity, externalID), nil)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	return fields, nil
}

func (c *HTTPClient) recordsURL(entity, externalID string) string {
	u := c.baseURL + "/records/" + url.PathEscape(entity)
	if externalID != "" {
		u += "/" + url.PathEscape(externalID)
	}
	return u
}

func (c *HTTPClient) do(ctx context.Context, method, rawURL string, fields map[string]interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var reqBody io.Reader
	if fields != nil {
		buf, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// 超时与连接失败都算瞬时错误，交给重试
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
