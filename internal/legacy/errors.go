package legacy

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError 遗留平台返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("legacy api: status %d: %s", e.StatusCode, e.Body)
}

// Fatal 判定该响应是否不可重试。
// 4xx 属于载荷/约束问题，重试不会变好；408 与 429 例外，按瞬时处理。
func (e *APIError) Fatal() bool {
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsFatal 错误分类的唯一开关：决定队列处理器是立即钉死还是排期重试。
// 非 APIError（超时、连接错误等）一律视为瞬时。
func IsFatal(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Fatal()
	}
	return false
}
