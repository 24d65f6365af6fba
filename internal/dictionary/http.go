package dictionary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPChecker 查詢外部字典服務
//
// 協定：GET {endpoint}/{word}
//   - 200：是單字
//   - 404：不是單字
//   - 其他狀態碼或網路錯誤：返回錯誤
type HTTPChecker struct {
	endpoint string
	client   *http.Client
}

// NewHTTPChecker 建立 HTTP 字典驗證器，timeout 為 0 時使用 5 秒
func NewHTTPChecker(endpoint string, timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPChecker{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Check 實現 Checker
func (c *HTTPChecker) Check(ctx context.Context, word string) (bool, error) {
	reqURL := c.endpoint + "/" + url.PathEscape(word)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("build dictionary request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("dictionary request: %w", err)
	}
	defer resp.Body.Close()
	// 讀完 body 才能重用連線
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("dictionary returned status %d", resp.StatusCode)
	}
}
