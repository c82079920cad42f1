package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apperrors "social-content-api/pkg/errors"
)

// maxImageBytes 下载图片的大小上限
const maxImageBytes = 50 << 20

// Fetcher 下载远程图片字节
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher 创建下载器，timeout 为单次下载的整体超时
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: userAgent,
	}
}

// FetchImage 下载 URL 指向的内容，非 2xx 状态视为失败
func (f *Fetcher) FetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Upstream(err, "invalid image url")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.Upstream(err, "image download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Upstream(fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url), "image download failed")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, apperrors.Upstream(err, "image download failed")
	}
	if len(data) > maxImageBytes {
		return nil, apperrors.Upstream(fmt.Errorf("image larger than %d bytes", maxImageBytes), "image download failed")
	}
	return data, nil
}
