// Package instagram 封装 Instagram Graph API 的图片发布流程
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"social-content-api/internal/config"
	"social-content-api/internal/workflow/pipeline"
	"social-content-api/pkg/logger"
	"social-content-api/pkg/metrics"
	"social-content-api/pkg/tracer"
)

// Platform 指标与日志中的平台名
const Platform = "instagram"

// 媒体容器状态
const (
	StatusFinished   = "FINISHED"
	StatusInProgress = "IN_PROGRESS"
)

const (
	temporaryCaption = "Temporary caption"
	permalinkFormat  = "https://www.instagram.com/p/%s/"
	defaultGraphURL  = "https://graph.facebook.com/v18.0"
	requestTimeout   = 30 * time.Second
)

// PublishResult 发布成功后的帖子信息
type PublishResult struct {
	PostID    string `json:"postId"`
	Permalink string `json:"permalink"`
}

// ProcessingError 媒体容器没有进入 FINISHED 状态
type ProcessingError struct {
	Status string
	Err    error
}

func (e *ProcessingError) Error() string {
	return "Media processing failed with status: " + e.Status
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// GraphError Graph API 返回的非 2xx 响应
type GraphError struct {
	StatusCode int
	Message    string
}

func (e *GraphError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("graph api returned status %d: %s", e.StatusCode, e.Message)
}

// Client Graph API 客户端
type Client struct {
	httpClient *http.Client
	cfg        config.InstagramConfig
	baseURL    string
}

// NewClient 创建 Graph API 客户端
func NewClient(cfg config.InstagramConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{
		Timeout:   requestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewClientWithHTTP 使用指定的 http.Client 创建客户端
func NewClientWithHTTP(cfg config.InstagramConfig, httpClient *http.Client) *Client {
	base := strings.TrimRight(cfg.GraphBaseURL, "/")
	if base == "" {
		base = defaultGraphURL
	}
	if cfg.PollMaxChecks <= 0 {
		cfg.PollMaxChecks = 10
	}
	return &Client{httpClient: httpClient, cfg: cfg, baseURL: base}
}

// Missing 返回缺失的凭据环境变量名
func (c *Client) Missing() []string {
	return c.cfg.Missing()
}

// Permalink 由帖子 ID 拼出帖子地址
func Permalink(postID string) string {
	return fmt.Sprintf(permalinkFormat, postID)
}

// CreateContainer 以本地文件创建媒体容器，返回容器 ID
func (c *Client) CreateContainer(ctx context.Context, localPath string) (string, error) {
	res, err := c.do(ctx, http.MethodPost, c.cfg.BusinessAccountID+"/media", nil, map[string]any{
		"image_url":    "file://" + localPath,
		"caption":      temporaryCaption,
		"access_token": c.cfg.AccessToken,
	})
	if err != nil {
		return "", err
	}
	id := res.Get("id").String()
	if id == "" {
		return "", fmt.Errorf("graph api response missing container id")
	}
	logger.Info(ctx, "media container created", "platform", Platform, "container_id", id)
	return id, nil
}

// ContainerStatus 查询一次容器状态
func (c *Client) ContainerStatus(ctx context.Context, containerID string) (string, error) {
	query := url.Values{}
	query.Set("fields", "status_code")
	query.Set("access_token", c.cfg.AccessToken)

	res, err := c.do(ctx, http.MethodGet, containerID, query, nil)
	if err != nil {
		return "", err
	}
	return res.Get("status_code").String(), nil
}

// WaitUntilFinished 以固定间隔轮询容器状态，最多检查 PollMaxChecks 次。
// 次数耗尽时返回的错误满足 errors.Is(err, pipeline.ErrPollTimeout)。
func (c *Client) WaitUntilFinished(ctx context.Context, containerID string) (int, error) {
	ctx, span := tracer.Start(ctx, "instagram.wait_container")
	defer span.End()

	attempts, err := pipeline.Poll(ctx, pipeline.PollOptions{
		Interval:     c.cfg.PollInterval,
		MaxAttempts:  c.cfg.PollMaxChecks,
		InitialDelay: c.cfg.PollInterval,
	}, func(ctx context.Context, attempt int) (pipeline.PollState, error) {
		status, err := c.ContainerStatus(ctx, containerID)
		if err != nil {
			return pipeline.PollPending, err
		}
		logger.Info(ctx, "media status checked", "platform", Platform, "attempt", attempt, "status", status)

		switch status {
		case StatusFinished:
			return pipeline.PollDone, nil
		case StatusInProgress:
			return pipeline.PollPending, nil
		default:
			return pipeline.PollPending, &ProcessingError{Status: status}
		}
	})
	span.SetAttributes(attribute.Int("poll.attempts", attempts))

	if err != nil {
		if errors.Is(err, pipeline.ErrPollTimeout) {
			err = &ProcessingError{Status: StatusInProgress, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return attempts, err
	}
	metrics.PublishPollAttempts.WithLabelValues(Platform).Observe(float64(attempts))
	return attempts, nil
}

// Publish 写入最终文案并发布容器
func (c *Client) Publish(ctx context.Context, containerID, caption string) (*PublishResult, error) {
	if _, err := c.do(ctx, http.MethodPost, containerID, nil, map[string]any{
		"caption":      caption,
		"access_token": c.cfg.AccessToken,
	}); err != nil {
		return nil, err
	}

	res, err := c.do(ctx, http.MethodPost, c.cfg.BusinessAccountID+"/media_publish", nil, map[string]any{
		"creation_id":  containerID,
		"access_token": c.cfg.AccessToken,
	})
	if err != nil {
		return nil, err
	}

	postID := res.Get("id").String()
	if postID == "" {
		return nil, fmt.Errorf("graph api response missing post id")
	}
	return &PublishResult{PostID: postID, Permalink: Permalink(postID)}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body map[string]any) (gjson.Result, error) {
	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return gjson.Result{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error 会带上含 access_token 的完整地址
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return gjson.Result{}, fmt.Errorf("graph api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read graph api response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, &GraphError{
			StatusCode: resp.StatusCode,
			Message:    gjson.GetBytes(raw, "error.message").String(),
		}
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("graph api returned invalid json")
	}
	return gjson.ParseBytes(raw), nil
}
