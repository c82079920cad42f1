package content

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"social-content-api/internal/infrastructure/imaging"
	"social-content-api/internal/infrastructure/messaging"
	"social-content-api/internal/infrastructure/publishing/instagram"
	"social-content-api/internal/workflow/pipeline"
	apperrors "social-content-api/pkg/errors"
	"social-content-api/pkg/logger"
	"social-content-api/pkg/metrics"
)

// MaxCaptionLength Instagram 文案长度上限
const MaxCaptionLength = 2200

// PublishState 发布流水线状态
type PublishState string

const (
	StateDownloading          PublishState = "DOWNLOADING"
	StateProcessing           PublishState = "PROCESSING"
	StateUploading            PublishState = "UPLOADING"
	StateWaitingForProcessing PublishState = "WAITING_FOR_PROCESSING"
	StatePublishing           PublishState = "PUBLISHING"
	StateDone                 PublishState = "DONE"
	StateFailed               PublishState = "FAILED"
)

type PublishRequest struct {
	Description string
	ImageURL    string
}

type PublishResult struct {
	PostID    string
	Permalink string
}

// ValidatePublish 校验文案长度与图片地址
func ValidatePublish(req PublishRequest) error {
	n := utf8.RuneCountInString(req.Description)
	if n < 1 || n > MaxCaptionLength {
		return apperrors.Validation("Invalid request").
			WithDetail(fmt.Sprintf("description must be between 1 and %d characters", MaxCaptionLength))
	}
	u, err := url.Parse(req.ImageURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.Validation("Invalid request").WithDetail("imageUrl must be an absolute http(s) URL")
	}
	return nil
}

// PublishToInstagram 下载图片、转码、创建容器、轮询状态并发布。
// 凭据在下载前检查；本地临时文件在任何退出路径上都会删除。
func (s *Service) PublishToInstagram(ctx context.Context, req PublishRequest) (res *PublishResult, err error) {
	if err := ValidatePublish(req); err != nil {
		return nil, err
	}
	if missing := s.publisher.Missing(); len(missing) > 0 {
		logger.Warn(ctx, "instagram credentials missing", "missing", missing)
		return nil, apperrors.Configuration("Instagram credentials not configured").
			WithDetail("Missing environment variables: " + strings.Join(missing, ", "))
	}

	run := &publishRun{svc: s}
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			run.enter(ctx, StateFailed)
		}
		metrics.PublishTotal.WithLabelValues(instagram.Platform, status).Inc()
	}()

	res, err = run.execute(ctx, req)
	if err != nil {
		return nil, failWith(err, "Failed to post to Instagram")
	}
	return res, nil
}

// publishRun 单次发布的状态
type publishRun struct {
	svc   *Service
	state PublishState
}

func (r *publishRun) enter(ctx context.Context, state PublishState) {
	logger.Info(ctx, "publish state changed", "platform", instagram.Platform, "from", string(r.state), "to", string(state))
	r.state = state
}

func (r *publishRun) execute(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	s := r.svc

	r.enter(ctx, StateDownloading)
	data, err := s.fetcher.FetchImage(ctx, req.ImageURL)
	if err != nil {
		return nil, stageError("Failed to download image", err)
	}

	r.enter(ctx, StateProcessing)
	processed, err := imaging.ForInstagram(data)
	if err != nil {
		return nil, stageError("Failed to download image", err)
	}

	dir, err := os.MkdirTemp(s.tempDir, "instagram-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.Warn(ctx, "failed to clean up temp file", "dir", dir, "error", rmErr.Error())
			return
		}
		logger.Debug(ctx, "temporary file cleaned up", "dir", dir)
	}()

	path := filepath.Join(dir, fmt.Sprintf("instagram_%d.jpg", s.now().UnixMilli()))
	if err := os.WriteFile(path, processed, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	r.enter(ctx, StateUploading)
	containerID, err := s.publisher.CreateContainer(ctx, path)
	if err != nil {
		return nil, stageError("Failed to upload to Instagram", err)
	}

	r.enter(ctx, StateWaitingForProcessing)
	attempts, err := s.publisher.WaitUntilFinished(ctx, containerID)
	if err != nil {
		if errors.Is(err, pipeline.ErrPollTimeout) {
			logger.Warn(ctx, "media container still in progress after max checks",
				"container_id", containerID, "attempts", attempts)
		}
		return nil, stageError("Failed to upload to Instagram", err)
	}

	r.enter(ctx, StatePublishing)
	post, err := s.publisher.Publish(ctx, containerID, req.Description)
	if err != nil {
		return nil, stageError("Failed to publish to Instagram", err)
	}

	r.enter(ctx, StateDone)
	if s.events != nil {
		if _, err := s.events.PublishPostPublished(ctx, messaging.PostPublished{
			Platform:  instagram.Platform,
			PostID:    post.PostID,
			Permalink: post.Permalink,
			ImageURL:  req.ImageURL,
		}); err != nil {
			logger.Warn(ctx, "failed to publish post event", "post_id", post.PostID, "error", err.Error())
		}
	}
	logger.Info(ctx, "post published", "post_id", post.PostID, "permalink", post.Permalink)
	return &PublishResult{PostID: post.PostID, Permalink: post.Permalink}, nil
}

// stageError 在错误信息前加上失败阶段
func stageError(stage string, err error) error {
	detail := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		detail = appErr.Details()
		if detail == "" {
			detail = appErr.Message
		}
	}
	return apperrors.Wrap(err, apperrors.CodePublishingError, "publishing failed").
		WithDetail(stage + ": " + detail)
}
