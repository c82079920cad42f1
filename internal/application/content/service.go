// Package content 编排内容生成、配图、发布与图片列表的流水线
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-content-api/internal/config"
	"social-content-api/internal/infrastructure/llm"
	"social-content-api/internal/infrastructure/messaging"
	"social-content-api/internal/infrastructure/publishing/instagram"
	"social-content-api/internal/infrastructure/storage"
	"social-content-api/internal/workflow/prompt"
	apperrors "social-content-api/pkg/errors"
)

// 默认取值
const (
	DefaultContentPersona   = "A budding chicken farmer who is excited to leave their suburban life to start a farm"
	DefaultContentSentiment = "Cheerful, warm and inviting"
	DefaultIdeaPersona      = "A creative social media strategist"
	DefaultIdeaSentiment    = "Upbeat and engaging"
	DefaultPlatform         = "Instagram"
	DefaultTopic            = "general interest"
	DefaultIdeaCount        = 5
)

type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.CompleteOptions) (*llm.Completion, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, opts llm.ImageOptions) (*llm.GeneratedImage, error)
}

type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// Templates 按 ID 渲染提示词模板
type Templates interface {
	Render(id prompt.TemplateID, values map[string]string) (string, error)
}

// Namespaces 模板命名空间 (IP) 是否存在
type Namespaces interface {
	Exists(id string) bool
}

// Publisher 社交平台发布客户端
type Publisher interface {
	Missing() []string
	CreateContainer(ctx context.Context, localPath string) (string, error)
	WaitUntilFinished(ctx context.Context, containerID string) (int, error)
	Publish(ctx context.Context, containerID, caption string) (*instagram.PublishResult, error)
}

// PageCache 图片列表分页缓存
type PageCache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) ([]byte, error)
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// EventPublisher 内容事件发布
type EventPublisher interface {
	PublishImageStored(ctx context.Context, namespace string, evt messaging.ImageStored) (string, error)
	PublishPostPublished(ctx context.Context, evt messaging.PostPublished) (string, error)
}

// Service 内容流水线服务，各请求之间不共享可变状态
type Service struct {
	completer  Completer
	images     ImageGenerator
	fetcher    ImageFetcher
	templates  Templates
	namespaces Namespaces
	store      storage.Store
	publisher  Publisher
	pageCache  PageCache
	pageTTL    time.Duration
	events     EventPublisher

	llmCfg    config.LLMConfig
	defaults  config.ContentConfig
	now       func() time.Time
	tempDir   string
	randomHex func(n int) (string, error)
}

// NewService 创建内容流水线服务
func NewService(
	completer Completer,
	images ImageGenerator,
	fetcher ImageFetcher,
	templates Templates,
	namespaces Namespaces,
	store storage.Store,
	publisher Publisher,
	cfg *config.Config,
) *Service {
	return &Service{
		completer:  completer,
		images:     images,
		fetcher:    fetcher,
		templates:  templates,
		namespaces: namespaces,
		store:      store,
		publisher:  publisher,
		llmCfg:     cfg.LLM,
		defaults:   cfg.Content,
		now:        time.Now,
		randomHex:  randomHex,
	}
}

// WithPageCache 启用图片列表缓存，新图片上传后整体失效
func (s *Service) WithPageCache(cache PageCache, ttl time.Duration) *Service {
	s.pageCache = cache
	s.pageTTL = ttl
	return s
}

// WithEvents 启用内容事件，发布失败只记录日志
func (s *Service) WithEvents(events EventPublisher) *Service {
	s.events = events
	return s
}

// firstNonEmpty 请求值 > 环境默认值 > 内置默认值
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *Service) requireNamespace(id string) error {
	if s.namespaces == nil || !s.namespaces.Exists(id) {
		return apperrors.New(apperrors.CodeNamespaceNotFound, fmt.Sprintf("Intellectual property '%s' not found", id))
	}
	return nil
}

// failWith 将流水线内部错误转换为对外错误信息；校验与配置类错误原样返回
func failWith(err error, message string) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return apperrors.Upstream(err, message).WithDetail(err.Error())
	}

	switch appErr.Code {
	case apperrors.CodeInvalidParam, apperrors.CodeNotFound, apperrors.CodeNamespaceNotFound, apperrors.CodeConfiguration:
		return appErr
	}

	detail := appErr.Detail
	if detail == "" {
		detail = appErr.Message
		if appErr.Code == apperrors.CodeUpstream || appErr.Code == apperrors.CodeStorageError {
			detail = appErr.Details()
		}
	}
	return &apperrors.AppError{
		Code:       appErr.Code,
		Message:    message,
		Detail:     detail,
		HTTPStatus: appErr.HTTPStatus,
		Err:        err,
	}
}

// missingStorage 存储未配置时的错误
func missingStorage(store storage.Store, message string) error {
	missing := store.Missing()
	if len(missing) == 0 {
		return nil
	}
	return apperrors.Configuration(message).
		WithDetail("Missing environment variables: " + strings.Join(missing, ", "))
}
