package wire

import (
	"context"
	"io/fs"

	"social-content-api/internal/application/content"
	"social-content-api/internal/config"
	"social-content-api/internal/infrastructure/llm"
	"social-content-api/internal/infrastructure/messaging"
	"social-content-api/internal/infrastructure/persistence/redis"
	"social-content-api/internal/infrastructure/publishing/instagram"
	"social-content-api/internal/infrastructure/storage"
	"social-content-api/internal/interfaces/http/handler"
	"social-content-api/internal/interfaces/http/middleware"
	"social-content-api/internal/interfaces/http/router"
	"social-content-api/internal/workflow/prompt"
	"social-content-api/pkg/logger"
)

// App 应用依赖容器
type App struct {
	Router    *router.Router
	Templates *prompt.TemplateCache
}

// ProvideRedisClient 提供可选 Redis 客户端，未启用或不可达时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, rate limiting and list cache disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePageCache 提供图片列表缓存
func ProvidePageCache(client *redis.Client) content.PageCache {
	if client == nil {
		return nil
	}
	return redis.NewCache(client)
}

// ProvideRateLimiter 提供限流器
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideEventPublisher 提供内容事件发布者
func ProvideEventPublisher(client *redis.Client, cfg *config.Config) content.EventPublisher {
	if client == nil || !cfg.Messaging.Enabled {
		return nil
	}
	return messaging.NewProducer(client.Redis(), cfg.Messaging.Stream, cfg.Messaging.MaxLen)
}

// ProvideTemplateFS 提供模板文件系统
func ProvideTemplateFS(cfg *config.Config) (fs.FS, error) {
	return prompt.NewFS(cfg.Templates.Dir)
}

// ProvideFetcher 提供图片下载器
func ProvideFetcher(cfg *config.Config) *llm.Fetcher {
	return llm.NewFetcher(cfg.Instagram.DownloadTimeout, cfg.Instagram.UserAgent)
}

// ProvideStore 提供对象存储
func ProvideStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if missing := store.Missing(); len(missing) > 0 {
		logger.Warn(ctx, "object storage not configured", "provider", store.Provider(), "missing", missing)
	}
	return store, nil
}

// ProvideInstagramClient 提供 Instagram 发布客户端
func ProvideInstagramClient(cfg *config.Config) content.Publisher {
	return instagram.NewClient(cfg.Instagram)
}

// ProvideContentService 提供内容流水线服务
func ProvideContentService(
	completer content.Completer,
	images content.ImageGenerator,
	fetcher content.ImageFetcher,
	templates content.Templates,
	namespaces content.Namespaces,
	store storage.Store,
	publisher content.Publisher,
	cache content.PageCache,
	events content.EventPublisher,
	cfg *config.Config,
) *content.Service {
	svc := content.NewService(completer, images, fetcher, templates, namespaces, store, publisher, cfg)
	if cache != nil {
		svc.WithPageCache(cache, cfg.Cache.ListTTL)
	}
	if events != nil {
		svc.WithEvents(events)
	}
	return svc
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, client *redis.Client, store storage.Store) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, client, store)
}
