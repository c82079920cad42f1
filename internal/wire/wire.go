//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"social-content-api/internal/application/content"
	"social-content-api/internal/config"
	"social-content-api/internal/infrastructure/llm"
	"social-content-api/internal/interfaces/http/handler"
	"social-content-api/internal/interfaces/http/router"
	"social-content-api/internal/workflow/port"
	"social-content-api/internal/workflow/prompt"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RedisSet,
		TemplateSet,
		ModelSet,
		ServiceSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// RedisSet 可选 Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvidePageCache,
	ProvideRateLimiter,
	ProvideEventPublisher,
)

// TemplateSet 提示词模板提供者集合
var TemplateSet = wire.NewSet(
	ProvideTemplateFS,
	prompt.NewTemplateCache,
	prompt.NewNamespaceStore,
	wire.Bind(new(content.Templates), new(*prompt.TemplateCache)),
	wire.Bind(new(content.Namespaces), new(*prompt.NamespaceStore)),
)

// ModelSet 模型与外部服务提供者集合
var ModelSet = wire.NewSet(
	llm.NewEinoFactory,
	llm.NewCompletionClient,
	llm.NewImageClient,
	ProvideFetcher,
	ProvideStore,
	ProvideInstagramClient,
	wire.Bind(new(port.ChatModelFactory), new(*llm.EinoFactory)),
	wire.Bind(new(content.Completer), new(*llm.CompletionClient)),
	wire.Bind(new(content.ImageGenerator), new(*llm.ImageClient)),
	wire.Bind(new(content.ImageFetcher), new(*llm.Fetcher)),
)

// ServiceSet 应用服务提供者集合
var ServiceSet = wire.NewSet(
	ProvideContentService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewContentHandler,
	handler.NewIdeaHandler,
	handler.NewImageHandler,
	handler.NewInstagramHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
