package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"social-content-api/internal/config"
)

// EinoFactory 按模型名管理 Eino ChatModel 客户端实例
type EinoFactory struct {
	config     *config.LLMConfig
	httpClient *http.Client
	models     map[string]model.BaseChatModel
	mu         sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		httpClient: &http.Client{
			Timeout:   cfg.LLM.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定模型的 ChatModel，未指定时使用内容模型
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.ContentModel
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      f.config.APIKey,
		BaseURL:     f.config.BaseURL,
		Model:       name,
		Temperature: ptrFloat32(float32(f.config.Temperature)),
		Timeout:     f.config.Timeout,
		HTTPClient:  f.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

func ptrFloat32(f float32) *float32 {
	return &f
}
