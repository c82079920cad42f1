// Package llm 封装文本补全与图片生成服务
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"social-content-api/internal/config"
	"social-content-api/internal/workflow/node"
	"social-content-api/internal/workflow/port"
	apperrors "social-content-api/pkg/errors"
	"social-content-api/pkg/logger"
	"social-content-api/pkg/metrics"
	"social-content-api/pkg/tracer"
)

// MissingCompletionKeyMessage 未配置补全 API 密钥时的错误信息
const MissingCompletionKeyMessage = "OPENAI_API_KEY not set in environment."

// Usage token 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion 一次补全调用的结果
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// CompleteOptions 补全参数，零值使用配置默认值
type CompleteOptions struct {
	Model       string
	Temperature float64
}

// CompletionClient 基于 Eino ChatModel 的补全客户端，单次调用不重试
type CompletionClient struct {
	factory     port.ChatModelFactory
	cfg         *config.LLMConfig
	provider    string
	temperature float64
}

// NewCompletionClient 创建补全客户端
func NewCompletionClient(factory port.ChatModelFactory, cfg *config.Config) *CompletionClient {
	provider := cfg.LLM.Provider
	if provider == "" {
		provider = "openai"
	}
	return &CompletionClient{
		factory:     factory,
		cfg:         &cfg.LLM,
		provider:    provider,
		temperature: cfg.LLM.Temperature,
	}
}

// Complete 以单条 user 消息调用模型。
// 未配置密钥时在任何网络请求前返回 Configuration 错误；其他失败均为 Upstream 错误。
func (c *CompletionClient) Complete(ctx context.Context, prompt string, opts CompleteOptions) (*Completion, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, apperrors.Configuration(MissingCompletionKeyMessage)
	}

	modelName := opts.Model
	if modelName == "" {
		modelName = c.cfg.ContentModel
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	ctx, span := tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", c.provider),
		attribute.String("llm.model", modelName),
		attribute.Int("llm.prompt_chars", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	completion, err := c.generate(ctx, modelName, prompt, temperature)
	metrics.LLMCallDuration.WithLabelValues(c.provider, modelName).Observe(time.Since(start).Seconds())
	metrics.LLMCallTotal.WithLabelValues(c.provider, modelName, metrics.Status(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.LLMTokensUsed.WithLabelValues(c.provider, modelName, "prompt").Add(float64(completion.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(c.provider, modelName, "completion").Add(float64(completion.Usage.CompletionTokens))
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", completion.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", completion.Usage.CompletionTokens),
	)

	logger.Info(ctx, "completion received",
		"model", completion.Model,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
		"preview", node.Preview(completion.Text, 120),
	)
	return completion, nil
}

func (c *CompletionClient) generate(ctx context.Context, modelName, prompt string, temperature float64) (*Completion, error) {
	chatModel, err := c.factory.Get(ctx, modelName)
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to initialise completion model")
	}

	msg, err := chatModel.Generate(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.WithTemperature(float32(temperature)),
		model.WithModel(modelName),
	)
	if err != nil {
		return nil, apperrors.Upstream(err, "completion request failed")
	}
	if msg == nil {
		return nil, apperrors.Upstream(fmt.Errorf("empty llm response"), "completion request failed")
	}

	out := &Completion{Text: msg.Content, Model: modelName}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		u := msg.ResponseMeta.Usage
		out.Usage = Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return out, nil
}
