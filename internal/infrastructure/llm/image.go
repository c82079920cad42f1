package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"social-content-api/internal/config"
	apperrors "social-content-api/pkg/errors"
	"social-content-api/pkg/logger"
	"social-content-api/pkg/metrics"
	"social-content-api/pkg/tracer"
)

// MissingImageKeyMessage 未配置图片 API 密钥时的错误信息
const MissingImageKeyMessage = "IMAGE_API_KEY not set in environment."

// ImageOptions 图片生成参数，零值使用配置默认值
type ImageOptions struct {
	Size    string
	Quality string
	Model   string
}

// GeneratedImage 图片生成结果，URL 为供应商返回的临时地址
type GeneratedImage struct {
	URL           string
	RevisedPrompt string
}

// ImageClient 基于 openai-go 的图片生成客户端
type ImageClient struct {
	cfg        *config.ImageConfig
	httpClient *http.Client
}

// NewImageClient 创建图片生成客户端
func NewImageClient(cfg *config.Config) *ImageClient {
	return &ImageClient{
		cfg: &cfg.Image,
		httpClient: &http.Client{
			Timeout:   cfg.Image.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// GenerateImage 生成单张图片。
// 未配置密钥时在任何网络请求前返回 Configuration 错误；其他失败均为 Upstream 错误。
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (*GeneratedImage, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, apperrors.Configuration(MissingImageKeyMessage)
	}

	modelName := firstNonEmpty(opts.Model, c.cfg.Model, openai.ImageModelDallE3)
	quality := firstNonEmpty(opts.Quality, c.cfg.Quality, string(openai.ImageGenerateParamsQualityHD))
	size := firstNonEmpty(opts.Size, string(openai.ImageGenerateParamsSize1024x1024))

	ctx, span := tracer.Start(ctx, "image.generate", trace.WithAttributes(
		attribute.String("image.model", modelName),
		attribute.String("image.size", size),
	))
	defer span.End()

	reqOpts := []option.RequestOption{
		option.WithAPIKey(c.cfg.APIKey),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	}
	if c.cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.cfg.BaseURL))
	}
	client := openai.NewClient(reqOpts...)

	start := time.Now()
	res, err := client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          modelName,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(size),
		Quality:        openai.ImageGenerateParamsQuality(quality),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err == nil && (res == nil || len(res.Data) == 0 || res.Data[0].URL == "") {
		err = fmt.Errorf("image provider returned no image url")
	}
	metrics.ImageGenerationDuration.WithLabelValues(modelName).Observe(time.Since(start).Seconds())
	metrics.ImageGenerationTotal.WithLabelValues(modelName, size, metrics.Status(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.Upstream(err, "image generation failed")
	}

	logger.Info(ctx, "image generated", "model", modelName, "size", size)
	return &GeneratedImage{URL: res.Data[0].URL, RevisedPrompt: res.Data[0].RevisedPrompt}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
