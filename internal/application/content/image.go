package content

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"social-content-api/internal/infrastructure/imaging"
	"social-content-api/internal/infrastructure/llm"
	"social-content-api/internal/infrastructure/messaging"
	"social-content-api/internal/infrastructure/storage"
	"social-content-api/internal/workflow/prompt"
	apperrors "social-content-api/pkg/errors"
	"social-content-api/pkg/logger"
)

// 图片请求的错误信息
const (
	MissingMessageMessage = "Missing required field: message"
	InvalidSizeMessage    = "Invalid size. Supported: square, portrait, landscape."
	DefaultImageSize      = "square"
)

// imageSizes 尺寸名到供应商尺寸的映射
var imageSizes = map[string]string{
	"square":    "1024x1024",
	"portrait":  "1024x1792",
	"landscape": "1792x1024",
}

// ProviderSize 返回尺寸名对应的供应商尺寸
func ProviderSize(size string) (string, bool) {
	v, ok := imageSizes[size]
	return v, ok
}

type ImageRequest struct {
	Namespace  string
	Message    string
	Size       string
	Subject    string
	Style      string
	Lighting   string
	Mood       string
	Resolution string
}

type ImageResult struct {
	OriginalURL  string
	ThumbnailURL string
	Folder       string
}

// GenerateImage 生成配图并把原图与缩略图上传到同一文件夹。
// 命名空间、必填字段、尺寸与存储配置都在调用模型之前检查。
func (s *Service) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if err := s.requireNamespace(req.Namespace); err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.NamespaceKey, req.Namespace)

	if strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.Validation(MissingMessageMessage)
	}
	size, ok := ProviderSize(firstNonEmpty(req.Size, DefaultImageSize))
	if !ok {
		return nil, apperrors.Validation(InvalidSizeMessage)
	}
	if err := missingStorage(s.store, "Image storage not configured"); err != nil {
		return nil, err
	}

	res, err := s.generateImage(ctx, req, size)
	if err != nil {
		return nil, failWith(err, "Failed to generate image")
	}
	return res, nil
}

func (s *Service) generateImage(ctx context.Context, req ImageRequest, size string) (*ImageResult, error) {
	text, err := s.templates.Render(prompt.Namespaced(req.Namespace, prompt.CreateImage), map[string]string{
		"subject":    firstNonEmpty(req.Subject, req.Message),
		"style":      firstNonEmpty(req.Style, "Fun cartoonish"),
		"lighting":   firstNonEmpty(req.Lighting, "natural lighting"),
		"mood":       firstNonEmpty(req.Mood, "warm and inviting"),
		"resolution": firstNonEmpty(req.Resolution, "high resolution"),
	})
	if err != nil {
		return nil, err
	}

	img, err := s.images.GenerateImage(ctx, text, llm.ImageOptions{Size: size})
	if err != nil {
		return nil, err
	}

	// 供应商返回的 URL 有时效，立即下载
	original, err := s.fetcher.FetchImage(ctx, img.URL)
	if err != nil {
		return nil, err
	}

	suffix, err := s.randomHex(8)
	if err != nil {
		return nil, err
	}
	folder := fmt.Sprintf("v1-content-%s-%d-%s", req.Namespace, s.now().UnixMilli(), suffix)

	originalURL, err := s.store.Put(ctx, folder+"/"+storage.OriginalFile, original, "image/png")
	if err != nil {
		return nil, err
	}

	thumb, err := imaging.Thumbnail(original)
	if err != nil {
		return nil, err
	}
	thumbnailURL, err := s.store.Put(ctx, folder+"/"+storage.ThumbnailFile, thumb, "image/png")
	if err != nil {
		return nil, err
	}

	if s.pageCache != nil {
		if err := s.pageCache.InvalidatePrefix(ctx, listCachePrefix); err != nil {
			logger.Warn(ctx, "failed to invalidate image list cache", "error", err.Error())
		}
	}

	if s.events != nil {
		if _, err := s.events.PublishImageStored(ctx, req.Namespace, messaging.ImageStored{
			Folder:       folder,
			OriginalURL:  originalURL,
			ThumbnailURL: thumbnailURL,
			Provider:     s.store.Provider(),
		}); err != nil {
			logger.Warn(ctx, "failed to publish image event", "folder", folder, "error", err.Error())
		}
	}

	logger.Info(ctx, "image stored", "folder", folder, "provider", s.store.Provider())
	return &ImageResult{OriginalURL: originalURL, ThumbnailURL: thumbnailURL, Folder: folder}, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
