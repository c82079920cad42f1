package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"social-content-api/internal/infrastructure/storage"
	apperrors "social-content-api/pkg/errors"
	"social-content-api/pkg/logger"
	"social-content-api/pkg/metrics"
)

// 列表分页参数
const (
	DefaultListLimit = 20
	MaxListLimit     = 1000
	listConcurrency  = 8
	listCachePrefix  = "images:list:"
)

type ImagePage struct {
	Images     []ImageResult
	NextCursor *string
	Total      int
}

// ListImages 按文件夹分页列出已生成的图片；只返回原图与缩略图都存在的文件夹
func (s *Service) ListImages(ctx context.Context, cursor string, limit int) (*ImagePage, error) {
	if limit < 1 || limit > MaxListLimit {
		return nil, apperrors.Validation("Invalid request").WithDetail("limit must be between 1 and 1000")
	}
	if len(s.store.Missing()) > 0 {
		return nil, apperrors.Configuration(credentialsMissingMessage(s.store.Provider()))
	}

	page, err := s.cachedListImages(ctx, cursor, limit)
	if err != nil {
		return nil, failWith(err, "Failed to list S3 images")
	}
	return page, nil
}

func (s *Service) cachedListImages(ctx context.Context, cursor string, limit int) (*ImagePage, error) {
	if s.pageCache == nil {
		return s.listImages(ctx, cursor, limit)
	}

	key := fmt.Sprintf("%s%s:%d:%s", listCachePrefix, s.store.Provider(), limit, cursor)
	raw, err := s.pageCache.GetOrLoad(ctx, key, s.pageTTL, func() (any, error) {
		page, err := s.listImages(ctx, cursor, limit)
		if err != nil {
			return nil, &loadError{err: err}
		}
		return page, nil
	})
	if err != nil {
		var le *loadError
		if errors.As(err, &le) {
			return nil, le.err
		}
		// 缓存层故障时直接读存储
		logger.Warn(ctx, "image list cache unavailable", "key", key, "error", err.Error())
		metrics.ListCacheEvents.WithLabelValues("error").Inc()
		return s.listImages(ctx, cursor, limit)
	}
	var page ImagePage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode cached page: %w", err)
	}
	return &page, nil
}

// loadError 标记来自存储加载而非缓存层的错误
type loadError struct {
	err error
}

func (e *loadError) Error() string { return e.err.Error() }

func (e *loadError) Unwrap() error { return e.err }

func (s *Service) listImages(ctx context.Context, cursor string, limit int) (*ImagePage, error) {
	folders, err := s.store.ListFolders(ctx, "", limit, cursor)
	if err != nil {
		return nil, err
	}

	found := make([]*ImageResult, len(folders.Folders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, folder := range folders.Folders {
		g.Go(func() error {
			files, err := s.store.ListFiles(gctx, folder)
			if err != nil {
				return err
			}
			found[i] = pairFromFiles(folder, files)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := &ImagePage{Images: make([]ImageResult, 0, len(found)), Total: folders.Total}
	for _, img := range found {
		if img != nil {
			page.Images = append(page.Images, *img)
		}
	}
	if folders.NextCursor != "" {
		next := folders.NextCursor
		page.NextCursor = &next
	}
	logger.Debug(ctx, "images listed", "folders", len(folders.Folders), "images", len(page.Images))
	return page, nil
}

func pairFromFiles(folder string, files []storage.Object) *ImageResult {
	var original, thumbnail string
	for _, f := range files {
		switch {
		case original == "" && strings.HasSuffix(f.Key, storage.OriginalFile):
			original = f.URL
		case thumbnail == "" && strings.HasSuffix(f.Key, storage.ThumbnailFile):
			thumbnail = f.URL
		}
	}
	if original == "" || thumbnail == "" {
		return nil
	}
	return &ImageResult{
		OriginalURL:  original,
		ThumbnailURL: thumbnail,
		Folder:       strings.TrimSuffix(folder, "/"),
	}
}

func credentialsMissingMessage(provider string) string {
	if provider == "cos" {
		return "COS credentials missing in environment."
	}
	return "S3 credentials missing in environment."
}
