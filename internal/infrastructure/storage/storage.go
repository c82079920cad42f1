// Package storage 提供生成图片的对象存储
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"social-content-api/internal/config"
	"social-content-api/pkg/metrics"
)

// 每个图片文件夹内的固定文件名
const (
	OriginalFile  = "original.png"
	ThumbnailFile = "thumbnail.png"
)

// Object 存储对象
type Object struct {
	Key  string
	URL  string
	Size int64
}

// FolderPage 一页文件夹列表
type FolderPage struct {
	// Folders 文件夹前缀，末尾带 "/"
	Folders    []string
	NextCursor string
	Total      int
}

// Store 对象存储的最小接口
type Store interface {
	// Put 上传对象 (公开可读)，返回公开访问 URL
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// ListFolders 以 "/" 为分隔列出 prefix 下的文件夹
	ListFolders(ctx context.Context, prefix string, limit int, cursor string) (*FolderPage, error)
	// ListFiles 列出文件夹中的对象
	ListFiles(ctx context.Context, folder string) ([]Object, error)
	// Missing 返回缺失的配置项环境变量名，为空表示已配置
	Missing() []string
	Provider() string
}

// New 按配置选择存储后端
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.Storage.Provider) {
	case "", "s3":
		return NewS3Store(ctx, cfg.Storage.S3)
	case "cos":
		return NewCOSStore(cfg.Storage.COS), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// observe 记录存储操作指标
func observe(provider, operation string, start time.Time, err error) {
	metrics.StorageOperationDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
	metrics.StorageOperationTotal.WithLabelValues(provider, operation, metrics.Status(err)).Inc()
}
