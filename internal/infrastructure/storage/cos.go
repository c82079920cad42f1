package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cos "github.com/tencentyun/cos-go-sdk-v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"social-content-api/internal/config"
	apperrors "social-content-api/pkg/errors"
)

const defaultCOSTimeout = 60 * time.Second

// cosAPI COS SDK 中用到的方法
type cosAPI interface {
	GetBucket(ctx context.Context, opt *cos.BucketGetOptions) (*cos.BucketGetResult, error)
	PutObject(ctx context.Context, name string, content io.Reader, mimeType string) error
}

type cosClient struct {
	*cos.Client
}

func (c *cosClient) GetBucket(ctx context.Context, opt *cos.BucketGetOptions) (*cos.BucketGetResult, error) {
	result, _, err := c.Client.Bucket.Get(ctx, opt)
	return result, err
}

func (c *cosClient) PutObject(ctx context.Context, name string, content io.Reader, mimeType string) error {
	opt := &cos.ObjectPutOptions{
		ACLHeaderOptions: &cos.ACLHeaderOptions{
			XCosACL: "public-read",
		},
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: mimeType,
		},
	}
	_, err := c.Client.Object.Put(ctx, name, content, opt)
	return err
}

// COSStore 腾讯云 COS 存储后端
type COSStore struct {
	client cosAPI
	cfg    config.COSConfig
}

// NewCOSStore 创建 COS 存储
func NewCOSStore(cfg config.COSConfig) *COSStore {
	u, _ := url.Parse(cfg.BucketURL)
	httpClient := &http.Client{
		Timeout: defaultCOSTimeout,
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	return &COSStore{
		client: &cosClient{Client: cos.NewClient(&cos.BaseURL{BucketURL: u}, httpClient)},
		cfg:    cfg,
	}
}

// Provider 返回后端名称
func (s *COSStore) Provider() string { return "cos" }

// Missing 返回缺失的 COS 环境变量
func (s *COSStore) Missing() []string {
	var missing []string
	if s.cfg.BucketURL == "" {
		missing = append(missing, "COS_BUCKET_URL")
	}
	if s.cfg.SecretID == "" {
		missing = append(missing, "COS_SECRETID")
	}
	if s.cfg.SecretKey == "" {
		missing = append(missing, "COS_SECRETKEY")
	}
	return missing
}

// Put 以 public-read 上传对象
func (s *COSStore) Put(ctx context.Context, key string, data []byte, contentType string) (location string, err error) {
	start := time.Now()
	defer func() { observe(s.Provider(), "put", start, err) }()

	if err = s.client.PutObject(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeStorageError, "failed to upload object")
	}
	return s.PublicURL(key), nil
}

// ListFolders 列出 prefix 下的文件夹，游标为 COS 的 marker
func (s *COSStore) ListFolders(ctx context.Context, prefix string, limit int, cursor string) (page *FolderPage, err error) {
	start := time.Now()
	defer func() { observe(s.Provider(), "list_folders", start, err) }()

	result, err := s.client.GetBucket(ctx, &cos.BucketGetOptions{
		Prefix:    prefix,
		Delimiter: "/",
		Marker:    cursor,
		MaxKeys:   limit,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to list folders")
	}

	page = &FolderPage{
		Folders: append([]string(nil), result.CommonPrefixes...),
		Total:   len(result.CommonPrefixes) + len(result.Contents),
	}
	if result.IsTruncated {
		page.NextCursor = result.NextMarker
	}
	return page, nil
}

// ListFiles 列出文件夹中的对象
func (s *COSStore) ListFiles(ctx context.Context, folder string) (objects []Object, err error) {
	start := time.Now()
	defer func() { observe(s.Provider(), "list_files", start, err) }()

	result, err := s.client.GetBucket(ctx, &cos.BucketGetOptions{
		Prefix:  folder,
		MaxKeys: folderFileLimit,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to list files")
	}

	objects = make([]Object, 0, len(result.Contents))
	for _, obj := range result.Contents {
		objects = append(objects, Object{Key: obj.Key, URL: s.PublicURL(obj.Key), Size: obj.Size})
	}
	return objects, nil
}

// PublicURL 桶地址拼接 key
func (s *COSStore) PublicURL(key string) string {
	return strings.TrimRight(s.cfg.BucketURL, "/") + "/" + key
}
