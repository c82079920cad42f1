package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"social-content-api/internal/config"
	apperrors "social-content-api/pkg/errors"
)

// folderFileLimit 单个图片文件夹最多列出的对象数
const folderFileLimit = 10

// s3API S3 客户端中用到的方法
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store AWS S3 存储后端
type S3Store struct {
	client s3API
	cfg    config.S3Config
}

// NewS3Store 创建 S3 存储；凭据缺失时仍返回实例，由调用方通过 Missing 检查
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(&http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, cfg: cfg}, nil
}

func newS3StoreWithClient(client s3API, cfg config.S3Config) *S3Store {
	return &S3Store{client: client, cfg: cfg}
}

// Provider 返回后端名称
func (s *S3Store) Provider() string { return "s3" }

// Missing 返回缺失的 S3 环境变量
func (s *S3Store) Missing() []string { return s.cfg.Missing() }

// Put 以 public-read 上传对象
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (location string, err error) {
	start := time.Now()
	defer func() { observe(s.Provider(), "put", start, err) }()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeStorageError, "failed to upload object")
	}
	return s.PublicURL(key), nil
}

// ListFolders 列出 prefix 下的文件夹，Total 为本页 KeyCount
func (s *S3Store) ListFolders(ctx context.Context, prefix string, limit int, cursor string) (page *FolderPage, err error) {
	start := time.Now()
	defer func() { observe(s.Provider(), "list_folders", start, err) }()

	in := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.cfg.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(int32(limit)),
	}
	if cursor != "" {
		in.ContinuationToken = aws.String(cursor)
	}

	out, err := s.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to list folders")
	}

	page = &FolderPage{Total: int(aws.ToInt32(out.KeyCount))}
	for _, cp := range out.CommonPrefixes {
		page.Folders = append(page.Folders, aws.ToString(cp.Prefix))
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextCursor = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

// ListFiles 列出文件夹中的对象
func (s *S3Store) ListFiles(ctx context.Context, folder string) (objects []Object, err error) {
	start := time.Now()
	defer func() { observe(s.Provider(), "list_files", start, err) }()

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.cfg.Bucket),
		Prefix:  aws.String(folder),
		MaxKeys: aws.Int32(folderFileLimit),
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to list files")
	}

	objects = make([]Object, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		objects = append(objects, Object{Key: key, URL: s.PublicURL(key), Size: aws.ToInt64(obj.Size)})
	}
	return objects, nil
}

// PublicURL 由桶名、区域和 key 拼出的公开地址 (不签名)
func (s *S3Store) PublicURL(key string) string {
	if s.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.Endpoint, "/"), s.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}
