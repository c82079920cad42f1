// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Image         ImageConfig         `yaml:"image" mapstructure:"image"`
	Templates     TemplatesConfig     `yaml:"templates" mapstructure:"templates"`
	Content       ContentConfig       `yaml:"content" mapstructure:"content"`
	Instagram     InstagramConfig     `yaml:"instagram" mapstructure:"instagram"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
	// ListTTL 图片列表分页结果的缓存时间
	ListTTL time.Duration `yaml:"list_ttl" mapstructure:"list_ttl"`
}

// MessagingConfig 内容事件流配置，依赖 Redis
type MessagingConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Stream  string `yaml:"stream" mapstructure:"stream"`
	MaxLen  int64  `yaml:"max_len" mapstructure:"max_len"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	// Provider 存储后端: s3 | cos
	Provider string    `yaml:"provider" mapstructure:"provider"`
	S3       S3Config  `yaml:"s3" mapstructure:"s3"`
	COS      COSConfig `yaml:"cos" mapstructure:"cos"`
}

// S3Config AWS S3 配置
type S3Config struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Region          string `yaml:"region" mapstructure:"region"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	// Endpoint 自定义端点 (兼容 S3 协议的服务)，为空时使用 AWS 默认端点
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// COSConfig 腾讯云 COS 配置
type COSConfig struct {
	BucketURL string `yaml:"bucket_url" mapstructure:"bucket_url"`
	SecretID  string `yaml:"secret_id" mapstructure:"secret_id"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}

// LLMConfig 文本补全配置
type LLMConfig struct {
	Provider     string        `yaml:"provider" mapstructure:"provider"`
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	ContentModel string        `yaml:"content_model" mapstructure:"content_model"`
	IdeaModel    string        `yaml:"idea_model" mapstructure:"idea_model"`
	Temperature  float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ImageConfig 图片生成配置
type ImageConfig struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Quality string        `yaml:"quality" mapstructure:"quality"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// TemplatesConfig 提示词模板配置
type TemplatesConfig struct {
	// Dir 模板目录，为空时使用内置模板
	Dir   string `yaml:"dir" mapstructure:"dir"`
	Watch bool   `yaml:"watch" mapstructure:"watch"`
}

// ContentConfig 内容默认值配置
type ContentConfig struct {
	DefaultPersona   string `yaml:"default_persona" mapstructure:"default_persona"`
	DefaultSentiment string `yaml:"default_sentiment" mapstructure:"default_sentiment"`
}

// InstagramConfig Instagram Graph API 配置
type InstagramConfig struct {
	AccessToken       string        `yaml:"access_token" mapstructure:"access_token"`
	BusinessAccountID string        `yaml:"business_account_id" mapstructure:"business_account_id"`
	GraphBaseURL      string        `yaml:"graph_base_url" mapstructure:"graph_base_url"`
	PollInterval      time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	PollMaxChecks     int           `yaml:"poll_max_checks" mapstructure:"poll_max_checks"`
	DownloadTimeout   time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	// APIKey 为空时不启用 Bearer 校验
	APIKey    string          `yaml:"api_key" mapstructure:"api_key"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// Missing 返回缺失的 S3 环境变量名
func (c S3Config) Missing() []string {
	var missing []string
	if c.AccessKeyID == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if c.SecretAccessKey == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	if c.Region == "" {
		missing = append(missing, "AWS_REGION")
	}
	if c.Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	return missing
}

// Missing 返回缺失的 Instagram 环境变量名
func (c InstagramConfig) Missing() []string {
	var missing []string
	if c.AccessToken == "" {
		missing = append(missing, "INSTAGRAM_ACCESS_TOKEN")
	}
	if c.BusinessAccountID == "" {
		missing = append(missing, "INSTAGRAM_BUSINESS_ACCOUNT_ID")
	}
	return missing
}
