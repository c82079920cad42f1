// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// envBindings 兼容部署环境中使用的扁平环境变量名
var envBindings = map[string][]string{
	"app.env":                                 {"APP_ENV"},
	"server.http.port":                        {"PORT"},
	"llm.api_key":                             {"OPENAI_API_KEY"},
	"llm.base_url":                            {"OPENAI_API_BASE_URL"},
	"llm.content_model":                       {"OPENAI_MODEL_NAME"},
	"llm.idea_model":                          {"GENERATE_IDEA_MODEL"},
	"image.api_key":                           {"IMAGE_API_KEY"},
	"image.base_url":                          {"IMAGE_API_BASE_URL"},
	"image.model":                             {"OPENAI_IMAGE_MODEL"},
	"storage.provider":                        {"STORAGE_PROVIDER"},
	"storage.s3.bucket":                       {"S3_BUCKET"},
	"storage.s3.region":                       {"AWS_REGION"},
	"storage.s3.access_key_id":                {"AWS_ACCESS_KEY_ID"},
	"storage.s3.secret_access_key":            {"AWS_SECRET_ACCESS_KEY"},
	"storage.s3.endpoint":                     {"S3_ENDPOINT"},
	"storage.cos.bucket_url":                  {"COS_BUCKET_URL"},
	"storage.cos.secret_id":                   {"COS_SECRETID"},
	"storage.cos.secret_key":                  {"COS_SECRETKEY"},
	"instagram.access_token":                  {"INSTAGRAM_ACCESS_TOKEN"},
	"instagram.business_account_id":           {"INSTAGRAM_BUSINESS_ACCOUNT_ID"},
	"instagram.graph_base_url":                {"INSTAGRAM_GRAPH_BASE_URL"},
	"content.default_persona":                 {"DEFAULT_PERSONA"},
	"content.default_sentiment":               {"DEFAULT_SENTIMENT"},
	"templates.dir":                           {"PROMPT_TEMPLATES_DIR"},
	"security.api_key":                        {"API_KEY"},
	"cache.redis.enabled":                     {"REDIS_ENABLED"},
	"cache.redis.host":                        {"REDIS_HOST"},
	"cache.redis.password":                    {"REDIS_PASSWORD"},
	"observability.logging.level":             {"LOG_LEVEL"},
	"observability.tracing.enabled":           {"TRACING_ENABLED"},
	"observability.tracing.endpoint":          {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"security.rate_limit.enabled":             {"RATE_LIMIT_ENABLED"},
	"security.rate_limit.requests_per_minute": {"RATE_LIMIT_PER_MINUTE"},
}

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	return LoadFrom("configs")
}

// LoadFrom 从指定目录加载配置，目录中的文件均为可选
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	// 设置默认值 (兜底)
	setDefaults(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnv(string(content))

	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "social-content-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 3000)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "180s")
	v.SetDefault("server.http.idle_timeout", "120s")

	// Redis 默认值
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.list_ttl", "30s")
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("messaging.enabled", true)
	v.SetDefault("messaging.stream", "stream:content:events")
	v.SetDefault("messaging.max_len", 10000)

	// 存储默认值
	v.SetDefault("storage.provider", "s3")

	// 模型默认值
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.content_model", "gpt-3.5-turbo")
	v.SetDefault("llm.idea_model", "deepseek/deepseek-chat-v3-0324:free")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("image.model", "dall-e-3")
	v.SetDefault("image.quality", "hd")
	v.SetDefault("image.timeout", "180s")

	// 模板默认值
	v.SetDefault("templates.watch", true)

	// Instagram 默认值
	v.SetDefault("instagram.graph_base_url", "https://graph.facebook.com/v18.0")
	v.SetDefault("instagram.poll_interval", "2s")
	v.SetDefault("instagram.poll_max_checks", 10)
	v.SetDefault("instagram.download_timeout", "30s")
	v.SetDefault("instagram.user_agent", "Mozilla/5.0 (compatible; PeckStrutAI/1.0)")

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", false)
	v.SetDefault("security.rate_limit.requests_per_minute", 60)
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"})
}
