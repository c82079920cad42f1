// Package middleware 提供 HTTP 中间件
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"social-content-api/internal/interfaces/http/dto"
	"social-content-api/pkg/logger"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// APIKey 静态 Bearer 密钥，为空时不校验
	APIKey string
	// SkipPaths 跳过认证的路径前缀
	SkipPaths []string
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/docs",
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// APIKey Bearer 密钥校验中间件
func APIKey(cfg AuthConfig) gin.HandlerFunc {
	if cfg.APIKey == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	expected := []byte(cfg.APIKey)

	return func(c *gin.Context) {
		for _, path := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			logger.Warn(c.Request.Context(), "unauthorized request", "path", c.Request.URL.Path)
			dto.Unauthorized(c)
			return
		}

		c.Next()
	}
}
