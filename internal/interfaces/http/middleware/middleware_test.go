package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"social-content-api/internal/infrastructure/persistence/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func TestAPIKey(t *testing.T) {
	engine := gin.New()
	engine.Use(APIKey(AuthConfig{APIKey: "secret", SkipPaths: DefaultSkipPaths}))
	engine.POST("/create-content", okHandler)
	engine.GET("/health", okHandler)
	engine.GET("/docs/index.html", okHandler)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"missing header", http.MethodPost, "/create-content", "", http.StatusUnauthorized},
		{"wrong key", http.MethodPost, "/create-content", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", http.MethodPost, "/create-content", "Basic secret", http.StatusUnauthorized},
		{"valid key", http.MethodPost, "/create-content", "Bearer secret", http.StatusOK},
		{"health skipped", http.MethodGet, "/health", "", http.StatusOK},
		{"docs skipped", http.MethodGet, "/docs/index.html", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.auth != "" {
				header.Set("Authorization", tt.auth)
			}
			w := serve(engine, tt.method, tt.path, header)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestAPIKeyDisabledWhenEmpty(t *testing.T) {
	engine := gin.New()
	engine.Use(APIKey(AuthConfig{SkipPaths: DefaultSkipPaths}))
	engine.POST("/create-content", okHandler)

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/create-content", nil).Code)
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	engine := gin.New()
	engine.Use(RateLimit(RateLimitConfig{Enabled: true, RequestsPerMinute: 2}, redis.NewRateLimiter(client)))
	engine.POST("/create-content", okHandler)
	engine.POST("/generate-idea", okHandler)

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/create-content", nil).Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/create-content", nil).Code)

	w := serve(engine, http.MethodPost, "/create-content", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too Many Requests"}`, w.Body.String())

	// 每个路由独立计数
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/generate-idea", nil).Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestRateLimitFailsOpen(t *testing.T) {
	engine := gin.New()
	engine.Use(RateLimit(RateLimitConfig{Enabled: true, RequestsPerMinute: 1}, failingLimiter{}))
	engine.POST("/create-content", okHandler)

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/create-content", nil).Code)
}

func TestRateLimitDisabled(t *testing.T) {
	engine := gin.New()
	engine.Use(RateLimit(RateLimitConfig{Enabled: false}, failingLimiter{}))
	engine.POST("/create-content", okHandler)

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/create-content", nil).Code)
}

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery())
	engine.GET("/boom", func(*gin.Context) { panic("boom") })
	engine.GET("/after", okHandler)

	w := serve(engine, http.MethodGet, "/boom", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/after", nil).Code)
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	header := http.Header{}
	header.Set(RequestIDHeader, "req-123")
	w := serve(engine, http.MethodGet, "/id", header)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = serve(engine, http.MethodGet, "/id", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestTraceContext(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	withSpan := func(c *gin.Context) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		c.Request = c.Request.WithContext(trace.ContextWithSpanContext(c.Request.Context(), sc))
		c.Next()
	}

	engine := gin.New()
	engine.Use(withSpan, TraceContext())
	engine.GET("/traced", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("trace_id")+"/"+c.GetString("span_id"))
	})

	w := serve(engine, http.MethodGet, "/traced", nil)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736/00f067aa0ba902b7", w.Body.String())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", w.Header().Get("X-Trace-ID"))

	plain := gin.New()
	plain.Use(TraceContext())
	plain.GET("/plain", okHandler)
	assert.Empty(t, serve(plain, http.MethodGet, "/plain", nil).Header().Get("X-Trace-ID"))
}
