package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/coopelec/backend/internal/infrastructure/logger"
	"github.com/coopelec/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MetricsSource is the Prometheus side of telemetry.Metrics
type MetricsSource interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// EngineConfig selects the middleware chain of NewEngine
type EngineConfig struct {
	Logger         *zap.Logger
	TrustedProxies []string

	// Tracing is skipped when TracerProvider is nil.
	ServiceName    string
	TracerProvider trace.TracerProvider

	// Metrics also mounts GET /metrics when set.
	Metrics MetricsSource

	CORS        middleware.CORSConfig
	MaxBodySize int64

	// Rate limiting is skipped when RateLimitStore is nil or the limit is zero.
	RateLimitStore  middleware.CounterStore
	RateLimit       int
	RateLimitWindow time.Duration
}

// NewEngine builds a gin engine with the standard middleware chain:
// recovery, request id, tracing, access log, metrics, CORS, security
// headers, body limit, rate limit.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	engine.Use(logger.Recovery(log), middleware.RequestID())
	if cfg.TracerProvider != nil {
		engine.Use(middleware.Tracing(cfg.ServiceName, otelgin.WithTracerProvider(cfg.TracerProvider))...)
	}
	engine.Use(logger.GinMiddleware(log))
	if cfg.Metrics != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Metrics))
	}
	engine.Use(middleware.CORS(cfg.CORS), middleware.Secure())
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if cfg.RateLimitStore != nil && cfg.RateLimit > 0 {
		engine.Use(middleware.RateLimit(cfg.RateLimitStore, cfg.RateLimit, cfg.RateLimitWindow))
	}

	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	return engine, nil
}
