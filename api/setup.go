package api

import (
	"context"
	"net/http"

	response "mathtutor/api/handlers/common"
	"mathtutor/api/handlers/embeddings"
	"mathtutor/internal/config"
	"mathtutor/internal/failure"
	"mathtutor/internal/metrics"
	middlewarepkg "mathtutor/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger 就绪检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies 路由依赖
type Dependencies struct {
	Config    *config.Config
	Generator embeddings.Generator
	Store     embeddings.Store
	Readiness Pinger
	Logger    *zap.Logger
}

// Router HTTP 路由及其需要释放的资源
type Router struct {
	Engine  *gin.Engine
	limiter *middlewarepkg.RateLimiter
}

// Close 停止后台清理协程
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Stop()
	}
}

// SetupRouter 设置并返回 Gin 路由
func SetupRouter(deps Dependencies) *Router {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewarepkg.RequestIDMiddleware())
	router.Use(RequestLogger(log))
	router.Use(CORS(cfg.Server.CORSOrigins))
	router.Use(metrics.PrometheusMiddleware())

	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(deps.Readiness))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r := &Router{Engine: router}

	var guard []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limiterCfg := middlewarepkg.DefaultRateLimiterConfig()
		if cfg.RateLimit.RequestsPerSecond > 0 {
			limiterCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		}
		if cfg.RateLimit.Burst > 0 {
			limiterCfg.BurstSize = cfg.RateLimit.Burst
		}
		r.limiter = middlewarepkg.NewRateLimiter(limiterCfg)
		guard = append(guard, middlewarepkg.RateLimitMiddleware(r.limiter, rejectRateLimited))
		log.Info("写接口限流已启用",
			zap.Float64("rps", limiterCfg.RequestsPerSecond),
			zap.Int("burst", limiterCfg.BurstSize))
	}

	embeddings.NewHandler(deps.Generator, deps.Store).Register(router.Group("/embeddings"), guard...)

	router.NoRoute(func(c *gin.Context) {
		response.ResponseFailure(c, failure.New(failure.KindNotFound, "route not found"))
	})

	return r
}

func rejectRateLimited(c *gin.Context) {
	f := failure.New(failure.KindRateLimited, "")
	c.JSON(http.StatusTooManyRequests, response.ErrorEnvelopeFrom(f))
}
