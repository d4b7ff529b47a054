package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/server"
	mdw "go-gin-auth-service/internal/transport/http/middleware"
)

type EngineOptions struct {
	Log           *zap.Logger
	Metrics       *mdw.HTTPMetrics
	Health        func(context.Context) error // 可选：探测 DB/Redis
	MaxConcurrent int64
	MaxBodyBytes  int64
	Timeout       time.Duration
}

func (o *EngineOptions) defaults() {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 300
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
}

// newEngine 公共中间件链 + /health + /metrics
func newEngine(o EngineOptions) *gin.Engine {
	o.defaults()
	r := server.NewRouter(o.Log)

	chain := []gin.HandlerFunc{mdw.RequestID(), mdw.AccessLog(o.Log)}
	if o.Metrics != nil {
		chain = append(chain, o.Metrics.Middleware())
	}
	chain = append(chain,
		mdw.ConcurrencyLimit(o.MaxConcurrent),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.Timeout),
	)
	r.Use(chain...)

	r.GET("/health", func(c *gin.Context) {
		if o.Health != nil {
			if err := o.Health(c.Request.Context()); err != nil {
				o.Log.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if o.Metrics != nil {
		r.GET("/metrics", o.Metrics.Handler())
	}
	return r
}

// NewAPIEngine 用户端：/api/v1
func NewAPIEngine(o EngineOptions, reg *Registry) *gin.Engine {
	r := newEngine(o)
	reg.MountAPI(r.Group("/api/v1"))
	return r
}
