package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"GoldEater/internal/metrics"
)

// NewRouter APIルートを登録したginエンジンを作成
func NewRouter(h *ScanHandler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.RegisterHTTPMetrics()

	r := gin.New()
	r.Use(gin.Recovery(), metrics.GinMiddleware(), requestLogger(logger))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/prompt-types", h.GetPromptTypes)
		api.GET("/districts", h.GetDistricts)
		api.GET("/districts/:name/grid", h.GetGrid)
		api.GET("/businesses", h.GetBusinesses)
		api.GET("/runs/:id", h.GetRun)
		api.POST("/scans", h.CreateScan)
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
