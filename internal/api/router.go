// Package api is the HTTP transport of the QuickSand analysis service.
package api

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig holds the transport policy applied to every route.
type RouterConfig struct {
	CORSOrigins    []string
	RateLimitRPS   int   // 0 = disabled
	MaxUploadBytes int64 // largest accepted artifact; 0 = unlimited
}

// NewRouter builds the Gin engine with middleware and all routes mounted.
// ctx bounds the lifetime of background middleware state.
func NewRouter(ctx context.Context, cfg RouterConfig, analyze *AnalyzeHandler, info *InfoHandler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	router.Use(SecurityHeaders())
	router.Use(PrometheusMiddleware())
	router.Use(RequestLogger(logger))

	if cfg.MaxUploadBytes > 0 {
		// Keep uploads up to the limit in memory.
		router.MaxMultipartMemory = cfg.MaxUploadBytes + MultipartOverhead
		analyze.SetMaxArtifactBytes(cfg.MaxUploadBytes)
	}

	info.Register(router)
	router.GET("/metrics", MetricsHandler())

	apiGroup := router.Group("/api")
	if cfg.MaxUploadBytes > 0 {
		apiGroup.Use(BodyLimit(cfg.MaxUploadBytes + MultipartOverhead))
	}
	if cfg.RateLimitRPS > 0 {
		apiGroup.Use(RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}
	analyze.Register(apiGroup)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || containsWildcard(origins) {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
