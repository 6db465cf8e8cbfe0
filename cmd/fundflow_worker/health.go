package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/fundflow_engine/internal/middleware"
	"github.com/SscSPs/fundflow_engine/internal/platform/config"
	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

type readinessCheck struct {
	name  string
	check func(ctx context.Context) error
}

func newHealthServer(cfg *config.Config, logger *slog.Logger, checks []readinessCheck) *http.Server {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	// Liveness: the process is up.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: every configured dependency answers.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for _, rc := range checks {
			if err := rc.check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[rc.name] = err.Error()
				middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Readiness check failed",
					slog.String("dependency", rc.name),
					slog.String("error", err.Error()))
				continue
			}
			results[rc.name] = "ok"
		}
		c.JSON(status, gin.H{"ready": status == http.StatusOK, "checks": results})
	})

	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
