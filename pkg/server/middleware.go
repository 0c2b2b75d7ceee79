package server

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gandtscales/scalesite/pkg/builder"
	"github.com/gandtscales/scalesite/pkg/config"
)

// requestLogger logs one line per request once the handler chain is done.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status == http.StatusNotFound:
			level = slog.LevelWarn
		}

		logger.Log(c.Request.Context(), level, "Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// recovery turns a handler panic into a logged 500.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, err any) {
		logger.Error("Panic while serving request", "path", c.Request.URL.Path, "panic", err)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// assetSelected applies the export's include/exclude globs so the preview
// never serves a file the static build would leave out.
func assetSelected(cfg *config.Config, relPath string) bool {
	return builder.MatchAsset(relPath, cfg.Assets.Include, cfg.Assets.Exclude)
}
