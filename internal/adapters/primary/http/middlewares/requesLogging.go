package middlewares

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder сбор длительности запросов
type HTTPRecorder interface {
	RecordHTTPRequest(route string, status int, duration time.Duration)
}

// RequestLogger пишет одну строку на запрос. Query не логируется:
// в нём приходит verify token вебхука.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()

		var logLevel slog.Level
		switch {
		case status >= 500:
			logLevel = slog.LevelError
		case status >= 400:
			logLevel = slog.LevelWarn
		default:
			logLevel = slog.LevelDebug
		}

		log.LogAttrs(c.Request.Context(), logLevel, "request completed",
			slog.String("method", c.Request.Method),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("response_size", c.Writer.Size()),
			slog.String("remote_addr", c.ClientIP()),
		)
	}
}

// RequestMetrics метрики по шаблону маршрута, неизвестные пути сводятся в один label
func RequestMetrics(rec HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.RecordHTTPRequest(route, c.Writer.Status(), time.Since(start))
	}
}
