package middleware

import (
	"time"

	"craft-keeper/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request through the api component logger.
func RequestLogger() gin.HandlerFunc {
	log := logger.With("api")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Debug()
		if status >= 500 {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Str("client", c.ClientIP()).
			Msg("request")
	}
}
