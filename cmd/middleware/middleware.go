package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/zlog"

	"chessreg/internal/auth"
	"chessreg/internal/dto"
)

// LoggingMiddleware logs one line per request with method, path, status and
// latency.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		zlog.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request handled")
	}
}

// AdminAuth guards admin routes behind the session token issued by the
// login endpoint.
func AdminAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.VerifySessionToken(c.GetHeader("Authorization"), secret); err != nil {
			zlog.Logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("admin auth rejected")
			dto.UnauthorizedError(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
