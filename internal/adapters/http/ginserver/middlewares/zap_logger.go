package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger writes one "http_request" entry per request. Server errors are logged
// at error level and rejected requests at warn level.
func ZapLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method, uri := c.Request.Method, c.Request.RequestURI
		encoding := c.GetHeader("Content-Encoding")
		bytesIn := c.Request.ContentLength

		c.Next()

		status := c.Writer.Status()
		if ce := l.Check(levelFor(status), "http_request"); ce != nil {
			ce.Write(
				zap.String("method", method),
				zap.String("uri", uri),
				zap.String("client_ip", c.ClientIP()),
				zap.Int("status", status),
				zap.Int64("bytes_in", max(bytesIn, 0)),
				zap.String("encoding", encoding),
				zap.Int("size", max(c.Writer.Size(), 0)),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
