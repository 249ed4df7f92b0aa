package middleware

import (
	"time"

	"tubequeue/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestID tags every request with an id and logs it once it completes.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Set(RequestIDKey, id)
		ctx.Header(RequestIDHeader, id)

		start := time.Now()
		ctx.Next()

		// SSE streams are long lived; they are logged when the client leaves.
		logger.GetLogger().WithFields(map[string]interface{}{
			"requestId": id,
			"method":    ctx.Request.Method,
			"path":      ctx.Request.URL.Path,
			"status":    ctx.Writer.Status(),
			"latency":   time.Since(start).String(),
			"clientIp":  ctx.ClientIP(),
		}).Info("request completed")
	}
}
