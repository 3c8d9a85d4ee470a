package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medikart/masterdata/internal/storecontext"
	"go.uber.org/zap"
)

// StoreContextMiddleware copies the already-verified identity headers
// into the request context. Authentication itself lives at the gateway.
func StoreContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if storeID := c.GetHeader("X-Store-ID"); storeID != "" {
			ctx = storecontext.WithStoreID(ctx, storeID)
		}
		if actorID := c.GetHeader("X-Actor-ID"); actorID != "" {
			ctx = storecontext.WithActor(ctx, storecontext.Actor{
				ID:   actorID,
				Role: c.GetHeader("X-Actor-Role"),
			})
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogMiddleware logs one structured line per request.
func RequestLogMiddleware(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if storeID, ok := storecontext.StoreIDFromContext(c.Request.Context()); ok {
			fields = append(fields, zap.String("store_id", storeID))
		}
		if c.Writer.Status() >= 500 {
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
