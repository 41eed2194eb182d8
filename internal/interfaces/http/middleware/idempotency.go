package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/clubdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader is the request header clients use to make a POST safe to retry
const IdempotencyKeyHeader = "Idempotency-Key"

// MaxIdempotencyKeyLength bounds the header value stored per request
const MaxIdempotencyKeyLength = 255

// Idempotency claims the request's Idempotency-Key before the handler runs.
// A key already claimed for the same route answers 409 without reaching the
// handler. The claim is released when the request fails (status >= 400) so
// the client can retry it. Requests without the header pass through.
//
// A store error does not block the request: the key is logged and the
// request proceeds unguarded.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("idempotency")

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest,
				"Idempotency-Key must be at most 255 characters",
				GetRequestID(c),
			))
			return
		}

		ctx := c.Request.Context()
		storeKey := c.Request.Method + ":" + routePattern(c) + ":" + key

		claimed, err := store.MarkProcessed(ctx, storeKey, ttl)
		if err != nil {
			logger.Warn("Idempotency store unavailable",
				zap.String("key", storeKey),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !claimed {
			resp := dto.NewErrorResponseWithRequestID(
				dto.ErrCodeIdempotencyReplay,
				"A request with this Idempotency-Key was already processed",
				GetRequestID(c),
			)
			resp.Error.Details = map[string]any{"idempotency_key": key}
			c.AbortWithStatusJSON(http.StatusConflict, resp)
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Release(context.WithoutCancel(ctx), storeKey); err != nil {
				logger.Warn("Failed to release idempotency key",
					zap.String("key", storeKey),
					zap.Error(err),
				)
			}
		}
	}
}
