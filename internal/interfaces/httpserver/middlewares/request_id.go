package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qc-vision/backend/internal/utils/platformerrors"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request an id, honoring one supplied by the
// caller, and binds it to the request context and a request-scoped logger.
func RequestID(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		ctx := platformerrors.WithRequestID(c.Request.Context(), requestID)
		reqLog := log.With().Str("request_id", requestID).Logger()
		ctx = reqLog.WithContext(ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
