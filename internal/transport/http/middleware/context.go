package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appLogger "github.com/harborlight-foundation/member-portal/internal/infra/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	// UserIDKey is the gin context key for the authenticated user id.
	UserIDKey = "user_id"
	// IsAdminKey is the gin context key for the authenticated admin flag.
	IsAdminKey = "is_admin"
)

// RequestID injects a correlation identifier into the context and headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, reqID)
		ctx := context.WithValue(c.Request.Context(), appLogger.RequestIDKey{}, reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CurrentUserID returns the authenticated user id stored by RequireAuth.
func CurrentUserID(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// CurrentUserIsAdmin reports the admin flag stored by RequireAuth.
func CurrentUserIsAdmin(c *gin.Context) bool {
	if v, ok := c.Get(IsAdminKey); ok {
		if admin, ok := v.(bool); ok {
			return admin
		}
	}
	return false
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(appLogger.RequestIDKey{}).(string); ok {
		return id
	}
	return ""
}
