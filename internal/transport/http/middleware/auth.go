package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborlight-foundation/member-portal/internal/infra/security"
)

// envelope mirrors the handlers response shape so middleware failures look
// identical to handler failures on the wire.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func failure(message string) envelope {
	return envelope{Success: false, Error: message}
}

// TokenValidator parses session tokens into claims.
type TokenValidator interface {
	Validate(token string) (*security.SessionClaims, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// RequireAuth validates the Authorization header and stores the user claims.
// Every failure answers 401.
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, failure("missing or malformed authorization header"))
			return
		}

		claims, err := validator.Validate(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredSessionToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, failure("session expired"))
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, failure("invalid session token"))
			}
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(IsAdminKey, claims.IsAdmin)

		c.Next()
	}
}

// RequireAdmin guards admin routes. A missing or unparseable token answers
// 401; a token that parsed but is expired, or belongs to a non-admin,
// answers 403. The split tells legitimate clients to re-authenticate while
// still refusing the request.
func RequireAdmin(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, failure("missing or malformed authorization header"))
			return
		}

		claims, err := validator.Validate(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredSessionToken):
				c.AbortWithStatusJSON(http.StatusForbidden, failure("session expired"))
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, failure("invalid session token"))
			}
			return
		}

		if !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, failure("admin access required"))
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(IsAdminKey, claims.IsAdmin)

		c.Next()
	}
}
