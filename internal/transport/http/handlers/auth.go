package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborlight-foundation/member-portal/internal/usecase"
)

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	auth *usecase.AuthService
}

func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login checks credentials and answers a session token. Every failure mode
// shares one 401 response.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("email and password are required"))
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, OK("login successful", LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      NewUserPayload(session.User),
	}))
}
