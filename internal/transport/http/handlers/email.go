package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborlight-foundation/member-portal/internal/transport/http/middleware"
	"github.com/harborlight-foundation/member-portal/internal/usecase"
)

// EmailChangeHandler exposes the two-step email replacement.
type EmailChangeHandler struct {
	emailChange *usecase.EmailChangeService
}

func NewEmailChangeHandler(emailChange *usecase.EmailChangeService) *EmailChangeHandler {
	return &EmailChangeHandler{emailChange: emailChange}
}

// RequestUpdate stores a pending address and mails the confirmation link to it.
func (h *EmailChangeHandler) RequestUpdate(c *gin.Context) {
	var req UpdateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("email is required"))
		return
	}

	userID := middleware.CurrentUserID(c)
	if err := h.emailChange.Request(c.Request.Context(), userID, req.Email, c.ClientIP(), c.Request.UserAgent()); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "invalid email address"},
			{Err: usecase.ErrSameEmail, Status: http.StatusBadRequest, Message: "new email matches current email"},
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
		}, http.StatusInternalServerError, "email change request failed")
		return
	}

	c.JSON(http.StatusOK, OK("verification email sent to new address", nil))
}

// ConfirmUpdate redeems the token from the emailed link and promotes the
// pending address.
func (h *EmailChangeHandler) ConfirmUpdate(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, Fail("token is required"))
		return
	}

	user, err := h.emailChange.Confirm(c.Request.Context(), token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTokenInvalid, Status: http.StatusBadRequest, Message: "invalid or expired token"},
			{Err: usecase.ErrTokenExpired, Status: http.StatusBadRequest, Message: "invalid or expired token"},
			{Err: usecase.ErrEmailChangeConflict, Status: http.StatusConflict, Message: "email no longer available"},
		}, http.StatusInternalServerError, "email change failed")
		return
	}

	c.JSON(http.StatusOK, OK("email updated", NewUserPayload(*user)))
}
