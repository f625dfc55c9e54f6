package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborlight-foundation/member-portal/internal/transport/http/middleware"
	"github.com/harborlight-foundation/member-portal/internal/usecase"
)

// PasswordHandler exposes the forgotten-password flow and authenticated
// password changes.
type PasswordHandler struct {
	passwords *usecase.PasswordService
}

func NewPasswordHandler(passwords *usecase.PasswordService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords}
}

// RequestReset issues a reset link. The response is the same whether or not
// the address exists.
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req ResetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("email is required"))
		return
	}

	if err := h.passwords.RequestReset(c.Request.Context(), req.Email, c.ClientIP(), c.Request.UserAgent()); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "email is required"},
		}, http.StatusInternalServerError, "reset request failed")
		return
	}

	c.JSON(http.StatusCreated, OK("if the address is registered, a reset link has been sent", nil))
}

// ValidateReset pre-checks a reset token so the frontend can gate the
// new-password form.
func (h *PasswordHandler) ValidateReset(c *gin.Context) {
	var req ResetValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("email and token are required"))
		return
	}

	if err := h.passwords.ValidateResetToken(c.Request.Context(), req.Email, req.Token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTokenInvalid, Status: http.StatusBadRequest, Message: "invalid or expired token"},
			{Err: usecase.ErrTokenExpired, Status: http.StatusBadRequest, Message: "invalid or expired token"},
		}, http.StatusInternalServerError, "token validation failed")
		return
	}

	c.JSON(http.StatusOK, OK("token is valid", nil))
}

// CompleteReset redeems the token and installs the new password.
func (h *PasswordHandler) CompleteReset(c *gin.Context) {
	var req ResetCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("email, password, and token are required"))
		return
	}

	if err := h.passwords.CompleteReset(c.Request.Context(), req.Email, req.Token, req.Password); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "invalid reset payload"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrTokenInvalid, Status: http.StatusBadRequest, Message: "invalid or expired token"},
			{Err: usecase.ErrTokenExpired, Status: http.StatusBadRequest, Message: "invalid or expired token"},
		}, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.Status(http.StatusNoContent)
}

// ChangePassword updates the password for the authenticated user.
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("oldPassword and newPassword are required"))
		return
	}

	userID := middleware.CurrentUserID(c)
	if err := h.passwords.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "invalid payload"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrWrongPassword, Status: http.StatusBadRequest, Message: "current password incorrect"},
		}, http.StatusInternalServerError, "password change failed")
		return
	}

	c.JSON(http.StatusOK, OK("password changed", nil))
}
