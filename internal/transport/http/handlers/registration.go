package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborlight-foundation/member-portal/internal/usecase"
)

// RegistrationHandler exposes signup and activation endpoints.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// Signup creates an unverified account and emails the activation link. A
// duplicate address answers 409; this is the one place account existence is
// documented to leak.
func (h *RegistrationHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("email, name, and password are required"))
		return
	}

	user, err := h.registration.Signup(c.Request.Context(), usecase.SignupInput{
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "invalid signup payload"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
		}, http.StatusInternalServerError, "signup failed")
		return
	}

	c.JSON(http.StatusCreated, OK("verification email sent", NewUserPayload(*user)))
}

// Resend issues a fresh activation token. The response is the same whether
// or not the address belongs to an unverified account.
func (h *RegistrationHandler) Resend(c *gin.Context) {
	var req ResendActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("email is required"))
		return
	}

	if err := h.registration.ResendActivation(c.Request.Context(), req.Email, c.ClientIP(), c.Request.UserAgent()); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "email is required"},
		}, http.StatusInternalServerError, "resend failed")
		return
	}

	c.JSON(http.StatusAccepted, OK("if the account exists, a new verification email was sent", nil))
}

// Activate redeems the emailed verification token.
func (h *RegistrationHandler) Activate(c *gin.Context) {
	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("email and token are required"))
		return
	}

	if err := h.registration.Activate(c.Request.Context(), req.Email, req.Token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "email and token are required"},
			{Err: usecase.ErrTokenInvalid, Status: http.StatusBadRequest, Message: "invalid or expired token"},
			{Err: usecase.ErrTokenExpired, Status: http.StatusBadRequest, Message: "invalid or expired token"},
			{Err: usecase.ErrAlreadyVerified, Status: http.StatusConflict, Message: "account already verified"},
		}, http.StatusInternalServerError, "activation failed")
		return
	}

	c.Status(http.StatusNoContent)
}
