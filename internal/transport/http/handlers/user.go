package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborlight-foundation/member-portal/internal/transport/http/middleware"
	"github.com/harborlight-foundation/member-portal/internal/usecase"
)

// UserHandler exposes profile endpoints for the authenticated member.
type UserHandler struct {
	users *usecase.UserService
}

func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me returns the current profile.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "profile lookup failed")
		return
	}

	c.JSON(http.StatusOK, OK("", NewUserPayload(*user)))
}

// UpdateMe renames the current account.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req UpdateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("name is required"))
		return
	}

	userID := middleware.CurrentUserID(c)
	if err := h.users.UpdateName(c.Request.Context(), userID, req.Name); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "name is required"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "profile update failed")
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Fail("profile lookup failed"))
		return
	}

	c.JSON(http.StatusOK, OK("profile updated", NewUserPayload(*user)))
}

// DeleteMe removes the current account. Tokens and hour entries cascade.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "account deletion failed")
		return
	}

	c.Status(http.StatusNoContent)
}
