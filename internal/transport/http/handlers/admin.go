package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/transport/http/middleware"
	"github.com/harborlight-foundation/member-portal/internal/usecase"
)

// AdminHandler exposes account administration and hour moderation.
type AdminHandler struct {
	users *usecase.UserService
	hours *usecase.HoursService
}

func NewAdminHandler(users *usecase.UserService, hours *usecase.HoursService) *AdminHandler {
	return &AdminHandler{users: users, hours: hours}
}

// ListUsers returns accounts, optionally filtered by verification or ban state.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	filter := port.UserFilter{Limit: 100}

	if v := c.Query("verified"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			filter.EmailVerified = &parsed
		}
	}
	if v := c.Query("banned"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			filter.IsBanned = &parsed
		}
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			filter.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			filter.Offset = parsed
		}
	}

	users, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Fail("user listing failed"))
		return
	}

	payloads := make([]UserPayload, 0, len(users))
	for _, user := range users {
		payloads = append(payloads, NewUserPayload(user))
	}

	c.JSON(http.StatusOK, OK("", payloads))
}

func (h *AdminHandler) setBanned(c *gin.Context, banned bool) {
	if err := h.users.SetBanned(c.Request.Context(), c.Param("id"), banned); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "ban update failed")
		return
	}

	message := "user unbanned"
	if banned {
		message = "user banned"
	}
	c.JSON(http.StatusOK, OK(message, nil))
}

// BanUser bans the account, which blocks future logins.
func (h *AdminHandler) BanUser(c *gin.Context) { h.setBanned(c, true) }

// UnbanUser lifts a ban.
func (h *AdminHandler) UnbanUser(c *gin.Context) { h.setBanned(c, false) }

func (h *AdminHandler) setAdmin(c *gin.Context, admin bool) {
	if err := h.users.SetAdmin(c.Request.Context(), c.Param("id"), admin); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "admin update failed")
		return
	}

	message := "admin access revoked"
	if admin {
		message = "admin access granted"
	}
	c.JSON(http.StatusOK, OK(message, nil))
}

// PromoteUser grants admin access.
func (h *AdminHandler) PromoteUser(c *gin.Context) { h.setAdmin(c, true) }

// DemoteUser revokes admin access.
func (h *AdminHandler) DemoteUser(c *gin.Context) { h.setAdmin(c, false) }

// DeleteUser removes an account and its dependent records.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "account deletion failed")
		return
	}

	c.Status(http.StatusNoContent)
}

// PendingHours returns the moderation queue in submission order.
func (h *AdminHandler) PendingHours(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	entries, err := h.hours.ListPending(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Fail("pending hour listing failed"))
		return
	}

	c.JSON(http.StatusOK, OK("", NewHourEntryPayloads(entries)))
}

func (h *AdminHandler) moderate(c *gin.Context, approve bool) {
	reviewer := middleware.CurrentUserID(c)
	if err := h.hours.Moderate(c.Request.Context(), c.Param("id"), reviewer, approve); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEntryNotFound, Status: http.StatusNotFound, Message: "hour entry not found"},
		}, http.StatusInternalServerError, "moderation failed")
		return
	}

	message := "hours rejected"
	if approve {
		message = "hours approved"
	}
	c.JSON(http.StatusOK, OK(message, nil))
}

// ApproveHours approves a pending entry.
func (h *AdminHandler) ApproveHours(c *gin.Context) { h.moderate(c, true) }

// RejectHours rejects a pending entry.
func (h *AdminHandler) RejectHours(c *gin.Context) { h.moderate(c, false) }
