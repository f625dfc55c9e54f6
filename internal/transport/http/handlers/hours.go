package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harborlight-foundation/member-portal/internal/transport/http/middleware"
	"github.com/harborlight-foundation/member-portal/internal/usecase"
)

// HoursHandler exposes volunteer-hour submission and listing for members.
type HoursHandler struct {
	hours *usecase.HoursService
}

func NewHoursHandler(hours *usecase.HoursService) *HoursHandler {
	return &HoursHandler{hours: hours}
}

// Submit records a pending hour entry.
func (h *HoursHandler) Submit(c *gin.Context) {
	var req SubmitHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Fail("activity, hours, and entry_date are required"))
		return
	}

	entryDate, err := time.Parse("2006-01-02", req.EntryDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Fail("entry_date must be YYYY-MM-DD"))
		return
	}

	entry, err := h.hours.Submit(c.Request.Context(), usecase.SubmitInput{
		UserID:    middleware.CurrentUserID(c),
		Activity:  req.Activity,
		Hours:     req.Hours,
		EntryDate: entryDate,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "invalid hour entry"},
		}, http.StatusInternalServerError, "hour submission failed")
		return
	}

	c.JSON(http.StatusCreated, OK("hours submitted for review", NewHourEntryPayload(*entry)))
}

// List returns the member's own entries.
func (h *HoursHandler) List(c *gin.Context) {
	entries, err := h.hours.ListForUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Fail("hour listing failed"))
		return
	}

	c.JSON(http.StatusOK, OK("", NewHourEntryPayloads(entries)))
}
