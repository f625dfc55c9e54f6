package handlers

import (
	"time"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
)

// Envelope is the uniform response wrapper for every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK wraps a successful payload.
func OK(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// Fail wraps an error message.
func Fail(message string) Envelope {
	return Envelope{Success: false, Error: message}
}

// SignupRequest defines the signup payload.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ActivateRequest carries the signup verification payload.
type ActivateRequest struct {
	Email string `json:"email" binding:"required"`
	Token string `json:"token" binding:"required"`
}

// ResendActivationRequest asks for a fresh activation link.
type ResendActivationRequest struct {
	Email string `json:"email" binding:"required"`
}

// LoginRequest defines the login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the successful login payload.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserPayload `json:"user"`
}

// ResetRequestRequest asks for a password reset link.
type ResetRequestRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetValidateRequest pre-checks a reset token.
type ResetValidateRequest struct {
	Email string `json:"email" binding:"required"`
	Token string `json:"token" binding:"required"`
}

// ResetCompleteRequest finalizes a password reset.
type ResetCompleteRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Token    string `json:"token" binding:"required"`
}

// ChangePasswordRequest updates the password of an authenticated user.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// UpdateEmailRequest starts an email change.
type UpdateEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// UpdateNameRequest renames the account.
type UpdateNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// SubmitHoursRequest records volunteer hours.
type SubmitHoursRequest struct {
	Activity  string  `json:"activity" binding:"required"`
	Hours     float64 `json:"hours" binding:"required"`
	EntryDate string  `json:"entry_date" binding:"required"`
}

// UserPayload is the public view of an account.
type UserPayload struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	EmailVerified bool       `json:"email_verified"`
	IsAdmin       bool       `json:"is_admin"`
	IsBanned      bool       `json:"is_banned"`
	LastReset     *time.Time `json:"last_reset,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewUserPayload converts a domain user for transport.
func NewUserPayload(user domain.User) UserPayload {
	return UserPayload{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		EmailVerified: user.EmailVerified,
		IsAdmin:       user.IsAdmin,
		IsBanned:      user.IsBanned,
		LastReset:     user.LastReset,
		CreatedAt:     user.CreatedAt,
	}
}

// HourEntryPayload is the public view of a volunteer-hour entry.
type HourEntryPayload struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Activity   string     `json:"activity"`
	Hours      float64    `json:"hours"`
	EntryDate  string     `json:"entry_date"`
	Status     string     `json:"status"`
	ReviewedBy *string    `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewHourEntryPayload converts a domain hour entry for transport.
func NewHourEntryPayload(entry domain.HourEntry) HourEntryPayload {
	return HourEntryPayload{
		ID:         entry.ID,
		UserID:     entry.UserID,
		Activity:   entry.Activity,
		Hours:      entry.Hours,
		EntryDate:  entry.EntryDate.Format("2006-01-02"),
		Status:     string(entry.Status),
		ReviewedBy: entry.ReviewedBy,
		ReviewedAt: entry.ReviewedAt,
		CreatedAt:  entry.CreatedAt,
	}
}

// NewHourEntryPayloads converts a slice of entries.
func NewHourEntryPayloads(entries []domain.HourEntry) []HourEntryPayload {
	payloads := make([]HourEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, NewHourEntryPayload(entry))
	}
	return payloads
}
