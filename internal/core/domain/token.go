package domain

import "time"

// TokenFlow tags the lifecycle an account token belongs to. A user may hold
// at most one outstanding token per flow; issuing a new one revokes the
// predecessor.
type TokenFlow string

const (
	// FlowSignupVerification gates the initial email verification after signup.
	FlowSignupVerification TokenFlow = "signup_verification"
	// FlowPasswordReset gates the forgotten-password flow.
	FlowPasswordReset TokenFlow = "password_reset"
	// FlowEmailChange gates promotion of a pending new email address.
	FlowEmailChange TokenFlow = "email_change"
)

// TTL returns the validity window for freshly issued tokens of this flow.
func (f TokenFlow) TTL() time.Duration {
	if f == FlowPasswordReset {
		return time.Hour
	}
	return 24 * time.Hour
}

// Valid reports whether the flow tag is one the service issues.
func (f TokenFlow) Valid() bool {
	switch f {
	case FlowSignupVerification, FlowPasswordReset, FlowEmailChange:
		return true
	}
	return false
}

// AccountToken is a single-use, time-bounded secret persisted only as a
// SHA-256 hash. The raw value exists solely in the emailed link and in the
// redeeming request.
type AccountToken struct {
	ID        string
	UserID    string
	TokenHash string
	Flow      TokenFlow
	NewEmail  *string
	IP        *string
	UserAgent *string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
	RevokedAt *time.Time
	Metadata  map[string]any
}

// IsExpired reports whether the token has elapsed its validity window.
func (t AccountToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// Outstanding reports whether the token can still be redeemed at the given time.
func (t AccountToken) Outstanding(at time.Time) bool {
	return t.UsedAt == nil && t.RevokedAt == nil && !t.IsExpired(at)
}
