package domain

import "time"

// User mirrors the persisted representation in the users table.
type User struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string
	EmailVerified bool
	IsAdmin       bool
	IsBanned      bool
	LastReset     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanLogin reports whether the account may be issued a session.
// Callers decide how much of the reason to reveal; the portal collapses
// every failure into a single generic credentials error.
func (u User) CanLogin() bool {
	return !u.IsBanned && u.EmailVerified
}

// Sanitized returns a copy safe to hand to transport layers.
func (u User) Sanitized() User {
	clone := u
	clone.PasswordHash = ""
	return clone
}
