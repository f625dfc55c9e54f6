package domain

import "time"

// UserRegisteredEvent announces a newly created, not-yet-verified account.
type UserRegisteredEvent struct {
	EventID      string         `json:"event_id"`
	UserID       string         `json:"user_id"`
	Email        string         `json:"email"`
	Name         string         `json:"name"`
	RegisteredAt time.Time      `json:"registered_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// PasswordChangedEvent announces a password change or reset.
type PasswordChangedEvent struct {
	EventID   string         `json:"event_id"`
	UserID    string         `json:"user_id"`
	ChangedAt time.Time      `json:"changed_at"`
	ChangedBy string         `json:"changed_by"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// EmailChangedEvent announces promotion of a pending email to primary.
type EmailChangedEvent struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	OldEmail  string    `json:"old_email"`
	NewEmail  string    `json:"new_email"`
	ChangedAt time.Time `json:"changed_at"`
}

// UserDeletedEvent announces removal of an account and its dependent records.
type UserDeletedEvent struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	DeletedAt time.Time `json:"deleted_at"`
}
