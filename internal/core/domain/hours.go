package domain

import "time"

// HourEntryStatus enumerates the moderation states of a volunteer-hour entry.
type HourEntryStatus string

const (
	HourEntryPending  HourEntryStatus = "pending"
	HourEntryApproved HourEntryStatus = "approved"
	HourEntryRejected HourEntryStatus = "rejected"
)

// HourEntry records volunteer hours submitted by a member. Entries reference
// the owning user by id so account deletion cascades and email changes never
// touch this table.
type HourEntry struct {
	ID         string
	UserID     string
	Activity   string
	Hours      float64
	EntryDate  time.Time
	Status     HourEntryStatus
	ReviewedBy *string
	ReviewedAt *time.Time
	CreatedAt  time.Time
}
