package port

import (
	"context"
	"time"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
)

// HoursRepository persists volunteer-hour entries.
type HoursRepository interface {
	Create(ctx context.Context, entry domain.HourEntry) error
	GetByID(ctx context.Context, id string) (*domain.HourEntry, error)
	ListByUser(ctx context.Context, userID string) ([]domain.HourEntry, error)
	ListPending(ctx context.Context, limit int) ([]domain.HourEntry, error)
	// SetStatus transitions a pending entry; repository.ErrNotFound when the
	// entry is missing or already moderated.
	SetStatus(ctx context.Context, id string, status domain.HourEntryStatus, reviewedBy string, at time.Time) error
}
