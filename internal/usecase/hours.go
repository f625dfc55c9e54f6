package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

// ErrEntryNotFound indicates the hour entry is missing or already moderated.
var ErrEntryNotFound = errors.New("hour entry not found")

const maxHoursPerEntry = 24

// HoursService records and moderates volunteer hours.
type HoursService struct {
	hours  port.HoursRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewHoursService constructs an hours service.
func NewHoursService(hours port.HoursRepository, log *zap.Logger) *HoursService {
	if log == nil {
		log = zap.NewNop()
	}
	return &HoursService{
		hours:  hours,
		logger: log,
		now:    time.Now,
	}
}

// SubmitInput carries a member's hour submission.
type SubmitInput struct {
	UserID    string
	Activity  string
	Hours     float64
	EntryDate time.Time
}

// Submit records a pending hour entry for moderation.
func (s *HoursService) Submit(ctx context.Context, input SubmitInput) (*domain.HourEntry, error) {
	activity := strings.TrimSpace(input.Activity)
	if activity == "" {
		return nil, fmt.Errorf("%w: activity is required", ErrValidation)
	}
	if input.Hours <= 0 || input.Hours > maxHoursPerEntry {
		return nil, fmt.Errorf("%w: hours must be between 0 and %d", ErrValidation, maxHoursPerEntry)
	}
	if input.EntryDate.IsZero() {
		return nil, fmt.Errorf("%w: entry date is required", ErrValidation)
	}
	now := s.now().UTC()
	if input.EntryDate.After(now) {
		return nil, fmt.Errorf("%w: entry date cannot be in the future", ErrValidation)
	}

	entry := domain.HourEntry{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		Activity:  activity,
		Hours:     input.Hours,
		EntryDate: input.EntryDate,
		Status:    domain.HourEntryPending,
		CreatedAt: now,
	}

	if err := s.hours.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create hour entry: %w", err)
	}

	s.logger.Info("hours submitted",
		zap.String("user_id", entry.UserID),
		zap.Float64("hours", entry.Hours),
	)

	return &entry, nil
}

// ListForUser returns a member's entries, newest first.
func (s *HoursService) ListForUser(ctx context.Context, userID string) ([]domain.HourEntry, error) {
	entries, err := s.hours.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list hour entries: %w", err)
	}
	return entries, nil
}

// ListPending returns the moderation queue in submission order.
func (s *HoursService) ListPending(ctx context.Context, limit int) ([]domain.HourEntry, error) {
	entries, err := s.hours.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending hour entries: %w", err)
	}
	return entries, nil
}

// Moderate approves or rejects a pending entry. Entries already moderated
// report ErrEntryNotFound so double moderation is harmless.
func (s *HoursService) Moderate(ctx context.Context, entryID, reviewerID string, approve bool) error {
	status := domain.HourEntryRejected
	if approve {
		status = domain.HourEntryApproved
	}

	if err := s.hours.SetStatus(ctx, entryID, status, reviewerID, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("moderate hour entry: %w", err)
	}

	s.logger.Info("hour entry moderated",
		zap.String("entry_id", entryID),
		zap.String("reviewer_id", reviewerID),
		zap.String("status", string(status)),
	)
	return nil
}
