package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

func hourEntryRows(entry domain.HourEntry) *pgxmock.Rows {
	return pgxmock.NewRows(hourColumns).AddRow(
		entry.ID,
		entry.UserID,
		entry.Activity,
		entry.Hours,
		entry.EntryDate,
		entry.Status,
		nullableString(entry.ReviewedBy),
		nullableTime(entry.ReviewedAt),
		entry.CreatedAt,
	)
}

func sampleEntry(now time.Time) domain.HourEntry {
	return domain.HourEntry{
		ID:        "entry-1",
		UserID:    "user-1",
		Activity:  "food bank sorting",
		Hours:     3.5,
		EntryDate: now.Truncate(24 * time.Hour),
		Status:    domain.HourEntryPending,
		CreatedAt: now,
	}
}

func TestHoursRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewHoursRepository(mock)

	now := time.Now().UTC()
	entry := sampleEntry(now)

	mock.ExpectExec(`INSERT INTO portal\.volunteer_hours`).
		WithArgs(
			entry.ID,
			entry.UserID,
			entry.Activity,
			entry.Hours,
			entry.EntryDate,
			entry.Status,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			entry.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHoursRepository_GetByID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewHoursRepository(mock)

	now := time.Now().UTC()
	entry := sampleEntry(now)

	mock.ExpectQuery(`SELECT .* FROM portal\.volunteer_hours WHERE id = \$1`).
		WithArgs("entry-1").
		WillReturnRows(hourEntryRows(entry))

	got, err := repo.GetByID(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.Activity != entry.Activity {
		t.Fatalf("expected activity %q, got %q", entry.Activity, got.Activity)
	}
	if got.ReviewedBy != nil || got.ReviewedAt != nil {
		t.Fatalf("expected unreviewed entry, got %v %v", got.ReviewedBy, got.ReviewedAt)
	}
}

func TestHoursRepository_GetByID_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewHoursRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM portal\.volunteer_hours`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(hourColumns))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHoursRepository_ListPending(t *testing.T) {
	mock := newMockPool(t)
	repo := NewHoursRepository(mock)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM portal\.volunteer_hours WHERE status = \$1 ORDER BY created_at ASC LIMIT 25`).
		WithArgs(domain.HourEntryPending).
		WillReturnRows(hourEntryRows(sampleEntry(now)))

	entries, err := repo.ListPending(context.Background(), 25)
	if err != nil {
		t.Fatalf("ListPending returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
}

func TestHoursRepository_SetStatus(t *testing.T) {
	mock := newMockPool(t)
	repo := NewHoursRepository(mock)

	at := time.Now().UTC()
	mock.ExpectExec(`UPDATE portal\.volunteer_hours SET status = \$1, reviewed_by = \$2, reviewed_at = \$3 WHERE id = \$4 AND status = \$5`).
		WithArgs(domain.HourEntryApproved, "admin-1", at, "entry-1", domain.HourEntryPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SetStatus(context.Background(), "entry-1", domain.HourEntryApproved, "admin-1", at)
	if err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
}

func TestHoursRepository_SetStatus_AlreadyModerated(t *testing.T) {
	mock := newMockPool(t)
	repo := NewHoursRepository(mock)

	mock.ExpectExec(`UPDATE portal\.volunteer_hours SET status`).
		WithArgs(domain.HourEntryRejected, "admin-1", pgxmock.AnyArg(), "entry-1", domain.HourEntryPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetStatus(context.Background(), "entry-1", domain.HourEntryRejected, "admin-1", time.Now().UTC())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
