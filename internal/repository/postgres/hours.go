package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

const hoursTable = "portal.volunteer_hours"

var hourColumns = []string{
	"id",
	"user_id",
	"activity",
	"hours",
	"entry_date",
	"status",
	"reviewed_by",
	"reviewed_at",
	"created_at",
}

// HoursRepository implements port.HoursRepository using PostgreSQL.
type HoursRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewHoursRepository constructs a volunteer-hours repository.
func NewHoursRepository(exec pgExecutor) *HoursRepository {
	repo := &HoursRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *HoursRepository) WithTx(tx pgx.Tx) *HoursRepository {
	if tx == nil {
		return r
	}
	return &HoursRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new hour entry.
func (r *HoursRepository) Create(ctx context.Context, entry domain.HourEntry) error {
	stmt, args, err := r.builder.Insert(hoursTable).
		Columns(hourColumns...).
		Values(
			entry.ID,
			entry.UserID,
			entry.Activity,
			entry.Hours,
			entry.EntryDate,
			entry.Status,
			entry.ReviewedBy,
			entry.ReviewedAt,
			entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert hour entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert hour entry: %w", err)
	}

	return nil
}

// GetByID retrieves a single entry.
func (r *HoursRepository) GetByID(ctx context.Context, id string) (*domain.HourEntry, error) {
	stmt, args, err := r.builder.Select(hourColumns...).
		From(hoursTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select hour entry sql: %w", err)
	}

	return scanHourEntry(r.exec.QueryRow(ctx, stmt, args...))
}

// ListByUser returns all entries for a member, newest first.
func (r *HoursRepository) ListByUser(ctx context.Context, userID string) ([]domain.HourEntry, error) {
	stmt, args, err := r.builder.Select(hourColumns...).
		From(hoursTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("entry_date DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list hour entries sql: %w", err)
	}

	return r.queryEntries(ctx, stmt, args)
}

// ListPending returns unmoderated entries, oldest first so the review queue
// is worked in submission order.
func (r *HoursRepository) ListPending(ctx context.Context, limit int) ([]domain.HourEntry, error) {
	query := r.builder.Select(hourColumns...).
		From(hoursTable).
		Where(squirrel.Eq{"status": domain.HourEntryPending}).
		OrderBy("created_at ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list pending hour entries sql: %w", err)
	}

	return r.queryEntries(ctx, stmt, args)
}

// SetStatus transitions a pending entry to approved or rejected. Entries
// already moderated are left untouched and reported as not found.
func (r *HoursRepository) SetStatus(ctx context.Context, id string, status domain.HourEntryStatus, reviewedBy string, at time.Time) error {
	stmt, args, err := r.builder.Update(hoursTable).
		Set("status", status).
		Set("reviewed_by", reviewedBy).
		Set("reviewed_at", at.UTC()).
		Where(squirrel.Eq{"id": id, "status": domain.HourEntryPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build moderate hour entry sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("moderate hour entry: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *HoursRepository) queryEntries(ctx context.Context, stmt string, args []any) ([]domain.HourEntry, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query hour entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.HourEntry
	for rows.Next() {
		entry, err := scanHourEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hour entries: %w", err)
	}

	return entries, nil
}

func scanHourEntry(row pgx.Row) (*domain.HourEntry, error) {
	var (
		entry      domain.HourEntry
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
	)

	if err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Activity,
		&entry.Hours,
		&entry.EntryDate,
		&entry.Status,
		&reviewedBy,
		&reviewedAt,
		&entry.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan hour entry: %w", err)
	}

	if reviewedBy.Valid {
		value := reviewedBy.String
		entry.ReviewedBy = &value
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		entry.ReviewedAt = &t
	}

	return &entry, nil
}

var _ port.HoursRepository = (*HoursRepository)(nil)
