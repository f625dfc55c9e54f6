package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

const usersTable = "portal.users"

var userColumns = []string{
	"id",
	"email",
	"name",
	"password_hash",
	"email_verified",
	"is_admin",
	"is_banned",
	"last_reset",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row. A duplicate email surfaces as
// repository.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	sql, args, err := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			user.ID,
			strings.ToLower(user.Email),
			user.Name,
			user.PasswordHash,
			user.EmailVerified,
			user.IsAdmin,
			user.IsBanned,
			user.LastReset,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	return r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		Where(squirrel.Expr("lower(email) = lower(?)", email)).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by email sql: %w", err)
	}

	return r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// List returns users matching the filter, newest first.
func (r *UserRepository) List(ctx context.Context, filter port.UserFilter) ([]domain.User, error) {
	query := r.builder.Select(userColumns...).
		From(usersTable).
		OrderBy("created_at DESC")

	if filter.EmailVerified != nil {
		query = query.Where(squirrel.Eq{"email_verified": *filter.EmailVerified})
	}
	if filter.IsBanned != nil {
		query = query.Where(squirrel.Eq{"is_banned": *filter.IsBanned})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUserFromRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpdateName renames the user.
func (r *UserRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.updateOne(ctx, id, map[string]any{"name": name})
}

// UpdatePassword replaces the hash and stamps last_reset in one statement so
// a token redeemed for a reset and the reset itself land together.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, resetAt time.Time) error {
	return r.updateOne(ctx, id, map[string]any{
		"password_hash": passwordHash,
		"last_reset":    resetAt,
	})
}

// MarkEmailVerified flips email_verified for a still-unverified user.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	sql, args, err := r.builder.Update(usersTable).
		Set("email_verified", true).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id, "email_verified": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build verify email sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// PromoteEmail swaps the primary email address. Uniqueness is rechecked by
// the database at promotion time; a collision surfaces as repository.ErrConflict.
func (r *UserRepository) PromoteEmail(ctx context.Context, id, newEmail string, verifiedAt time.Time) error {
	sql, args, err := r.builder.Update(usersTable).
		Set("email", strings.ToLower(newEmail)).
		Set("email_verified", true).
		Set("updated_at", verifiedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build promote email sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("promote email: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetBanned toggles the banned flag.
func (r *UserRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	return r.updateOne(ctx, id, map[string]any{"is_banned": banned})
}

// SetAdmin toggles the admin flag.
func (r *UserRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	return r.updateOne(ctx, id, map[string]any{"is_admin": admin})
}

// Delete removes the user row. Dependent tokens and hour entries cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.builder.Delete(usersTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *UserRepository) updateOne(ctx context.Context, id string, sets map[string]any) error {
	query := r.builder.Update(usersTable).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id})
	for column, value := range sets {
		query = query.Set(column, value)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *UserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	return scanUserFromRow(row)
}

func scanUserFromRow(row pgx.Row) (*domain.User, error) {
	var (
		user      domain.User
		lastReset *time.Time
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.EmailVerified,
		&user.IsAdmin,
		&user.IsBanned,
		&lastReset,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.LastReset = lastReset
	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
