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

const tokensTable = "portal.account_tokens"

var tokenColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"flow",
	"new_email",
	"ip",
	"user_agent",
	"created_at",
	"expires_at",
	"used_at",
	"revoked_at",
	"metadata",
}

// TokenRepository implements port.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a new token repository.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	repo := &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account token record.
func (r *TokenRepository) Create(ctx context.Context, token domain.AccountToken) error {
	metadata, err := marshalMetadata(token.Metadata)
	if err != nil {
		return fmt.Errorf("prepare token metadata: %w", err)
	}

	stmt, args, err := r.builder.Insert(tokensTable).
		Columns(tokenColumns...).
		Values(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.Flow,
			token.NewEmail,
			token.IP,
			token.UserAgent,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
			token.RevokedAt,
			metadata,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// GetByHash retrieves a token of the given flow by its hashed value.
func (r *TokenRepository) GetByHash(ctx context.Context, flow domain.TokenFlow, hash string) (*domain.AccountToken, error) {
	stmt, args, err := r.builder.Select(tokenColumns...).
		From(tokensTable).
		Where(squirrel.Eq{"flow": flow, "token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	return scanToken(r.exec.QueryRow(ctx, stmt, args...))
}

// GetOutstanding returns the single redeemable token for a user and flow.
func (r *TokenRepository) GetOutstanding(ctx context.Context, userID string, flow domain.TokenFlow) (*domain.AccountToken, error) {
	stmt, args, err := r.builder.Select(tokenColumns...).
		From(tokensTable).
		Where(squirrel.Eq{"user_id": userID, "flow": flow}).
		Where("used_at IS NULL").
		Where("revoked_at IS NULL").
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select outstanding token sql: %w", err)
	}

	return scanToken(r.exec.QueryRow(ctx, stmt, args...))
}

// Consume marks a token used iff it is still unused and unrevoked. The
// conditional update guarantees at most one of any set of concurrent
// redeemers succeeds; the rest observe zero affected rows.
func (r *TokenRepository) Consume(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update(tokensTable).
		Set("used_at", at.UTC()).
		Where(squirrel.Eq{"id": id}).
		Where("used_at IS NULL").
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RevokeOutstanding invalidates every redeemable token for a user and flow.
func (r *TokenRepository) RevokeOutstanding(ctx context.Context, userID string, flow domain.TokenFlow, at time.Time) (int, error) {
	stmt, args, err := r.builder.Update(tokensTable).
		Set("revoked_at", at.UTC()).
		Where(squirrel.Eq{"user_id": userID, "flow": flow}).
		Where("used_at IS NULL").
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

func scanToken(row pgx.Row) (*domain.AccountToken, error) {
	var (
		token     domain.AccountToken
		newEmail  sql.NullString
		ip        sql.NullString
		userAgent sql.NullString
		usedAt    sql.NullTime
		revokedAt sql.NullTime
		metadata  []byte
	)

	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.Flow,
		&newEmail,
		&ip,
		&userAgent,
		&token.CreatedAt,
		&token.ExpiresAt,
		&usedAt,
		&revokedAt,
		&metadata,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	if newEmail.Valid {
		value := newEmail.String
		token.NewEmail = &value
	}
	if ip.Valid {
		value := ip.String
		token.IP = &value
	}
	if userAgent.Valid {
		value := userAgent.String
		token.UserAgent = &value
	}
	if usedAt.Valid {
		t := usedAt.Time
		token.UsedAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		token.RevokedAt = &t
	}
	if len(metadata) > 0 {
		meta, err := unmarshalMetadata(metadata)
		if err != nil {
			return nil, fmt.Errorf("unmarshal token metadata: %w", err)
		}
		token.Metadata = meta
	}

	return &token, nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
