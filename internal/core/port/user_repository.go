package port

import (
	"context"
	"time"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
)

// UserFilter narrows user listings for admin views.
type UserFilter struct {
	EmailVerified *bool
	IsBanned      *bool
	Limit         int
	Offset        int
}

// UserRepository persists user records.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	UpdateName(ctx context.Context, id, name string) error
	// UpdatePassword replaces the hash and stamps last_reset in one statement.
	UpdatePassword(ctx context.Context, id, passwordHash string, resetAt time.Time) error
	// MarkEmailVerified flips email_verified for an unverified user. Returns
	// repository.ErrNotFound when the user is missing or already verified so
	// redemption stays idempotence-safe.
	MarkEmailVerified(ctx context.Context, id string) error
	// PromoteEmail swaps the primary email. The uniqueness recheck happens in
	// the database: a unique-violation surfaces as repository.ErrConflict.
	PromoteEmail(ctx context.Context, id, newEmail string, verifiedAt time.Time) error
	SetBanned(ctx context.Context, id string, banned bool) error
	SetAdmin(ctx context.Context, id string, admin bool) error
	Delete(ctx context.Context, id string) error
}
