package port

import (
	"context"
	"time"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
)

// TokenRepository persists single-use account tokens for all three flows.
type TokenRepository interface {
	Create(ctx context.Context, token domain.AccountToken) error
	GetByHash(ctx context.Context, flow domain.TokenFlow, hash string) (*domain.AccountToken, error)
	// GetOutstanding returns the one redeemable token for a user+flow, if any.
	GetOutstanding(ctx context.Context, userID string, flow domain.TokenFlow) (*domain.AccountToken, error)
	// Consume marks a token used iff it is still unused and unrevoked. Exactly
	// one of any set of concurrent callers observes success; the rest get
	// repository.ErrNotFound.
	Consume(ctx context.Context, id string, at time.Time) error
	// RevokeOutstanding invalidates every redeemable token for a user+flow and
	// returns how many were revoked.
	RevokeOutstanding(ctx context.Context, userID string, flow domain.TokenFlow, at time.Time) (int, error)
}
