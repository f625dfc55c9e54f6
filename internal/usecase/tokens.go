package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/infra/security"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

var (
	// ErrTokenInvalid indicates the supplied token is unknown, already used,
	// or superseded by a newer one. Callers present all three identically.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates the token exists but its window has elapsed.
	ErrTokenExpired = errors.New("token expired")
)

// IssuedToken pairs the raw secret, which exists only here and in the email
// that carries it, with the persisted record.
type IssuedToken struct {
	Raw    string
	Record domain.AccountToken
}

// IssueOptions attaches optional request context to a new token.
type IssueOptions struct {
	NewEmail  string
	IP        string
	UserAgent string
	Metadata  map[string]any
}

// TokenService is the single issuer and redeemer for every account-token
// flow. Flow differences (TTL, which mutation a redemption authorizes) are
// parameters, not separate code paths.
type TokenService struct {
	tokens port.TokenRepository
	uow    port.UnitOfWork
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenService constructs a token service.
func NewTokenService(tokens port.TokenRepository, uow port.UnitOfWork, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		tokens: tokens,
		uow:    uow,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the clock, primarily for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

// Issue mints a fresh token for the user and flow. Any outstanding token for
// the same pair is revoked first, so at most one redeemable token exists per
// user and flow at any time.
func (s *TokenService) Issue(ctx context.Context, userID string, flow domain.TokenFlow, opts IssueOptions) (*IssuedToken, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if !flow.Valid() {
		return nil, fmt.Errorf("unknown token flow %q", flow)
	}

	now := s.now().UTC()

	revoked, err := s.tokens.RevokeOutstanding(ctx, userID, flow, now)
	if err != nil {
		return nil, fmt.Errorf("revoke outstanding tokens: %w", err)
	}
	if revoked > 0 {
		s.logger.Debug("superseded outstanding tokens",
			zap.String("user_id", userID),
			zap.String("flow", string(flow)),
			zap.Int("revoked", revoked),
		)
	}

	raw, err := security.GenerateSecureToken(security.TokenByteLength)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	record := domain.AccountToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: security.HashToken(raw),
		Flow:      flow,
		CreatedAt: now,
		ExpiresAt: now.Add(flow.TTL()),
		Metadata:  opts.Metadata,
	}
	if opts.NewEmail != "" {
		record.NewEmail = &opts.NewEmail
	}
	if opts.IP != "" {
		record.IP = &opts.IP
	}
	if opts.UserAgent != "" {
		record.UserAgent = &opts.UserAgent
	}

	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}

	return &IssuedToken{Raw: raw, Record: record}, nil
}

// Redeem consumes a token and applies the mutation it authorizes within one
// transaction. The conditional consume makes concurrent redemptions of the
// same token race safely: exactly one wins, the rest see ErrTokenInvalid.
// If mutate fails, the consume rolls back and the token stays redeemable.
func (s *TokenService) Redeem(ctx context.Context, flow domain.TokenFlow, raw string, mutate func(repos port.RepoSet, token domain.AccountToken) error) (*domain.AccountToken, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	hash := security.HashToken(raw)
	now := s.now().UTC()

	var redeemed *domain.AccountToken
	err := s.uow.Do(ctx, func(repos port.RepoSet) error {
		token, err := repos.Tokens.GetByHash(ctx, flow, hash)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTokenInvalid
			}
			return fmt.Errorf("load token: %w", err)
		}

		if token.UsedAt != nil || token.RevokedAt != nil {
			return ErrTokenInvalid
		}
		if token.IsExpired(now) {
			return ErrTokenExpired
		}

		if err := repos.Tokens.Consume(ctx, token.ID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTokenInvalid
			}
			return fmt.Errorf("consume token: %w", err)
		}

		if err := mutate(repos, *token); err != nil {
			return err
		}

		redeemed = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	return redeemed, nil
}

// InTransaction runs fn against transactional repositories, for mutations
// that must land atomically with token bookkeeping.
func (s *TokenService) InTransaction(ctx context.Context, fn func(repos port.RepoSet) error) error {
	return s.uow.Do(ctx, fn)
}

// RevokeOutstanding invalidates every redeemable token for the user and flow.
func (s *TokenService) RevokeOutstanding(ctx context.Context, userID string, flow domain.TokenFlow) (int, error) {
	return s.tokens.RevokeOutstanding(ctx, userID, flow, s.now().UTC())
}

// Peek validates a token without consuming it, for pre-flight checks like
// the reset-token validation endpoint.
func (s *TokenService) Peek(ctx context.Context, flow domain.TokenFlow, raw string) (*domain.AccountToken, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	token, err := s.tokens.GetByHash(ctx, flow, security.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("load token: %w", err)
	}

	now := s.now().UTC()
	if token.UsedAt != nil || token.RevokedAt != nil {
		return nil, ErrTokenInvalid
	}
	if token.IsExpired(now) {
		return nil, ErrTokenExpired
	}

	return token, nil
}
