package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/infra/logger"
	"github.com/harborlight-foundation/member-portal/internal/infra/security"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

// ErrInvalidCredentials is the only error login ever returns for a failed
// attempt. Unknown address, wrong password, unverified email, and banned
// account are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService verifies credentials and mints session tokens.
type AuthService struct {
	users  port.UserRepository
	signer *security.SessionSigner
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService constructs an auth service.
func NewAuthService(users port.UserRepository, signer *security.SessionSigner, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:  users,
		signer: signer,
		logger: log,
		now:    time.Now,
	}
}

// Session is the successful login result.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// Login authenticates the email and password pair. The password is always
// compared, even for unknown addresses, to keep response timing uniform.
func (a *AuthService) Login(ctx context.Context, email, password, ip string) (*Session, error) {
	address := strings.TrimSpace(email)
	if address == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.users.GetByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			security.VerifyPassword(password, decoyHash)
			a.logger.Info("login failed",
				zap.String("email", logger.MaskEmail(address)),
				zap.String("ip", logger.MaskIP(ip)),
				zap.String("reason", "unknown_email"),
			)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok || !user.CanLogin() {
		reason := "wrong_password"
		if ok {
			reason = "account_not_eligible"
		}
		a.logger.Info("login failed",
			zap.String("user_id", user.ID),
			zap.String("ip", logger.MaskIP(ip)),
			zap.String("reason", reason),
		)
		return nil, ErrInvalidCredentials
	}

	token, err := a.signer.Sign(user.ID, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	a.logger.Info("login succeeded",
		zap.String("user_id", user.ID),
		zap.String("ip", logger.MaskIP(ip)),
	)

	return &Session{
		Token:     token,
		ExpiresAt: a.now().UTC().Add(a.signer.TTL()),
		User:      user.Sanitized(),
	}, nil
}

// Validate parses a session token into claims.
func (a *AuthService) Validate(token string) (*security.SessionClaims, error) {
	return a.signer.Validate(token)
}

// decoyHash is a bcrypt hash of a random value, compared against when the
// email is unknown so both failure paths cost one bcrypt verification.
const decoyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
