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
	"github.com/harborlight-foundation/member-portal/internal/infra/logger"
	"github.com/harborlight-foundation/member-portal/internal/infra/security"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

// ErrWrongPassword indicates the supplied current password does not match.
var ErrWrongPassword = errors.New("current password incorrect")

// PasswordService coordinates the forgotten-password flow and authenticated
// password changes.
type PasswordService struct {
	users             port.UserRepository
	tokens            *TokenService
	mailer            port.Mailer
	mailBuilder       MailBuilder
	events            port.EventPublisher
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
	now               func() time.Time
}

// NewPasswordService constructs a password service.
func NewPasswordService(users port.UserRepository, tokens *TokenService, mailer port.Mailer, mailBuilder MailBuilder, events port.EventPublisher, validator *security.PasswordValidator, log *zap.Logger) *PasswordService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordService{
		users:             users,
		tokens:            tokens,
		mailer:            mailer,
		mailBuilder:       mailBuilder,
		events:            events,
		passwordValidator: validator,
		logger:            log,
		now:               time.Now,
	}
}

// WithClock overrides the clock, primarily for tests.
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	if now != nil {
		s.now = now
		s.tokens.WithClock(now)
	}
	return s
}

// RequestReset issues a reset token and emails the link. The outcome is
// indistinguishable to the caller whether or not the address exists, so the
// endpoint cannot be used to enumerate accounts.
func (s *PasswordService) RequestReset(ctx context.Context, email, ip, userAgent string) error {
	address := strings.TrimSpace(email)
	if address == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("reset requested for unknown address",
				zap.String("email", logger.MaskEmail(address)),
			)
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	issued, err := s.tokens.Issue(ctx, user.ID, domain.FlowPasswordReset, IssueOptions{
		IP:        ip,
		UserAgent: userAgent,
	})
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	msg := s.mailBuilder.PasswordReset(user.Email, user.Name, issued.Raw)
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}

	s.logger.Info("password reset requested",
		zap.String("user_id", user.ID),
		zap.String("ip", logger.MaskIP(ip)),
	)

	return nil
}

// ValidateResetToken checks a reset token without consuming it, so the
// frontend can show the new-password form only for live links. The token
// must belong to the account holding the supplied address.
func (s *PasswordService) ValidateResetToken(ctx context.Context, email, rawToken string) error {
	token, err := s.tokens.Peek(ctx, domain.FlowPasswordReset, rawToken)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !strings.EqualFold(user.Email, strings.TrimSpace(email)) {
		return ErrTokenInvalid
	}
	return nil
}

// CompleteReset redeems a reset token and installs the new password. The
// consume and the password update share one transaction.
func (s *PasswordService) CompleteReset(ctx context.Context, email, rawToken, newPassword string) error {
	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	address := strings.TrimSpace(email)
	redeemed, err := s.tokens.Redeem(ctx, domain.FlowPasswordReset, rawToken, func(repos port.RepoSet, token domain.AccountToken) error {
		user, err := repos.Users.GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if !strings.EqualFold(user.Email, address) {
			return ErrTokenInvalid
		}

		if err := repos.Users.UpdatePassword(ctx, token.UserID, passwordHash, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishPasswordChanged(ctx, redeemed.UserID, "password_reset", now)

	s.logger.Info("password reset completed", zap.String("user_id", redeemed.UserID))
	return nil
}

// ChangePassword updates the password for an authenticated user after
// verifying the current one. Any outstanding reset token is revoked so a
// stale emailed link cannot undo the change.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrWrongPassword
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// The new hash and the reset-token revocation land atomically.
	now := s.now().UTC()
	err = s.tokens.InTransaction(ctx, func(repos port.RepoSet) error {
		if err := repos.Users.UpdatePassword(ctx, user.ID, passwordHash, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if _, err := repos.Tokens.RevokeOutstanding(ctx, user.ID, domain.FlowPasswordReset, now); err != nil {
			return fmt.Errorf("revoke outstanding reset tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishPasswordChanged(ctx, user.ID, "password_change", now)

	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

func (s *PasswordService) publishPasswordChanged(ctx context.Context, userID, reason string, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		ChangedAt: at,
		ChangedBy: reason,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
