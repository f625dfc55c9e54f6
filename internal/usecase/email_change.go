package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/infra/logger"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

var (
	// ErrSameEmail indicates the requested address matches the current one.
	ErrSameEmail = errors.New("new email matches current email")
	// ErrEmailChangeConflict indicates the pending address was claimed by
	// another account between request and confirmation.
	ErrEmailChangeConflict = errors.New("email no longer available")
)

// EmailChangeService manages the two-step replacement of a primary email.
// The new address only becomes primary after a link sent to it is redeemed.
type EmailChangeService struct {
	users       port.UserRepository
	tokens      *TokenService
	mailer      port.Mailer
	mailBuilder MailBuilder
	events      port.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewEmailChangeService constructs an email change service.
func NewEmailChangeService(users port.UserRepository, tokens *TokenService, mailer port.Mailer, mailBuilder MailBuilder, events port.EventPublisher, log *zap.Logger) *EmailChangeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailChangeService{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		mailBuilder: mailBuilder,
		events:      events,
		logger:      log,
		now:         time.Now,
	}
}

// WithClock overrides the clock, primarily for tests.
func (s *EmailChangeService) WithClock(now func() time.Time) *EmailChangeService {
	if now != nil {
		s.now = now
		s.tokens.WithClock(now)
	}
	return s
}

// Request stores the pending address on a fresh token and emails a
// confirmation link to it. A repeat request supersedes the previous one.
func (s *EmailChangeService) Request(ctx context.Context, userID, newEmail, ip, userAgent string) error {
	address := strings.ToLower(strings.TrimSpace(newEmail))
	if address == "" {
		return fmt.Errorf("%w: new email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if strings.EqualFold(user.Email, address) {
		return ErrSameEmail
	}

	if existing, err := s.users.GetByEmail(ctx, address); err == nil && existing != nil {
		return ErrEmailTaken
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check email availability: %w", err)
	}

	issued, err := s.tokens.Issue(ctx, user.ID, domain.FlowEmailChange, IssueOptions{
		NewEmail:  address,
		IP:        ip,
		UserAgent: userAgent,
	})
	if err != nil {
		return fmt.Errorf("issue email change token: %w", err)
	}

	msg := s.mailBuilder.EmailChange(address, user.Name, issued.Raw)
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email change mail: %w", err)
	}

	s.logger.Info("email change requested",
		zap.String("user_id", user.ID),
		zap.String("new_email", logger.MaskEmail(address)),
	)

	return nil
}

// Confirm redeems the token sent to the pending address and promotes it to
// primary. Uniqueness is rechecked at promotion time inside the same
// transaction; losing that race invalidates the attempt.
func (s *EmailChangeService) Confirm(ctx context.Context, rawToken string) (*domain.User, error) {
	var oldEmail, newEmail, userID string
	var updated domain.User

	_, err := s.tokens.Redeem(ctx, domain.FlowEmailChange, rawToken, func(repos port.RepoSet, token domain.AccountToken) error {
		if token.NewEmail == nil || *token.NewEmail == "" {
			return ErrTokenInvalid
		}

		user, err := repos.Users.GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		if err := repos.Users.PromoteEmail(ctx, token.UserID, *token.NewEmail, s.now().UTC()); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrEmailChangeConflict
			}
			return fmt.Errorf("promote email: %w", err)
		}

		oldEmail = user.Email
		newEmail = *token.NewEmail
		userID = token.UserID

		updated = *user
		updated.Email = newEmail
		updated.EmailVerified = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		event := domain.EmailChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    userID,
			OldEmail:  oldEmail,
			NewEmail:  newEmail,
			ChangedAt: s.now().UTC(),
		}
		if err := s.events.PublishEmailChanged(ctx, event); err != nil {
			s.logger.Warn("publish email changed event failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("email change confirmed",
		zap.String("user_id", userID),
		zap.String("new_email", logger.MaskEmail(newEmail)),
	)

	sanitized := updated.Sanitized()
	return &sanitized, nil
}
