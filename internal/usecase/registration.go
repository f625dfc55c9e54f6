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
	"github.com/harborlight-foundation/member-portal/internal/infra/security"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

var (
	// ErrEmailTaken indicates the address already belongs to an account.
	// Signup reports this outright; other flows deliberately do not.
	ErrEmailTaken = errors.New("email already registered")
	// ErrAlreadyVerified indicates the account has completed verification before.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrPasswordPolicyViolation indicates the password fails the signup policy.
	ErrPasswordPolicyViolation = errors.New("password does not meet requirements")
	// ErrValidation indicates a malformed or missing request field.
	ErrValidation = errors.New("validation failed")
)

// RegistrationService handles new account onboarding and email activation.
type RegistrationService struct {
	users             port.UserRepository
	tokens            *TokenService
	mailer            port.Mailer
	mailBuilder       MailBuilder
	events            port.EventPublisher
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
	now               func() time.Time
}

// MailBuilder assembles flow-specific outbound messages.
type MailBuilder interface {
	SignupVerification(to, name, token string) port.Email
	PasswordReset(to, name, token string) port.Email
	EmailChange(to, name, token string) port.Email
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(users port.UserRepository, tokens *TokenService, mailer port.Mailer, mailBuilder MailBuilder, events port.EventPublisher, validator *security.PasswordValidator, log *zap.Logger) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
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
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	if now != nil {
		s.now = now
		s.tokens.WithClock(now)
	}
	return s
}

// SignupInput carries the signup request payload plus request context.
type SignupInput struct {
	Email     string
	Name      string
	Password  string
	IP        string
	UserAgent string
}

// Signup creates an unverified account and emails the activation link.
func (s *RegistrationService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.Name)

	if email == "" || name == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: email, name, and password are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if err := s.passwordValidator.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	issued, err := s.tokens.Issue(ctx, user.ID, domain.FlowSignupVerification, IssueOptions{
		IP:        input.IP,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}

	msg := s.mailBuilder.SignupVerification(user.Email, user.Name, issued.Raw)
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("send verification mail: %w", err)
	}

	if s.events != nil {
		event := domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       user.ID,
			Email:        user.Email,
			Name:         user.Name,
			RegisteredAt: now,
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("publish user registered event failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("user signed up",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Activate redeems a signup verification token and marks the email verified.
// The token must belong to the account holding the supplied address; a
// mismatch is indistinguishable from an unknown token.
func (s *RegistrationService) Activate(ctx context.Context, email, rawToken string) error {
	address := strings.ToLower(strings.TrimSpace(email))
	if address == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	holder, err := s.users.GetByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("load user by email: %w", err)
	}
	if holder.EmailVerified {
		return ErrAlreadyVerified
	}

	_, err = s.tokens.Redeem(ctx, domain.FlowSignupVerification, rawToken, func(repos port.RepoSet, token domain.AccountToken) error {
		user, err := repos.Users.GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if !strings.EqualFold(user.Email, address) {
			return ErrTokenInvalid
		}

		if err := repos.Users.MarkEmailVerified(ctx, token.UserID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAlreadyVerified
			}
			return fmt.Errorf("mark email verified: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("account activated")
	return nil
}

// ResendActivation issues a fresh activation token for a still-unverified
// account. The response is identical whether or not the address exists.
func (s *RegistrationService) ResendActivation(ctx context.Context, email, ip, userAgent string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}

	issued, err := s.tokens.Issue(ctx, user.ID, domain.FlowSignupVerification, IssueOptions{
		IP:        ip,
		UserAgent: userAgent,
	})
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	msg := s.mailBuilder.SignupVerification(user.Email, user.Name, issued.Raw)
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}

	return nil
}
