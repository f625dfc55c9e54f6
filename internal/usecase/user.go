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
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

// ErrUserNotFound indicates the referenced account does not exist.
var ErrUserNotFound = errors.New("user not found")

// UserService serves profile reads and the admin account operations.
type UserService struct {
	users  port.UserRepository
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService constructs a user service.
func NewUserService(users port.UserRepository, events port.EventPublisher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		users:  users,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// GetProfile returns the sanitized account for the given id.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// UpdateName renames the account.
func (s *UserService) UpdateName(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}

	if err := s.users.UpdateName(ctx, userID, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update name: %w", err)
	}
	return nil
}

// List returns accounts for the admin view.
func (s *UserService) List(ctx context.Context, filter port.UserFilter) ([]domain.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// SetBanned toggles the banned flag on an account.
func (s *UserService) SetBanned(ctx context.Context, userID string, banned bool) error {
	if err := s.users.SetBanned(ctx, userID, banned); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set banned: %w", err)
	}

	s.logger.Info("ban flag updated",
		zap.String("user_id", userID),
		zap.Bool("banned", banned),
	)
	return nil
}

// SetAdmin toggles the admin flag on an account.
func (s *UserService) SetAdmin(ctx context.Context, userID string, admin bool) error {
	if err := s.users.SetAdmin(ctx, userID, admin); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set admin: %w", err)
	}

	s.logger.Info("admin flag updated",
		zap.String("user_id", userID),
		zap.Bool("admin", admin),
	)
	return nil
}

// Delete removes an account. Tokens and hour entries cascade in the database.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if s.events != nil {
		event := domain.UserDeletedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			Email:     user.Email,
			DeletedAt: s.now().UTC(),
		}
		if err := s.events.PublishUserDeleted(ctx, event); err != nil {
			s.logger.Warn("publish user deleted event failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("user deleted", zap.String("user_id", user.ID))
	return nil
}
