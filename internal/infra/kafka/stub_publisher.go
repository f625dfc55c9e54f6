package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs portal.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"email":         event.Email,
		"name":          event.Name,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("portal.user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishPasswordChanged logs portal.user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
		"metadata":   event.Metadata,
	}
	p.logEvent("portal.user.password.changed", event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishEmailChanged logs portal.user.email.changed events.
func (p *StubPublisher) PublishEmailChanged(_ context.Context, event domain.EmailChangedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"old_email":  event.OldEmail,
		"new_email":  event.NewEmail,
		"changed_at": event.ChangedAt,
	}
	p.logEvent("portal.user.email.changed", event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishUserDeleted logs portal.user.deleted events.
func (p *StubPublisher) PublishUserDeleted(_ context.Context, event domain.UserDeletedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"email":      event.Email,
		"deleted_at": event.DeletedAt,
	}
	p.logEvent("portal.user.deleted", event.UserID, event.DeletedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
