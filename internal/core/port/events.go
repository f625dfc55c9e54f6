package port

import (
	"context"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
)

// EventPublisher fans security-relevant account events out to downstream
// consumers. Publishing is fire-and-forget from the caller's perspective;
// failures are logged, never returned to the HTTP client.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishEmailChanged(ctx context.Context, event domain.EmailChangedEvent) error
	PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error
}
