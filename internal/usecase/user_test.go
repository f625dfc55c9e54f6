package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

func newUserFixture(seed ...domain.User) (*UserService, *memUserRepository, *mockEventPublisher) {
	users := newMemUserRepository(seed...)
	events := &mockEventPublisher{}
	return NewUserService(users, events, nil), users, events
}

func TestUserService_GetProfile(t *testing.T) {
	service, _, _ := newUserFixture(domain.User{
		ID:           "user-1",
		Email:        "alice@example.org",
		Name:         "Alice",
		PasswordHash: "secret-hash",
	})

	user, err := service.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if user.PasswordHash != "" {
		t.Fatalf("expected sanitized profile")
	}

	if _, err := service.GetProfile(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_UpdateName(t *testing.T) {
	service, users, _ := newUserFixture(domain.User{ID: "user-1", Email: "alice@example.org", Name: "Alice"})

	if err := service.UpdateName(context.Background(), "user-1", "  Alice Cooper  "); err != nil {
		t.Fatalf("UpdateName returned error: %v", err)
	}

	stored, err := users.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected user to exist: %v", err)
	}
	if stored.Name != "Alice Cooper" {
		t.Fatalf("expected trimmed name, got %q", stored.Name)
	}

	if err := service.UpdateName(context.Background(), "user-1", "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a blank name, got %v", err)
	}
	if err := service.UpdateName(context.Background(), "missing", "Bob"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_List_Sanitizes(t *testing.T) {
	service, _, _ := newUserFixture(
		domain.User{ID: "user-1", Email: "a@example.org", PasswordHash: "hash-a"},
		domain.User{ID: "user-2", Email: "b@example.org", PasswordHash: "hash-b"},
	)

	users, err := service.List(context.Background(), port.UserFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected two users, got %d", len(users))
	}
	for _, user := range users {
		if user.PasswordHash != "" {
			t.Fatalf("expected sanitized listing for %s", user.ID)
		}
	}
}

func TestUserService_SetBannedAndAdmin(t *testing.T) {
	service, users, _ := newUserFixture(domain.User{ID: "user-1", Email: "alice@example.org"})

	if err := service.SetBanned(context.Background(), "user-1", true); err != nil {
		t.Fatalf("SetBanned returned error: %v", err)
	}
	if err := service.SetAdmin(context.Background(), "user-1", true); err != nil {
		t.Fatalf("SetAdmin returned error: %v", err)
	}

	stored, err := users.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected user to exist: %v", err)
	}
	if !stored.IsBanned || !stored.IsAdmin {
		t.Fatalf("expected both flags set, banned=%v admin=%v", stored.IsBanned, stored.IsAdmin)
	}

	if err := service.SetBanned(context.Background(), "missing", true); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := service.SetAdmin(context.Background(), "missing", true); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_Delete(t *testing.T) {
	service, users, events := newUserFixture(domain.User{ID: "user-1", Email: "alice@example.org"})

	if err := service.Delete(context.Background(), "user-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, err := users.GetByID(context.Background(), "user-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected user to be gone, got %v", err)
	}

	if len(events.deleted) != 1 {
		t.Fatalf("expected one deletion event, got %d", len(events.deleted))
	}
	if events.deleted[0].Email != "alice@example.org" {
		t.Fatalf("expected event to carry the deleted address")
	}

	if err := service.Delete(context.Background(), "user-1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on repeat delete, got %v", err)
	}
}
