package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
)

type emailChangeFixture struct {
	service *EmailChangeService
	users   *memUserRepository
	tokens  *memTokenRepository
	mailer  *mockMailer
	events  *mockEventPublisher
}

func newEmailChangeFixture(seed ...domain.User) *emailChangeFixture {
	users := newMemUserRepository(seed...)
	tokens := newMemTokenRepository()
	hours := newMemHoursRepository()
	uow := &fakeUnitOfWork{users: users, tokens: tokens, hours: hours}
	mailer := &mockMailer{}
	events := &mockEventPublisher{}

	tokenService := NewTokenService(tokens, uow, nil)
	service := NewEmailChangeService(users, tokenService, mailer, stubMailBuilder{}, events, nil)

	return &emailChangeFixture{
		service: service,
		users:   users,
		tokens:  tokens,
		mailer:  mailer,
		events:  events,
	}
}

func member() domain.User {
	return domain.User{
		ID:            "user-1",
		Email:         "alice@example.org",
		Name:          "Alice",
		PasswordHash:  "irrelevant",
		EmailVerified: true,
	}
}

func TestEmailChangeService_Request(t *testing.T) {
	fx := newEmailChangeFixture(member())

	if err := fx.service.Request(context.Background(), "user-1", "Alice.New@Example.org", "203.0.113.9", "test-agent"); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}

	if len(fx.mailer.sent) != 1 {
		t.Fatalf("expected one confirmation mail, got %d", len(fx.mailer.sent))
	}
	if fx.mailer.sent[0].To != "alice.new@example.org" {
		t.Fatalf("expected mail to go to the pending address, got %s", fx.mailer.sent[0].To)
	}

	outstanding, err := fx.tokens.GetOutstanding(context.Background(), "user-1", domain.FlowEmailChange)
	if err != nil {
		t.Fatalf("expected an outstanding token: %v", err)
	}
	if outstanding.NewEmail == nil || *outstanding.NewEmail != "alice.new@example.org" {
		t.Fatalf("expected the pending address on the token")
	}

	stored, err := fx.users.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected user to exist: %v", err)
	}
	if stored.Email != "alice@example.org" {
		t.Fatalf("expected the primary address to be untouched before confirmation")
	}
}

func TestEmailChangeService_Request_SameEmail(t *testing.T) {
	fx := newEmailChangeFixture(member())

	if err := fx.service.Request(context.Background(), "user-1", "ALICE@example.org", "", ""); !errors.Is(err, ErrSameEmail) {
		t.Fatalf("expected ErrSameEmail, got %v", err)
	}
}

func TestEmailChangeService_Request_EmailTaken(t *testing.T) {
	fx := newEmailChangeFixture(
		member(),
		domain.User{ID: "user-2", Email: "bob@example.org", Name: "Bob"},
	)

	if err := fx.service.Request(context.Background(), "user-1", "bob@example.org", "", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(fx.mailer.sent) != 0 {
		t.Fatalf("expected no mail when the address is taken")
	}
}

func TestEmailChangeService_Request_InvalidAddress(t *testing.T) {
	fx := newEmailChangeFixture(member())

	if err := fx.service.Request(context.Background(), "user-1", "not-an-address", "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := fx.service.Request(context.Background(), "user-1", "", "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty address, got %v", err)
	}
}

func TestEmailChangeService_Confirm(t *testing.T) {
	fx := newEmailChangeFixture(member())

	if err := fx.service.Request(context.Background(), "user-1", "alice.new@example.org", "", ""); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	rawToken := fx.mailer.sent[0].Text

	updated, err := fx.service.Confirm(context.Background(), rawToken)
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if updated.Email != "alice.new@example.org" {
		t.Fatalf("expected updated profile to carry the new address, got %s", updated.Email)
	}
	if !updated.EmailVerified {
		t.Fatalf("expected the promoted address to count as verified")
	}
	if updated.PasswordHash != "" {
		t.Fatalf("expected sanitized profile")
	}

	stored, err := fx.users.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected user to exist: %v", err)
	}
	if stored.Email != "alice.new@example.org" {
		t.Fatalf("expected the primary address to change, got %s", stored.Email)
	}

	if len(fx.events.emailChanged) != 1 {
		t.Fatalf("expected one email changed event, got %d", len(fx.events.emailChanged))
	}
	event := fx.events.emailChanged[0]
	if event.OldEmail != "alice@example.org" || event.NewEmail != "alice.new@example.org" {
		t.Fatalf("expected event to carry both addresses, got %s -> %s", event.OldEmail, event.NewEmail)
	}

	if _, err := fx.service.Confirm(context.Background(), rawToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on reuse, got %v", err)
	}
}

func TestEmailChangeService_Confirm_AddressClaimedMeanwhile(t *testing.T) {
	fx := newEmailChangeFixture(member())

	if err := fx.service.Request(context.Background(), "user-1", "contested@example.org", "", ""); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	rawToken := fx.mailer.sent[0].Text

	// Another account claims the address between request and confirmation.
	if err := fx.users.Create(context.Background(), domain.User{
		ID:    "user-2",
		Email: "contested@example.org",
		Name:  "Bob",
	}); err != nil {
		t.Fatalf("seed second user: %v", err)
	}

	if _, err := fx.service.Confirm(context.Background(), rawToken); !errors.Is(err, ErrEmailChangeConflict) {
		t.Fatalf("expected ErrEmailChangeConflict, got %v", err)
	}

	stored, err := fx.users.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected user to exist: %v", err)
	}
	if stored.Email != "alice@example.org" {
		t.Fatalf("expected the primary address to stay put after a lost race")
	}
	if len(fx.events.emailChanged) != 0 {
		t.Fatalf("expected no event for a failed promotion")
	}
}

func TestEmailChangeService_Confirm_UnknownToken(t *testing.T) {
	fx := newEmailChangeFixture(member())

	if _, err := fx.service.Confirm(context.Background(), "bogus"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestEmailChangeService_Request_SupersedesPrevious(t *testing.T) {
	fx := newEmailChangeFixture(member())

	if err := fx.service.Request(context.Background(), "user-1", "first@example.org", "", ""); err != nil {
		t.Fatalf("first Request returned error: %v", err)
	}
	firstToken := fx.mailer.sent[0].Text

	if err := fx.service.Request(context.Background(), "user-1", "second@example.org", "", ""); err != nil {
		t.Fatalf("second Request returned error: %v", err)
	}
	secondToken := fx.mailer.sent[1].Text

	if _, err := fx.service.Confirm(context.Background(), firstToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected the first token to be superseded, got %v", err)
	}

	updated, err := fx.service.Confirm(context.Background(), secondToken)
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if updated.Email != "second@example.org" {
		t.Fatalf("expected the second request to win, got %s", updated.Email)
	}
}
