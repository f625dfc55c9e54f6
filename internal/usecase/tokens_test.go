package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/infra/security"
)

func newTokenFixture() (*TokenService, *memTokenRepository, *fakeUnitOfWork) {
	users := newMemUserRepository()
	tokens := newMemTokenRepository()
	hours := newMemHoursRepository()
	uow := &fakeUnitOfWork{users: users, tokens: tokens, hours: hours}
	return NewTokenService(tokens, uow, nil), tokens, uow
}

func TestTokenService_Issue(t *testing.T) {
	service, repo, _ := newTokenFixture()
	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return fixedNow })

	issued, err := service.Issue(context.Background(), "user-1", domain.FlowPasswordReset, IssueOptions{IP: "203.0.113.9"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if issued.Raw == "" {
		t.Fatalf("expected raw token")
	}
	if issued.Record.TokenHash != security.HashToken(issued.Raw) {
		t.Fatalf("expected persisted hash to match raw token")
	}
	if issued.Record.ExpiresAt != fixedNow.Add(time.Hour) {
		t.Fatalf("expected reset token to expire in one hour, got %v", issued.Record.ExpiresAt)
	}
	if issued.Record.IP == nil || *issued.Record.IP != "203.0.113.9" {
		t.Fatalf("expected request IP to be recorded")
	}

	stored, err := repo.GetByHash(context.Background(), domain.FlowPasswordReset, issued.Record.TokenHash)
	if err != nil {
		t.Fatalf("expected token to be persisted: %v", err)
	}
	if stored.UserID != "user-1" {
		t.Fatalf("expected token owner user-1, got %s", stored.UserID)
	}
}

func TestTokenService_Issue_RevokesPredecessor(t *testing.T) {
	service, repo, _ := newTokenFixture()

	first, err := service.Issue(context.Background(), "user-1", domain.FlowSignupVerification, IssueOptions{})
	if err != nil {
		t.Fatalf("first Issue returned error: %v", err)
	}

	second, err := service.Issue(context.Background(), "user-1", domain.FlowSignupVerification, IssueOptions{})
	if err != nil {
		t.Fatalf("second Issue returned error: %v", err)
	}

	old, err := repo.GetByHash(context.Background(), domain.FlowSignupVerification, first.Record.TokenHash)
	if err != nil {
		t.Fatalf("expected first token to still exist: %v", err)
	}
	if old.RevokedAt == nil {
		t.Fatalf("expected first token to be revoked after reissue")
	}

	outstanding, err := repo.GetOutstanding(context.Background(), "user-1", domain.FlowSignupVerification)
	if err != nil {
		t.Fatalf("expected an outstanding token: %v", err)
	}
	if outstanding.ID != second.Record.ID {
		t.Fatalf("expected the new token to be the outstanding one")
	}
}

func TestTokenService_Issue_LeavesOtherFlowsAlone(t *testing.T) {
	service, repo, _ := newTokenFixture()

	reset, err := service.Issue(context.Background(), "user-1", domain.FlowPasswordReset, IssueOptions{})
	if err != nil {
		t.Fatalf("Issue reset returned error: %v", err)
	}
	if _, err := service.Issue(context.Background(), "user-1", domain.FlowEmailChange, IssueOptions{NewEmail: "new@example.org"}); err != nil {
		t.Fatalf("Issue email change returned error: %v", err)
	}

	stored, err := repo.GetByHash(context.Background(), domain.FlowPasswordReset, reset.Record.TokenHash)
	if err != nil {
		t.Fatalf("expected reset token to exist: %v", err)
	}
	if stored.RevokedAt != nil {
		t.Fatalf("expected reset token to survive an email-change issue")
	}
}

func TestTokenService_Issue_InvalidInput(t *testing.T) {
	service, _, _ := newTokenFixture()

	if _, err := service.Issue(context.Background(), "", domain.FlowPasswordReset, IssueOptions{}); err == nil {
		t.Fatalf("expected error for missing user id")
	}
	if _, err := service.Issue(context.Background(), "user-1", domain.TokenFlow("bogus"), IssueOptions{}); err == nil {
		t.Fatalf("expected error for unknown flow")
	}
}

func TestTokenService_Redeem(t *testing.T) {
	service, repo, _ := newTokenFixture()

	issued, err := service.Issue(context.Background(), "user-1", domain.FlowSignupVerification, IssueOptions{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	mutateCalls := 0
	redeemed, err := service.Redeem(context.Background(), domain.FlowSignupVerification, issued.Raw, func(_ port.RepoSet, token domain.AccountToken) error {
		mutateCalls++
		if token.ID != issued.Record.ID {
			t.Fatalf("expected mutate to receive the issued token")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Redeem returned error: %v", err)
	}
	if mutateCalls != 1 {
		t.Fatalf("expected mutate to run once, got %d", mutateCalls)
	}
	if redeemed.UserID != "user-1" {
		t.Fatalf("expected redeemed token owner user-1, got %s", redeemed.UserID)
	}

	stored, err := repo.GetByHash(context.Background(), domain.FlowSignupVerification, issued.Record.TokenHash)
	if err != nil {
		t.Fatalf("expected token to exist after redemption: %v", err)
	}
	if stored.UsedAt == nil {
		t.Fatalf("expected token to be marked used")
	}
}

func TestTokenService_Redeem_SecondAttemptFails(t *testing.T) {
	service, _, _ := newTokenFixture()

	issued, err := service.Issue(context.Background(), "user-1", domain.FlowSignupVerification, IssueOptions{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	noop := func(port.RepoSet, domain.AccountToken) error { return nil }
	if _, err := service.Redeem(context.Background(), domain.FlowSignupVerification, issued.Raw, noop); err != nil {
		t.Fatalf("first redemption returned error: %v", err)
	}

	if _, err := service.Redeem(context.Background(), domain.FlowSignupVerification, issued.Raw, noop); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on second redemption, got %v", err)
	}
}

func TestTokenService_Redeem_ConcurrentAttempts(t *testing.T) {
	service, _, _ := newTokenFixture()

	issued, err := service.Issue(context.Background(), "user-1", domain.FlowPasswordReset, IssueOptions{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	var mutations atomic.Int32
	mutate := func(port.RepoSet, domain.AccountToken) error {
		mutations.Add(1)
		return nil
	}

	const attempts = 2
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Redeem(context.Background(), domain.FlowPasswordReset, issued.Raw, mutate)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, invalid int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrTokenInvalid):
			invalid++
		default:
			t.Fatalf("unexpected redemption error: %v", err)
		}
	}

	if successes != 1 || invalid != 1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d invalid", successes, invalid)
	}
	if got := mutations.Load(); got != 1 {
		t.Fatalf("expected the mutation to run once, ran %d times", got)
	}
}

func TestTokenService_Redeem_Expired(t *testing.T) {
	service, _, _ := newTokenFixture()

	issueTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return issueTime })

	issued, err := service.Issue(context.Background(), "user-1", domain.FlowPasswordReset, IssueOptions{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	service.WithClock(func() time.Time { return issueTime.Add(time.Hour + time.Second) })

	_, err = service.Redeem(context.Background(), domain.FlowPasswordReset, issued.Raw, func(port.RepoSet, domain.AccountToken) error {
		t.Fatalf("mutate must not run for an expired token")
		return nil
	})
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_Redeem_UnknownToken(t *testing.T) {
	service, _, _ := newTokenFixture()

	_, err := service.Redeem(context.Background(), domain.FlowPasswordReset, "definitely-not-issued", func(port.RepoSet, domain.AccountToken) error {
		t.Fatalf("mutate must not run for an unknown token")
		return nil
	})
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenService_Redeem_WrongFlow(t *testing.T) {
	service, _, _ := newTokenFixture()

	issued, err := service.Issue(context.Background(), "user-1", domain.FlowSignupVerification, IssueOptions{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := service.Redeem(context.Background(), domain.FlowPasswordReset, issued.Raw, func(port.RepoSet, domain.AccountToken) error {
		return nil
	}); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong flow, got %v", err)
	}
}

func TestTokenService_Redeem_MutateFailureRollsBack(t *testing.T) {
	service, repo, _ := newTokenFixture()

	issued, err := service.Issue(context.Background(), "user-1", domain.FlowEmailChange, IssueOptions{NewEmail: "new@example.org"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := service.Redeem(context.Background(), domain.FlowEmailChange, issued.Raw, func(port.RepoSet, domain.AccountToken) error {
		return errBoom
	}); !errors.Is(err, errBoom) {
		t.Fatalf("expected mutate error to surface, got %v", err)
	}

	stored, err := repo.GetByHash(context.Background(), domain.FlowEmailChange, issued.Record.TokenHash)
	if err != nil {
		t.Fatalf("expected token to exist: %v", err)
	}
	if stored.UsedAt != nil {
		t.Fatalf("expected consume to roll back when mutate fails")
	}

	if _, err := service.Redeem(context.Background(), domain.FlowEmailChange, issued.Raw, func(port.RepoSet, domain.AccountToken) error {
		return nil
	}); err != nil {
		t.Fatalf("expected token to stay redeemable after rollback, got %v", err)
	}
}

func TestTokenService_Peek(t *testing.T) {
	service, _, _ := newTokenFixture()

	issued, err := service.Issue(context.Background(), "user-1", domain.FlowPasswordReset, IssueOptions{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	token, err := service.Peek(context.Background(), domain.FlowPasswordReset, issued.Raw)
	if err != nil {
		t.Fatalf("Peek returned error: %v", err)
	}
	if token.UsedAt != nil {
		t.Fatalf("Peek must not consume the token")
	}

	again, err := service.Peek(context.Background(), domain.FlowPasswordReset, issued.Raw)
	if err != nil {
		t.Fatalf("second Peek returned error: %v", err)
	}
	if again.ID != token.ID {
		t.Fatalf("expected the same token on repeated peeks")
	}
}

func TestTokenService_Peek_EmptyToken(t *testing.T) {
	service, _, _ := newTokenFixture()

	if _, err := service.Peek(context.Background(), domain.FlowPasswordReset, ""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for empty token, got %v", err)
	}
}

func TestTokenService_RevokeOutstanding(t *testing.T) {
	service, repo, _ := newTokenFixture()

	issued, err := service.Issue(context.Background(), "user-1", domain.FlowPasswordReset, IssueOptions{})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	revoked, err := service.RevokeOutstanding(context.Background(), "user-1", domain.FlowPasswordReset)
	if err != nil {
		t.Fatalf("RevokeOutstanding returned error: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected one revoked token, got %d", revoked)
	}

	stored, err := repo.GetByHash(context.Background(), domain.FlowPasswordReset, issued.Record.TokenHash)
	if err != nil {
		t.Fatalf("expected token to exist: %v", err)
	}
	if stored.RevokedAt == nil {
		t.Fatalf("expected token to be revoked")
	}
}
