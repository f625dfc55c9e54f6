package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/harborlight-foundation/member-portal/internal/core/domain"
	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/repository"
)

// memUserRepository is an in-memory port.UserRepository for service tests.
type memUserRepository struct {
	mu    sync.Mutex
	users map[string]domain.User

	createErr error
	getErr    error
	updateErr error
}

func newMemUserRepository(seed ...domain.User) *memUserRepository {
	repo := &memUserRepository{users: make(map[string]domain.User)}
	for _, u := range seed {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *memUserRepository) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := user
	return &clone, nil
}

func (m *memUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			clone := user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepository) List(_ context.Context, filter port.UserFilter) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		if filter.EmailVerified != nil && user.EmailVerified != *filter.EmailVerified {
			continue
		}
		if filter.IsBanned != nil && user.IsBanned != *filter.IsBanned {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (m *memUserRepository) UpdateName(_ context.Context, id, name string) error {
	return m.update(id, func(user *domain.User) { user.Name = name })
}

func (m *memUserRepository) UpdatePassword(_ context.Context, id, passwordHash string, resetAt time.Time) error {
	return m.update(id, func(user *domain.User) {
		user.PasswordHash = passwordHash
		at := resetAt
		user.LastReset = &at
	})
}

func (m *memUserRepository) MarkEmailVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok || user.EmailVerified {
		return repository.ErrNotFound
	}
	user.EmailVerified = true
	m.users[id] = user
	return nil
}

func (m *memUserRepository) PromoteEmail(_ context.Context, id, newEmail string, verifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for otherID, other := range m.users {
		if otherID != id && strings.EqualFold(other.Email, newEmail) {
			return repository.ErrConflict
		}
	}
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Email = newEmail
	user.EmailVerified = true
	user.UpdatedAt = verifiedAt
	m.users[id] = user
	return nil
}

func (m *memUserRepository) SetBanned(_ context.Context, id string, banned bool) error {
	return m.update(id, func(user *domain.User) { user.IsBanned = banned })
}

func (m *memUserRepository) SetAdmin(_ context.Context, id string, admin bool) error {
	return m.update(id, func(user *domain.User) { user.IsAdmin = admin })
}

func (m *memUserRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUserRepository) update(id string, apply func(*domain.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	apply(&user)
	m.users[id] = user
	return nil
}

func (m *memUserRepository) snapshot() map[string]domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.User, len(m.users))
	for id, user := range m.users {
		out[id] = user
	}
	return out
}

func (m *memUserRepository) restore(state map[string]domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = state
}

// memTokenRepository is an in-memory port.TokenRepository.
type memTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]domain.AccountToken

	createErr error
	revokeErr error
}

func newMemTokenRepository() *memTokenRepository {
	return &memTokenRepository{tokens: make(map[string]domain.AccountToken)}
}

func (m *memTokenRepository) Create(_ context.Context, token domain.AccountToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.tokens[token.ID] = token
	return nil
}

func (m *memTokenRepository) GetByHash(_ context.Context, flow domain.TokenFlow, hash string) (*domain.AccountToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.Flow == flow && token.TokenHash == hash {
			clone := token
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memTokenRepository) GetOutstanding(_ context.Context, userID string, flow domain.TokenFlow) (*domain.AccountToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.UserID == userID && token.Flow == flow && token.UsedAt == nil && token.RevokedAt == nil {
			clone := token
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memTokenRepository) Consume(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[id]
	if !ok || token.UsedAt != nil || token.RevokedAt != nil {
		return repository.ErrNotFound
	}
	used := at
	token.UsedAt = &used
	m.tokens[id] = token
	return nil
}

func (m *memTokenRepository) RevokeOutstanding(_ context.Context, userID string, flow domain.TokenFlow, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return 0, m.revokeErr
	}
	revoked := 0
	for id, token := range m.tokens {
		if token.UserID == userID && token.Flow == flow && token.UsedAt == nil && token.RevokedAt == nil {
			ts := at
			token.RevokedAt = &ts
			m.tokens[id] = token
			revoked++
		}
	}
	return revoked, nil
}

func (m *memTokenRepository) snapshot() map[string]domain.AccountToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.AccountToken, len(m.tokens))
	for id, token := range m.tokens {
		out[id] = token
	}
	return out
}

func (m *memTokenRepository) restore(state map[string]domain.AccountToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = state
}

// memHoursRepository is an in-memory port.HoursRepository.
type memHoursRepository struct {
	mu      sync.Mutex
	entries map[string]domain.HourEntry

	createErr error
}

func newMemHoursRepository() *memHoursRepository {
	return &memHoursRepository{entries: make(map[string]domain.HourEntry)}
}

func (m *memHoursRepository) Create(_ context.Context, entry domain.HourEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries[entry.ID] = entry
	return nil
}

func (m *memHoursRepository) GetByID(_ context.Context, id string) (*domain.HourEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := entry
	return &clone, nil
}

func (m *memHoursRepository) ListByUser(_ context.Context, userID string) ([]domain.HourEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.HourEntry, 0)
	for _, entry := range m.entries {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *memHoursRepository) ListPending(_ context.Context, limit int) ([]domain.HourEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.HourEntry, 0)
	for _, entry := range m.entries {
		if entry.Status == domain.HourEntryPending {
			out = append(out, entry)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memHoursRepository) SetStatus(_ context.Context, id string, status domain.HourEntryStatus, reviewedBy string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok || entry.Status != domain.HourEntryPending {
		return repository.ErrNotFound
	}
	entry.Status = status
	entry.ReviewedBy = &reviewedBy
	ts := at
	entry.ReviewedAt = &ts
	m.entries[id] = entry
	return nil
}

// fakeUnitOfWork exposes the in-memory repositories as a transaction scope.
// Transactions run one at a time, and on error the user and token stores
// are restored so the rollback contract holds.
type fakeUnitOfWork struct {
	mu     sync.Mutex
	users  *memUserRepository
	tokens *memTokenRepository
	hours  *memHoursRepository
}

func (f *fakeUnitOfWork) Do(_ context.Context, fn func(repos port.RepoSet) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	usersBefore := f.users.snapshot()
	tokensBefore := f.tokens.snapshot()
	err := fn(port.RepoSet{Users: f.users, Tokens: f.tokens, Hours: f.hours})
	if err != nil {
		f.users.restore(usersBefore)
		f.tokens.restore(tokensBefore)
		return err
	}
	return nil
}

// mockMailer records outbound messages.
type mockMailer struct {
	sent    []port.Email
	sendErr error
}

func (m *mockMailer) Send(_ context.Context, email port.Email) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, email)
	return nil
}

// stubMailBuilder embeds the raw token in the body so tests can fish it out.
type stubMailBuilder struct{}

func (stubMailBuilder) SignupVerification(to, _, token string) port.Email {
	return port.Email{To: to, Subject: "verify", Text: token}
}

func (stubMailBuilder) PasswordReset(to, _, token string) port.Email {
	return port.Email{To: to, Subject: "reset", Text: token}
}

func (stubMailBuilder) EmailChange(to, _, token string) port.Email {
	return port.Email{To: to, Subject: "confirm", Text: token}
}

// mockEventPublisher records the published events.
type mockEventPublisher struct {
	registered      []domain.UserRegisteredEvent
	passwordChanged []domain.PasswordChangedEvent
	emailChanged    []domain.EmailChangedEvent
	deleted         []domain.UserDeletedEvent
	err             error
}

func (m *mockEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	m.registered = append(m.registered, event)
	return m.err
}

func (m *mockEventPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	m.passwordChanged = append(m.passwordChanged, event)
	return m.err
}

func (m *mockEventPublisher) PublishEmailChanged(_ context.Context, event domain.EmailChangedEvent) error {
	m.emailChanged = append(m.emailChanged, event)
	return m.err
}

func (m *mockEventPublisher) PublishUserDeleted(_ context.Context, event domain.UserDeletedEvent) error {
	m.deleted = append(m.deleted, event)
	return m.err
}

var errBoom = errors.New("boom")
