package port

import "context"

// RepoSet bundles the repositories that participate in a transaction.
type RepoSet struct {
	Users  UserRepository
	Tokens TokenRepository
	Hours  HoursRepository
}

// UnitOfWork runs fn against transaction-scoped repositories. Token
// redemption relies on this: consuming the token and applying the mutation it
// authorizes commit or roll back as one.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos RepoSet) error) error
}
