package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenKey is the dedup scope for pending proposals: one pending,
// non-expired token per (email, proposable type, resource). The proposer
// is deliberately not part of the scope.
type TokenKey struct {
	Email          string
	ProposableType string
	ResourceType   *string
	ResourceID     *string
}

// StateFilter narrows token listings by lifecycle state.
type StateFilter int

const (
	StateAny StateFilter = iota
	StatePending
	StateAccepted
	StateExpired
	StateReminded
)

// TokenQuery describes an exact-match token listing. Zero-valued fields
// are not constrained; nil pointer fields are not constrained either (use
// the key-based finders to match NULL columns).
type TokenQuery struct {
	Email          string
	ProposableType string
	ResourceType   *string
	ResourceID     *string
	ProposerType   *string
	ProposerID     *string
	State          StateFilter
}

// TokenStore is the persistence contract the token core consumes. All
// calls are synchronous request/response; the store enforces the dedup
// uniqueness constraint so a lost creation race surfaces as ErrDuplicate
// instead of a silent duplicate row.
type TokenStore interface {
	// FindPending returns the pending, non-expired token matching the key,
	// or (nil, nil) when there is none. Nil key fields match NULL columns.
	FindPending(ctx context.Context, key TokenKey, now time.Time) (*Token, error)

	// PendingExists reports whether a pending, non-expired token other
	// than exclude occupies the key.
	PendingExists(ctx context.Context, key TokenKey, now time.Time, exclude uuid.UUID) (bool, error)

	// FindByToken resolves a token by its opaque string value, returning
	// (nil, nil) when unknown.
	FindByToken(ctx context.Context, value string) (*Token, error)

	// List returns the tokens matching the query.
	List(ctx context.Context, q TokenQuery) ([]*Token, error)

	// Insert persists a new token, assigning its identity. Returns
	// ErrDuplicate (possibly wrapped) when the dedup constraint rejects it.
	Insert(ctx context.Context, t *Token) error

	// Update rewrites a persisted token's mutable columns.
	Update(ctx context.Context, t *Token) error

	// Touch stamps a single timestamp column on a persisted token.
	Touch(ctx context.Context, t *Token, column string, at time.Time) error
}
