package proposal

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeClock is a settable time source for deterministic expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock { return &fakeClock{now: at} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memStore is an in-process TokenStore that mirrors the database's
// pending-uniqueness constraint, so the save path's duplicate handling
// can be exercised without Postgres.
type memStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*Token
}

func newMemStore() *memStore {
	return &memStore{tokens: make(map[uuid.UUID]*Token)}
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func matchesKey(t *Token, key TokenKey) bool {
	return strings.EqualFold(t.Email, key.Email) &&
		t.ProposableType == key.ProposableType &&
		strPtrEqual(t.ResourceType, key.ResourceType) &&
		strPtrEqual(t.ResourceID, key.ResourceID)
}

func pendingAt(t *Token, now time.Time) bool {
	return t.AcceptedAt == nil && now.Before(t.ExpiresAt)
}

func (s *memStore) FindPending(_ context.Context, key TokenKey, now time.Time) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if matchesKey(t, key) && pendingAt(t, now) {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memStore) PendingExists(_ context.Context, key TokenKey, now time.Time, exclude uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if id != exclude && matchesKey(t, key) && pendingAt(t, now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) FindByToken(_ context.Context, value string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.Token == value {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memStore) List(_ context.Context, q TokenQuery) ([]*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Token
	for _, t := range s.tokens {
		if q.Email != "" && !strings.EqualFold(t.Email, q.Email) {
			continue
		}
		if q.ProposableType != "" && t.ProposableType != q.ProposableType {
			continue
		}
		if q.ResourceType != nil && !strPtrEqual(t.ResourceType, q.ResourceType) {
			continue
		}
		if q.ResourceID != nil && !strPtrEqual(t.ResourceID, q.ResourceID) {
			continue
		}
		if q.ProposerType != nil && !strPtrEqual(t.ProposerType, q.ProposerType) {
			continue
		}
		if q.ProposerID != nil && !strPtrEqual(t.ProposerID, q.ProposerID) {
			continue
		}
		switch q.State {
		case StatePending:
			if t.AcceptedAt != nil {
				continue
			}
		case StateAccepted:
			if t.AcceptedAt == nil {
				continue
			}
		case StateReminded:
			if t.RemindedAt == nil {
				continue
			}
		}
		clone := *t
		out = append(out, &clone)
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, t *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tokens {
		if matchesKey(existing, t.Key()) && existing.AcceptedAt == nil && existing.ExpiresAt.Equal(t.ExpiresAt) {
			return ErrDuplicate
		}
	}
	t.ID = uuid.New()
	clone := *t
	s.tokens[t.ID] = &clone
	return nil
}

func (s *memStore) Update(_ context.Context, t *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *t
	s.tokens[t.ID] = &clone
	return nil
}

func (s *memStore) Touch(_ context.Context, t *Token, column string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tokens[t.ID]
	if !ok {
		return nil
	}
	stamp := at
	switch column {
	case "accepted_at":
		stored.AcceptedAt = &stamp
	case "reminded_at":
		stored.RemindedAt = &stamp
	}
	stored.UpdatedAt = at
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// stubProposable is a proposable type backed by an in-memory email set.
type stubProposable struct {
	name string

	mu     sync.Mutex
	emails map[string]bool
}

func newStubProposable(name string, emails ...string) *stubProposable {
	p := &stubProposable{name: name, emails: make(map[string]bool)}
	for _, e := range emails {
		p.emails[strings.ToLower(e)] = true
	}
	return p
}

func (p *stubProposable) ProposableName() string { return p.name }

func (p *stubProposable) FindRecipientByEmail(_ context.Context, email string) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.emails[strings.ToLower(email)] {
		return email, nil
	}
	return nil, nil
}

func (p *stubProposable) add(email string) {
	p.mu.Lock()
	p.emails[strings.ToLower(email)] = true
	p.mu.Unlock()
}

// stubResource / stubProposer implement the scoping interfaces.
type stubResource struct{ typ, id string }

func (r stubResource) ResourceType() string { return r.typ }
func (r stubResource) ResourceID() string   { return r.id }

type stubProposer struct{ typ, id string }

func (p stubProposer) ProposerType() string { return p.typ }
func (p stubProposer) ProposerID() string   { return p.id }
