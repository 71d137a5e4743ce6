package proposal

import (
	"context"
	"io"
	"sync"
)

// Proposable is the capability a record type implements to receive
// proposals: a stable name and a lookup of existing records by email.
type Proposable interface {
	RecipientLookup
	ProposableName() string
}

// Resource scopes a token to an owning entity, allowing one email to hold
// several concurrent proposals under different resources.
type Resource interface {
	ResourceType() string
	ResourceID() string
}

// Proposer identifies the actor that initiated a proposal.
type Proposer interface {
	ProposerType() string
	ProposerID() string
}

// ProposeOption configures the defaults a proposable type registers, and
// can also be supplied per call on Adapter.To.
type ProposeOption func(*proposeOptions)

type proposeOptions struct {
	expects Expectation
	expires Expires
}

// WithExpects sets the argument contract proposals of this type must meet.
func WithExpects(e Expectation) ProposeOption {
	return func(o *proposeOptions) { o.expects = e }
}

// WithExpires sets the expiry strategy, resolved at save time. A nil
// strategy is a programming error.
func WithExpires(e Expires) ProposeOption {
	if e == nil {
		panic("proposal: expires strategy must not be nil")
	}
	return func(o *proposeOptions) { o.expires = e }
}

type registration struct {
	proposable Proposable
	opts       proposeOptions
}

// RegistryOption configures the registry's collaborators.
type RegistryOption func(*Registry)

// WithClock substitutes the time source.
func WithClock(c Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

// WithRand substitutes the entropy source used for token values.
func WithRand(src io.Reader) RegistryOption {
	return func(r *Registry) { r.rand = src }
}

// Registry maps proposable type names to their capability and default
// options. Populated at startup, looked up by string key at resolution
// time; no reflection involved.
type Registry struct {
	store TokenStore
	clock Clock
	rand  io.Reader

	mu    sync.RWMutex
	types map[string]registration
}

// NewRegistry builds a registry over the given store.
func NewRegistry(store TokenStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		store: store,
		clock: SystemClock,
		types: make(map[string]registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs a proposable type with its default options,
// overwriting any previous registration under the same name.
func (r *Registry) Register(p Proposable, opts ...ProposeOption) {
	var o proposeOptions
	for _, opt := range opts {
		opt(&o)
	}
	r.mu.Lock()
	r.types[p.ProposableName()] = registration{proposable: p, opts: o}
	r.mu.Unlock()
}

// Lookup resolves a registered proposable by name.
func (r *Registry) Lookup(name string) (Proposable, bool) {
	r.mu.RLock()
	reg, ok := r.types[name]
	r.mu.RUnlock()
	return reg.proposable, ok
}

func (r *Registry) registration(name string) (registration, bool) {
	r.mu.RLock()
	reg, ok := r.types[name]
	r.mu.RUnlock()
	return reg, ok
}

// Propose starts an adapter for the named proposable type, seeded with
// its registered defaults. The can-propose entry point.
func (r *Registry) Propose(name string) *Adapter {
	a := &Adapter{registry: r, typeName: name}
	reg, ok := r.registration(name)
	if !ok {
		a.err = ErrUnknownProposable
		return a
	}
	a.opts = reg.opts
	return a
}

// Proposals lists every token addressed at the named proposable type.
func (r *Registry) Proposals(ctx context.Context, name string) ([]*Token, error) {
	tokens, err := r.store.List(ctx, TokenQuery{ProposableType: name})
	if err != nil {
		return nil, err
	}
	r.bindAll(tokens)
	return tokens, nil
}

// ProposalsFor lists every token scoped to the given resource. The
// has-proposals capability.
func (r *Registry) ProposalsFor(ctx context.Context, resource Resource) ([]*Token, error) {
	resType := resource.ResourceType()
	resID := resource.ResourceID()
	tokens, err := r.store.List(ctx, TokenQuery{ResourceType: &resType, ResourceID: &resID})
	if err != nil {
		return nil, err
	}
	r.bindAll(tokens)
	return tokens, nil
}

// Query lists tokens by arbitrary exact-match constraints, binding each
// result's collaborators.
func (r *Registry) Query(ctx context.Context, q TokenQuery) ([]*Token, error) {
	tokens, err := r.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	r.bindAll(tokens)
	return tokens, nil
}

// FindByToken resolves a persisted token by its opaque value and binds
// its collaborators. Returns ErrTokenNotFound for an unknown value.
func (r *Registry) FindByToken(ctx context.Context, value string) (*Token, error) {
	t, err := r.store.FindByToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTokenNotFound
	}
	r.Bind(t)
	return t, nil
}

// Bind wires the registry's collaborators onto a token loaded outside the
// registry, using the defaults registered for its proposable type.
func (r *Registry) Bind(t *Token) {
	reg, ok := r.registration(t.ProposableType)
	var lookup RecipientLookup
	if ok {
		lookup = reg.proposable
	}
	t.bind(r.store, r.clock, lookup, reg.opts.expects, reg.opts.expires)
}

func (r *Registry) bindAll(tokens []*Token) {
	for _, t := range tokens {
		r.Bind(t)
	}
}
