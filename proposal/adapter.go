package proposal

import "context"

// Adapter accumulates the options for a proposal and resolves it into a
// token. Built by Registry.Propose, used as a fluent chain:
//
//	token, err := registry.Propose("User").
//		ForResource(team).
//		With(map[string]any{"role": "admin"}).
//		To(ctx, "user@example.com")
type Adapter struct {
	registry *Registry
	typeName string
	opts     proposeOptions
	resource Resource
	proposer Proposer
	args     Arguments
	err      error
}

// ForResource scopes the proposal to an owning resource.
func (a *Adapter) ForResource(resource Resource) *Adapter {
	a.resource = resource
	return a
}

// By records the actor making the proposal.
func (a *Adapter) By(proposer Proposer) *Adapter {
	a.proposer = proposer
	return a
}

// With stages the arguments carried to acceptance. A single map argument
// is kept as a mapping, anything else as a sequence.
func (a *Adapter) With(args ...any) *Adapter {
	a.args = NewArguments(args...)
	return a
}

// WithArgs stages an already-shaped payload.
func (a *Adapter) WithArgs(args Arguments) *Adapter {
	a.args = args
	return a
}

// To resolves the accumulated options into a token for the email via
// find-or-new: an existing pending, non-expired token on the same dedup
// key is returned as-is (its action resolves to a remind variant); a miss
// yields a fresh, unsaved token with a newly generated value.
func (a *Adapter) To(ctx context.Context, email string, overrides ...ProposeOption) (*Token, error) {
	if a.err != nil {
		return nil, a.err
	}
	opts := a.opts
	for _, opt := range overrides {
		opt(&opts)
	}

	key := TokenKey{Email: email, ProposableType: a.typeName}
	if a.resource != nil {
		resType := a.resource.ResourceType()
		resID := a.resource.ResourceID()
		key.ResourceType = &resType
		key.ResourceID = &resID
	}

	r := a.registry
	existing, err := r.store.FindPending(ctx, key, r.clock.Now())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		r.Bind(existing)
		existing.expects = opts.expects
		if opts.expires != nil {
			existing.expires = opts.expires
		}
		return existing, nil
	}

	value, err := generateTokenValue(r.rand)
	if err != nil {
		return nil, err
	}
	t := &Token{
		Token:          value,
		Email:          email,
		ProposableType: a.typeName,
		ResourceType:   key.ResourceType,
		ResourceID:     key.ResourceID,
		Arguments:      a.args,
	}
	if a.proposer != nil {
		propType := a.proposer.ProposerType()
		propID := a.proposer.ProposerID()
		t.ProposerType = &propType
		t.ProposerID = &propID
	}
	r.Bind(t)
	t.expects = opts.expects
	if opts.expires != nil {
		t.expires = opts.expires
	}
	return t, nil
}
