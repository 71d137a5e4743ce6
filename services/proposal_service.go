package services

import (
	"context"
	"time"

	"proposal_server/database"
	"proposal_server/proposal"
	"proposal_server/structs"

	"github.com/MonkyMars/gecho"
)

// ProposalService wires the proposal registry over the Postgres token
// store and exposes the operations the HTTP layer calls.
type ProposalService struct {
	logger   *gecho.Logger
	cfg      *structs.Config
	registry *proposal.Registry
}

func NewProposalService(logger *gecho.Logger, cfg *structs.Config, db *database.DB, users *UserService) *ProposalService {
	store := database.NewProposalStore(db)
	registry := proposal.NewRegistry(store)

	// The built-in proposable. Additional types register here the same way.
	registry.Register(
		NewUserProposable(users),
		proposal.WithExpires(proposal.ExpiresIn(cfg.Proposal.UserExpiry)),
	)

	return &ProposalService{
		logger:   logger,
		cfg:      cfg,
		registry: registry,
	}
}

// Registry exposes the underlying registry so callers can register
// further proposable types at startup.
func (ps *ProposalService) Registry() *proposal.Registry { return ps.registry }

type resourceRef struct{ typ, id string }

func (r resourceRef) ResourceType() string { return r.typ }
func (r resourceRef) ResourceID() string   { return r.id }

type proposerRef struct{ typ, id string }

func (p proposerRef) ProposerType() string { return p.typ }
func (p proposerRef) ProposerID() string   { return p.id }

// Propose resolves a token for the request via find-or-new and saves it.
// The action is derived before the save, so a fresh token reports
// invite/notify while a re-located pending token reports a remind
// variant. A false saved flag means validation failed; inspect the
// token's violations.
func (ps *ProposalService) Propose(ctx context.Context, req *structs.ProposeRequest) (*proposal.Token, proposal.Action, bool, error) {
	startTime := time.Now()

	adapter := ps.registry.Propose(req.ProposableType)
	if req.ResourceType != "" && req.ResourceID != "" {
		adapter = adapter.ForResource(resourceRef{typ: req.ResourceType, id: req.ResourceID})
	}
	if req.ProposerType != "" && req.ProposerID != "" {
		adapter = adapter.By(proposerRef{typ: req.ProposerType, id: req.ProposerID})
	}
	switch {
	case req.Arguments != nil:
		adapter = adapter.WithArgs(proposal.ArgsMap(req.Arguments))
	case req.ArgumentsList != nil:
		adapter = adapter.WithArgs(proposal.ArgsList(req.ArgumentsList...))
	}

	token, err := adapter.To(ctx, req.Email)
	if err != nil {
		ps.logger.Error("Failed to resolve proposal token",
			gecho.Field("email", req.Email),
			gecho.Field("proposable_type", req.ProposableType),
			gecho.Field("error", err),
		)
		return nil, proposal.ActionNone, false, err
	}

	action, err := token.Action(ctx)
	if err != nil {
		return nil, proposal.ActionNone, false, err
	}

	saved, err := token.Save(ctx)
	if err != nil {
		return nil, proposal.ActionNone, false, err
	}
	if !saved {
		ps.logger.Debug("Proposal rejected by validation",
			gecho.Field("email", req.Email),
			gecho.Field("violations", token.Violations().Full()),
		)
		return token, action, false, nil
	}

	ps.logger.Debug("Proposal resolved",
		gecho.Field("token", token.String()),
		gecho.Field("action", string(action)),
		gecho.Field("elapsed_time_ms", time.Since(startTime).Milliseconds()),
	)
	return token, action, true, nil
}

// Get resolves a persisted token by its opaque value.
func (ps *ProposalService) Get(ctx context.Context, value string) (*proposal.Token, error) {
	return ps.registry.FindByToken(ctx, value)
}

// Accept terminally accepts the token, using the strict form so state
// misuse surfaces as ErrExpired / ErrAccepted.
func (ps *ProposalService) Accept(ctx context.Context, value string) (*proposal.Token, error) {
	token, err := ps.registry.FindByToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if err := token.MustAccept(ctx); err != nil {
		return token, err
	}
	ps.logger.Debug("Proposal accepted", gecho.Field("token", token.String()))
	return token, nil
}

// Remind stamps the reminder timestamp, using the strict form so a
// non-remindable token surfaces ErrNotRemindable.
func (ps *ProposalService) Remind(ctx context.Context, value string) (*proposal.Token, error) {
	token, err := ps.registry.FindByToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if err := token.MustReminded(ctx); err != nil {
		return token, err
	}
	ps.logger.Debug("Proposal reminder stamped", gecho.Field("token", token.String()))
	return token, nil
}

// List returns the tokens matching an arbitrary listing query.
func (ps *ProposalService) List(ctx context.Context, q *proposal.TokenQuery) ([]*proposal.Token, error) {
	return ps.registry.Query(ctx, *q)
}

// ListByType returns every proposal addressed at a proposable type.
func (ps *ProposalService) ListByType(ctx context.Context, typeName string) ([]*proposal.Token, error) {
	return ps.registry.Proposals(ctx, typeName)
}

// ListByResource returns every proposal scoped to a resource.
func (ps *ProposalService) ListByResource(ctx context.Context, resType, resID string) ([]*proposal.Token, error) {
	return ps.registry.ProposalsFor(ctx, resourceRef{typ: resType, id: resID})
}
