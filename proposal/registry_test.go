package proposal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTokens(t *testing.T, registry *Registry) (invited, accepted *Token) {
	t.Helper()
	ctx := context.Background()
	team := stubResource{typ: "Team", id: "t1"}

	invited, err := registry.Propose("User").ForResource(team).To(ctx, "invited@example.com")
	require.NoError(t, err)
	saved, err := invited.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)

	accepted, err = registry.Propose("User").To(ctx, "accepted@example.com")
	require.NoError(t, err)
	saved, err = accepted.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)
	require.NoError(t, accepted.MustAccept(ctx))

	return invited, accepted
}

func TestRegistryProposals(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)
	seedTokens(t, registry)

	tokens, err := registry.Proposals(ctx, "User")
	require.NoError(t, err)
	assert.Len(t, tokens, 2)

	tokens, err = registry.Proposals(ctx, "Team")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestRegistryProposalsFor(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)
	invited, _ := seedTokens(t, registry)

	tokens, err := registry.ProposalsFor(ctx, stubResource{typ: "Team", id: "t1"})
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, invited.String(), tokens[0].String())

	tokens, err = registry.ProposalsFor(ctx, stubResource{typ: "Team", id: "other"})
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestRegistryQueryStateFilters(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)
	invited, accepted := seedTokens(t, registry)

	pending, err := registry.Query(ctx, TokenQuery{State: StatePending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, invited.String(), pending[0].String())

	done, err := registry.Query(ctx, TokenQuery{State: StateAccepted})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, accepted.String(), done[0].String())

	all, err := registry.Query(ctx, TokenQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRegistryQueryResultsAreBound(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)
	seedTokens(t, registry)

	tokens, err := registry.Query(ctx, TokenQuery{State: StatePending})
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	// Bound results can run the full lifecycle.
	ok, err := tokens[0].Acceptable(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistryLookup(t *testing.T) {
	registry, _, _, users := newTestRegistry(t)

	found, ok := registry.Lookup("User")
	require.True(t, ok)
	assert.Same(t, Proposable(users), found)

	_, ok = registry.Lookup("Ghost")
	assert.False(t, ok)
}

func TestRegisterOverwrites(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t)
	replacement := newStubProposable("User")
	registry.Register(replacement)

	found, ok := registry.Lookup("User")
	require.True(t, ok)
	assert.Same(t, Proposable(replacement), found)
}
