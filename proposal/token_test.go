package proposal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T, opts ...ProposeOption) (*Registry, *memStore, *fakeClock, *stubProposable) {
	t.Helper()
	store := newMemStore()
	clock := newFakeClock(testEpoch)
	users := newStubProposable("User")
	registry := NewRegistry(store, WithClock(clock))
	registry.Register(users, opts...)
	return registry, store, clock, users
}

func TestGenerateTokenValue(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		value, err := generateTokenValue(nil)
		require.NoError(t, err)

		// 20 bytes of entropy encode to 28 base64 characters.
		assert.Len(t, value, 28)
		assert.False(t, strings.ContainsAny(value, "+/=lIO0"), value)
		assert.False(t, seen[value], "token values must not repeat")
		seen[value] = true
	}
}

func TestGenerateTokenValueSubstitution(t *testing.T) {
	// 0xFF * 20 encodes to a run of slashes and a padded tail, all of
	// which must land in the substituted alphabet.
	src := strings.NewReader(strings.Repeat("\xff", 20))
	value, err := generateTokenValue(src)
	require.NoError(t, err)
	assert.False(t, strings.ContainsAny(value, "+/=lIO0"), value)
}

func TestProposeInviteFlow(t *testing.T) {
	ctx := context.Background()
	registry, store, _, _ := newTestRegistry(t)

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.False(t, token.Persisted())
	assert.NotEmpty(t, token.String())

	action, err := token.Action(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionInvite, action)

	saved, err := token.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved, "violations: %v", token.Violations().Full())
	assert.True(t, token.Persisted())
	assert.Equal(t, 1, store.count())
	assert.Equal(t, testEpoch.Add(365*24*time.Hour), token.ExpiresAt)
}

func TestProposeNotifyWhenRecipientExists(t *testing.T) {
	ctx := context.Background()
	registry, _, _, users := newTestRegistry(t)
	users.add("member@example.com")

	token, err := registry.Propose("User").To(ctx, "member@example.com")
	require.NoError(t, err)

	action, err := token.Action(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionNotify, action)

	notify, err := token.Notify(ctx)
	require.NoError(t, err)
	assert.True(t, notify)
}

func TestFindOrNewReturnsExistingPendingToken(t *testing.T) {
	ctx := context.Background()
	registry, store, _, _ := newTestRegistry(t)

	first, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	saved, err := first.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)

	second, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	assert.True(t, second.Persisted())
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, 1, store.count())

	action, err := second.Action(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionInviteRemind, action)

	remind, err := second.Remind(ctx)
	require.NoError(t, err)
	assert.True(t, remind)
}

func TestFindOrNewRemindVariantFollowsRecipient(t *testing.T) {
	ctx := context.Background()
	registry, _, _, users := newTestRegistry(t)

	first, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	_, err = first.Save(ctx)
	require.NoError(t, err)

	// The invited user signed up in the meantime.
	users.add("new@example.com")

	second, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	action, err := second.Action(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionNotifyRemind, action)
}

func TestFindOrNewScopedByResource(t *testing.T) {
	ctx := context.Background()
	registry, store, _, _ := newTestRegistry(t)
	teamA := stubResource{typ: "Team", id: "a"}
	teamB := stubResource{typ: "Team", id: "b"}

	first, err := registry.Propose("User").ForResource(teamA).To(ctx, "new@example.com")
	require.NoError(t, err)
	saved, err := first.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)

	// Same email under a different resource is a fresh proposal.
	second, err := registry.Propose("User").ForResource(teamB).To(ctx, "new@example.com")
	require.NoError(t, err)
	assert.False(t, second.Persisted())
	saved, err = second.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved, "violations: %v", second.Violations().Full())
	assert.Equal(t, 2, store.count())

	// Same email under the same resource resolves to the existing one.
	again, err := registry.Propose("User").ForResource(teamA).To(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.String(), again.String())
}

func TestFindOrNewIgnoresProposer(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)
	alice := stubProposer{typ: "User", id: "alice"}
	bob := stubProposer{typ: "User", id: "bob"}

	first, err := registry.Propose("User").By(alice).To(ctx, "new@example.com")
	require.NoError(t, err)
	_, err = first.Save(ctx)
	require.NoError(t, err)

	// A different proposer still lands on the same outstanding token.
	second, err := registry.Propose("User").By(bob).To(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.String(), second.String())
	require.NotNil(t, second.ProposerID)
	assert.Equal(t, "alice", *second.ProposerID)
}

func TestFindOrNewKeepsExistingArguments(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)

	first, err := registry.Propose("User").
		With(map[string]any{"role": "admin"}).
		To(ctx, "new@example.com")
	require.NoError(t, err)
	_, err = first.Save(ctx)
	require.NoError(t, err)

	second, err := registry.Propose("User").
		With(map[string]any{"role": "viewer"}).
		To(ctx, "new@example.com")
	require.NoError(t, err)

	role, ok := second.Arguments.Get("role")
	require.True(t, ok)
	assert.Equal(t, "admin", role)
}

func TestProposeUnknownType(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)

	token, err := registry.Propose("Ghost").To(ctx, "new@example.com")
	assert.ErrorIs(t, err, ErrUnknownProposable)
	assert.Nil(t, token)
}

func TestSaveValidations(t *testing.T) {
	ctx := context.Background()
	registry, store, _, _ := newTestRegistry(t)

	token, err := registry.Propose("User").To(ctx, "not-an-email")
	require.NoError(t, err)

	saved, err := token.Save(ctx)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, []string{"is not valid"}, token.Violations().On("email"))
	assert.Zero(t, store.count())
}

func TestSaveBlankEmail(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)

	token, err := registry.Propose("User").To(ctx, "")
	require.NoError(t, err)

	saved, err := token.Save(ctx)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Contains(t, token.Violations().On("email"), "can't be blank")
}

func TestSaveArgumentExpectations(t *testing.T) {
	ctx := context.Background()
	registry, store, _, _ := newTestRegistry(t, WithExpects(ExpectKey("role")))

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)

	saved, err := token.Save(ctx)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, []string{"must be a hash", "is missing role"}, token.Violations().On("arguments"))
	assert.Zero(t, store.count())

	token.Arguments = ArgsMap(map[string]any{"role": "admin"})
	saved, err = token.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved, "violations: %v", token.Violations().Full())
}

func TestSaveRejectsDuplicatePending(t *testing.T) {
	ctx := context.Background()
	registry, store, _, _ := newTestRegistry(t)

	first, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	_, err = first.Save(ctx)
	require.NoError(t, err)

	// Build a second token by hand, bypassing find-or-new, the way a
	// lost creation race would.
	dup := &Token{
		Token:          "racetoken",
		Email:          "new@example.com",
		ProposableType: "User",
	}
	registry.Bind(dup)

	saved, err := dup.Save(ctx)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Contains(t, dup.Violations().On("email"), "already has an outstanding proposal")
	assert.Equal(t, 1, store.count())
}

func TestDuplicateInsertFromStoreBecomesViolation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	clock := newFakeClock(testEpoch)

	// Two tokens validated against an empty store, then inserted in
	// sequence: the probe misses for both, the second insert hits the
	// store's uniqueness constraint.
	a := &Token{Token: "token-a", Email: "race@example.com", ProposableType: "User"}
	b := &Token{Token: "token-b", Email: "race@example.com", ProposableType: "User"}
	a.bind(store, clock, nil, Expectation{}, nil)
	b.bind(store, clock, nil, Expectation{}, nil)

	a.resolveExpiry()
	b.resolveExpiry()
	_, err := a.Validate(ctx)
	require.NoError(t, err)
	_, err = b.Validate(ctx)
	require.NoError(t, err)
	require.False(t, a.Violations().Any())
	require.False(t, b.Violations().Any())

	require.NoError(t, store.Insert(ctx, a))
	err = store.Insert(ctx, b)
	require.ErrorIs(t, err, ErrDuplicate)

	// Save on a fresh equivalent token converts the constraint error.
	c := &Token{Token: "token-c", Email: "other@example.com", ProposableType: "User"}
	c.bind(store, clock, nil, Expectation{}, nil)
	saved, err := c.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestExpiredToken(t *testing.T) {
	ctx := context.Background()
	registry, _, clock, _ := newTestRegistry(t)

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	saved, err := token.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)

	clock.Advance(365*24*time.Hour + time.Second)

	assert.True(t, token.Expired())

	ok, err := token.Acceptable(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, token.Violations().On("token"), "has expired")

	action, err := token.Action(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)

	accepted, err := token.Accept(ctx)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.ErrorIs(t, token.MustAccept(ctx), ErrExpired)
}

func TestExpiryExactBoundary(t *testing.T) {
	ctx := context.Background()
	registry, _, clock, _ := newTestRegistry(t)

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	_, err = token.Save(ctx)
	require.NoError(t, err)

	// A token expiring exactly now is expired.
	clock.Advance(365 * 24 * time.Hour)
	assert.True(t, token.Expired())
}

func TestCustomExpiryStrategy(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t, WithExpires(ExpiresIn(48*time.Hour)))

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	saved, err := token.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)

	assert.Equal(t, testEpoch.Add(48*time.Hour), token.ExpiresAt)
}

func TestExpiresFuncResolvedAtSaveTime(t *testing.T) {
	ctx := context.Background()
	deadline := testEpoch.Add(6 * time.Hour)
	registry, _, clock, _ := newTestRegistry(t, WithExpires(ExpiresFunc(func() time.Time {
		return deadline
	})))

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)

	// Expiry is not resolved until validation/save.
	assert.True(t, token.ExpiresAt.IsZero())

	clock.Advance(time.Hour)
	saved, err := token.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)
	assert.Equal(t, deadline, token.ExpiresAt)
}

func TestPastExpiryStrategyMakesTokenUnacceptable(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t, WithExpires(ExpiresFunc(func() time.Time {
		return testEpoch.Add(-24 * time.Hour)
	})))

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)

	ok, err := token.Acceptable(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, token.Violations().On("token"), "has expired")
}

func TestPerCallExpiryOverride(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t, WithExpires(ExpiresIn(48*time.Hour)))

	token, err := registry.Propose("User").To(ctx, "new@example.com", WithExpires(ExpiresIn(time.Hour)))
	require.NoError(t, err)
	saved, err := token.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)

	assert.Equal(t, testEpoch.Add(time.Hour), token.ExpiresAt)
}

func TestAcceptTransitionsOnce(t *testing.T) {
	ctx := context.Background()
	registry, store, _, _ := newTestRegistry(t)

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	_, err = token.Save(ctx)
	require.NoError(t, err)

	accepted, err := token.Accept(ctx)
	require.NoError(t, err)
	require.True(t, accepted)
	require.NotNil(t, token.AcceptedAt)
	assert.False(t, token.Pending())

	firstStamp := *token.AcceptedAt

	// Second accept fails without overwriting the stamp.
	accepted, err = token.Accept(ctx)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Contains(t, token.Violations().On("token"), "has been accepted")
	assert.Equal(t, firstStamp, *token.AcceptedAt)

	assert.ErrorIs(t, token.MustAccept(ctx), ErrAccepted)

	// The stamp reached the store.
	stored, err := store.FindByToken(ctx, token.String())
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.AcceptedAt)
}

func TestAcceptedTokenFreesTheKey(t *testing.T) {
	ctx := context.Background()
	registry, store, clock, _ := newTestRegistry(t)

	first, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	_, err = first.Save(ctx)
	require.NoError(t, err)
	_, err = first.Accept(ctx)
	require.NoError(t, err)

	// Assigning a fresh expiry keeps the new row clear of the accepted
	// one in the store's uniqueness scope.
	clock.Advance(time.Minute)

	second, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	assert.False(t, second.Persisted())

	saved, err := second.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved, "violations: %v", second.Violations().Full())
	assert.Equal(t, 2, store.count())
}

func TestRemindedStampsOnlyPersistedTokens(t *testing.T) {
	ctx := context.Background()
	registry, _, clock, _ := newTestRegistry(t)

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)

	// Fresh token: no reminder due.
	reminded, err := token.Reminded(ctx)
	require.NoError(t, err)
	assert.False(t, reminded)
	assert.ErrorIs(t, token.MustReminded(ctx), ErrNotRemindable)

	_, err = token.Save(ctx)
	require.NoError(t, err)

	reminded, err = token.Reminded(ctx)
	require.NoError(t, err)
	require.True(t, reminded)
	require.NotNil(t, token.RemindedAt)
	first := *token.RemindedAt

	// Eligible calls re-stamp.
	clock.Advance(time.Hour)
	reminded, err = token.Reminded(ctx)
	require.NoError(t, err)
	require.True(t, reminded)
	assert.True(t, token.RemindedAt.After(first))
}

func TestRemindedRefusedOnceAccepted(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	_, err = token.Save(ctx)
	require.NoError(t, err)
	_, err = token.Accept(ctx)
	require.NoError(t, err)

	reminded, err := token.Reminded(ctx)
	require.NoError(t, err)
	assert.False(t, reminded)
	assert.ErrorIs(t, token.MustReminded(ctx), ErrNotRemindable)
	assert.Nil(t, token.RemindedAt)
}

func TestRecipientMemoization(t *testing.T) {
	ctx := context.Background()
	registry, _, _, users := newTestRegistry(t)
	users.add("member@example.com")

	token, err := registry.Propose("User").To(ctx, "member@example.com")
	require.NoError(t, err)

	recipient, err := token.Recipient(ctx)
	require.NoError(t, err)
	assert.Equal(t, "member@example.com", recipient)

	// Deleting the record afterwards does not change the memoized result.
	users.mu.Lock()
	delete(users.emails, "member@example.com")
	users.mu.Unlock()

	recipient, err = token.Recipient(ctx)
	require.NoError(t, err)
	assert.Equal(t, "member@example.com", recipient)
}

func TestMustRecipient(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)

	token, err := registry.Propose("User").To(ctx, "ghost@example.com")
	require.NoError(t, err)

	_, err = token.MustRecipient(ctx)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestRegistryFindByToken(t *testing.T) {
	ctx := context.Background()
	registry, _, _, _ := newTestRegistry(t)

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)
	_, err = token.Save(ctx)
	require.NoError(t, err)

	found, err := registry.FindByToken(ctx, token.String())
	require.NoError(t, err)
	assert.Equal(t, token.ID, found.ID)

	// Loaded tokens come back bound: state transitions work on them.
	require.NoError(t, found.MustAccept(ctx))

	_, err = registry.FindByToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRegistryWithRandIsDeterministic(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	registry := NewRegistry(store,
		WithClock(newFakeClock(testEpoch)),
		WithRand(strings.NewReader(strings.Repeat("\x01", 40))),
	)
	registry.Register(newStubProposable("User"))

	token, err := registry.Propose("User").To(ctx, "new@example.com")
	require.NoError(t, err)

	want, err := generateTokenValue(strings.NewReader(strings.Repeat("\x01", 20)))
	require.NoError(t, err)
	assert.Equal(t, want, token.String())
}

func TestPersisted(t *testing.T) {
	token := &Token{}
	assert.False(t, token.Persisted())
	token.ID = uuid.New()
	assert.True(t, token.Persisted())
}

func TestSetExpiresNilPanics(t *testing.T) {
	token := &Token{}
	assert.Panics(t, func() { token.SetExpires(nil) })
	assert.Panics(t, func() { WithExpires(nil) })
}
