package proposal

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Action is the message a caller should send for a token, derived from
// whether the token is already persisted (second-or-later proposal) and
// whether a recipient record already exists for its email.
type Action string

const (
	ActionNone         Action = ""
	ActionInvite       Action = "invite"
	ActionNotify       Action = "notify"
	ActionInviteRemind Action = "invite_remind"
	ActionNotifyRemind Action = "notify_remind"
)

// RecipientLookup resolves an existing record of the proposable type by
// email. (nil, nil) means no such record.
type RecipientLookup interface {
	FindRecipientByEmail(ctx context.Context, email string) (any, error)
}

// Token is a single-use, expiring proposal credential addressed to an
// email, optionally scoped to an owning resource and a proposer.
type Token struct {
	bun.BaseModel `bun:"table:proposal_tokens,alias:pt"`

	ID             uuid.UUID  `json:"id" bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Token          string     `json:"token" bun:"token,notnull,unique"`
	Email          string     `json:"email" bun:"email,notnull"`
	ProposableType string     `json:"proposable_type" bun:"proposable_type,notnull"`
	ResourceType   *string    `json:"resource_type,omitempty" bun:"resource_type,nullzero"`
	ResourceID     *string    `json:"resource_id,omitempty" bun:"resource_id,nullzero"`
	ProposerType   *string    `json:"proposer_type,omitempty" bun:"proposer_type,nullzero"`
	ProposerID     *string    `json:"proposer_id,omitempty" bun:"proposer_id,nullzero"`
	Arguments      Arguments  `json:"arguments,omitempty" bun:"arguments,type:jsonb,nullzero"`
	ExpiresAt      time.Time  `json:"expires_at" bun:"expires_at,notnull"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty" bun:"accepted_at,nullzero"`
	RemindedAt     *time.Time `json:"reminded_at,omitempty" bun:"reminded_at,nullzero"`
	CreatedAt      time.Time  `json:"created_at" bun:"created_at,notnull,default:now()"`
	UpdatedAt      time.Time  `json:"updated_at" bun:"updated_at,notnull,default:now()"`

	// Runtime collaborators, wired by the registry; never persisted.
	expects       Expectation
	expires       Expires
	clock         Clock
	store         TokenStore
	lookup        RecipientLookup
	recipient     any
	recipientDone bool
	violations    Violations
}

// String renders the token as its opaque value.
func (t *Token) String() string { return t.Token }

// Persisted reports whether the token has been assigned an identity by
// the store. A persisted match from FindOrNew is what turns an action
// into its remind variant.
func (t *Token) Persisted() bool { return t.ID != uuid.Nil }

// Accepted reports whether the token was terminally accepted.
func (t *Token) Accepted() bool { return t.AcceptedAt != nil }

// Pending is the inverse of Accepted; expiry is orthogonal.
func (t *Token) Pending() bool { return t.AcceptedAt == nil }

// Expired compares the expiry against the clock; a token expiring exactly
// now is expired.
func (t *Token) Expired() bool {
	return !t.now().Before(t.ExpiresAt)
}

// Violations returns the set populated by the last Validate/Acceptable run.
func (t *Token) Violations() *Violations { return &t.violations }

// Key returns the dedup key occupied by this token.
func (t *Token) Key() TokenKey {
	return TokenKey{
		Email:          t.Email,
		ProposableType: t.ProposableType,
		ResourceType:   t.ResourceType,
		ResourceID:     t.ResourceID,
	}
}

// Validate runs the full validation pass and repopulates the violation
// set: required fields, email format, the arguments contract when an
// expectation is attached, the dedup probe for unsaved tokens, and the
// advisory expired/accepted state guards.
func (t *Token) Validate(ctx context.Context) (*Violations, error) {
	t.resolveExpiry()
	t.violations.clear()
	v := &t.violations

	if strings.TrimSpace(t.Email) == "" {
		v.Add("email", "can't be blank")
	}
	if t.Token == "" {
		v.Add("token", "can't be blank")
	}
	if strings.TrimSpace(t.ProposableType) == "" {
		v.Add("proposable_type", "can't be blank")
	}
	if t.ExpiresAt.IsZero() {
		v.Add("expires_at", "can't be blank")
	}

	validateEmail(t.Email, v)

	if t.expects.Present() {
		validateArguments(t.Arguments, t.expects, v)
	}

	if !t.Persisted() && t.store != nil {
		taken, err := t.store.PendingExists(ctx, t.Key(), t.now(), t.ID)
		if err != nil {
			return v, err
		}
		if taken {
			v.Add("email", "already has an outstanding proposal")
		}
	}

	// Advisory state guards: recorded so Acceptable callers can inspect
	// them, without blocking saves of already-accepted rows.
	if t.Expired() {
		v.Add("token", "has expired")
	}
	if t.Accepted() {
		v.Add("token", "has been accepted")
	}

	return v, nil
}

// Acceptable runs Validate and reports whether the token can still be
// accepted: not expired and not yet accepted.
func (t *Token) Acceptable(ctx context.Context) (bool, error) {
	if _, err := t.Validate(ctx); err != nil {
		return false, err
	}
	return !t.Expired() && !t.Accepted(), nil
}

// Save validates and persists the token: an insert for a fresh token, a
// column rewrite for a persisted one. It returns false with the violation
// set populated when validation or the store's uniqueness constraint
// rejects it; the error is reserved for store failures.
func (t *Token) Save(ctx context.Context) (bool, error) {
	if t.store == nil {
		return false, fmt.Errorf("proposal: token is not bound to a store")
	}
	if t.Token == "" && !t.Persisted() {
		value, err := generateTokenValue(nil)
		if err != nil {
			return false, err
		}
		t.Token = value
	}
	if _, err := t.Validate(ctx); err != nil {
		return false, err
	}
	if t.blockingViolations() {
		return false, nil
	}

	now := t.now()
	t.UpdatedAt = now
	if t.Persisted() {
		if err := t.store.Update(ctx, t); err != nil {
			return false, err
		}
		return true, nil
	}

	t.CreatedAt = now
	if err := t.store.Insert(ctx, t); err != nil {
		if isDuplicate(err) {
			t.violations.Add("email", "already has an outstanding proposal")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Action derives which message to send. It resolves to none once the
// token is expired or accepted; otherwise persistence picks the remind
// variant and the recipient lookup picks invite vs notify.
func (t *Token) Action(ctx context.Context) (Action, error) {
	if t.Expired() || t.Accepted() {
		return ActionNone, nil
	}
	recipient, err := t.Recipient(ctx)
	if err != nil {
		return ActionNone, err
	}
	switch {
	case t.Persisted() && recipient != nil:
		return ActionNotifyRemind, nil
	case t.Persisted():
		return ActionInviteRemind, nil
	case recipient == nil:
		return ActionInvite, nil
	default:
		return ActionNotify, nil
	}
}

// Invite reports whether the action is a first-time invite.
func (t *Token) Invite(ctx context.Context) (bool, error) { return t.actionIs(ctx, ActionInvite) }

// Notify reports whether the action is a first-time notify.
func (t *Token) Notify(ctx context.Context) (bool, error) { return t.actionIs(ctx, ActionNotify) }

// InviteRemind reports whether the action is the invite remind variant.
func (t *Token) InviteRemind(ctx context.Context) (bool, error) {
	return t.actionIs(ctx, ActionInviteRemind)
}

// NotifyRemind reports whether the action is the notify remind variant.
func (t *Token) NotifyRemind(ctx context.Context) (bool, error) {
	return t.actionIs(ctx, ActionNotifyRemind)
}

// Remind reports whether the action is either remind variant.
func (t *Token) Remind(ctx context.Context) (bool, error) {
	action, err := t.Action(ctx)
	if err != nil {
		return false, err
	}
	return action == ActionInviteRemind || action == ActionNotifyRemind, nil
}

func (t *Token) actionIs(ctx context.Context, want Action) (bool, error) {
	action, err := t.Action(ctx)
	if err != nil {
		return false, err
	}
	return action == want, nil
}

// Accept transitions the token to accepted when it is still acceptable,
// returning false with violations populated otherwise. The stamp is a
// single-row touch; acceptedAt is never overwritten.
func (t *Token) Accept(ctx context.Context) (bool, error) {
	ok, err := t.Acceptable(ctx)
	if err != nil || !ok {
		return false, err
	}
	if err := t.touch(ctx, "accepted_at", &t.AcceptedAt); err != nil {
		return false, err
	}
	return true, nil
}

// MustAccept is the strict form: ErrExpired for an expired token,
// ErrAccepted for an already-accepted one.
func (t *Token) MustAccept(ctx context.Context) error {
	if t.Expired() {
		return ErrExpired
	}
	if t.Accepted() {
		return ErrAccepted
	}
	return t.touch(ctx, "accepted_at", &t.AcceptedAt)
}

// Reminded stamps remindedAt when the token's action is a remind variant.
// Idempotent: each eligible call re-stamps.
func (t *Token) Reminded(ctx context.Context) (bool, error) {
	remind, err := t.Remind(ctx)
	if err != nil || !remind {
		return false, err
	}
	if err := t.touch(ctx, "reminded_at", &t.RemindedAt); err != nil {
		return false, err
	}
	return true, nil
}

// MustReminded is the strict form of Reminded, returning ErrNotRemindable
// when no reminder is due.
func (t *Token) MustReminded(ctx context.Context) error {
	remind, err := t.Remind(ctx)
	if err != nil {
		return err
	}
	if !remind {
		return ErrNotRemindable
	}
	return t.touch(ctx, "reminded_at", &t.RemindedAt)
}

// Recipient lazily resolves the existing record of the proposable type
// with this token's email, memoizing the result. (nil, nil) when none
// exists or no lookup is wired.
func (t *Token) Recipient(ctx context.Context) (any, error) {
	if t.recipientDone {
		return t.recipient, nil
	}
	if t.lookup == nil {
		return nil, nil
	}
	recipient, err := t.lookup.FindRecipientByEmail(ctx, t.Email)
	if err != nil {
		return nil, err
	}
	t.recipient = recipient
	t.recipientDone = true
	return recipient, nil
}

// MustRecipient is the strict form of Recipient, returning
// ErrRecipientNotFound when no record matches.
func (t *Token) MustRecipient(ctx context.Context) (any, error) {
	recipient, err := t.Recipient(ctx)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}
	return recipient, nil
}

// bind wires the runtime collaborators onto a token built or loaded by
// the registry.
func (t *Token) bind(store TokenStore, clock Clock, lookup RecipientLookup, expects Expectation, expires Expires) {
	t.store = store
	t.clock = clock
	t.lookup = lookup
	t.expects = expects
	t.expires = expires
}

// SetExpects overrides the argument expectation for this token.
func (t *Token) SetExpects(e Expectation) { t.expects = e }

// SetExpires overrides the expiry strategy. A nil strategy is a
// programming error.
func (t *Token) SetExpires(e Expires) {
	if e == nil {
		panic("proposal: expires strategy must not be nil")
	}
	t.expires = e
}

func (t *Token) resolveExpiry() {
	if !t.ExpiresAt.IsZero() {
		return
	}
	strategy := t.expires
	if strategy == nil {
		strategy = DefaultExpiry
	}
	t.ExpiresAt = strategy.ExpiresAt(t.now())
}

// blockingViolations filters out the advisory state guards so a save of
// an already-accepted or expired row is not unconditionally rejected.
func (t *Token) blockingViolations() bool {
	for _, field := range t.violations.Fields() {
		for _, msg := range t.violations.On(field) {
			if field == "token" && (msg == "has expired" || msg == "has been accepted") {
				continue
			}
			return true
		}
	}
	return false
}

func (t *Token) touch(ctx context.Context, column string, field **time.Time) error {
	now := t.now()
	*field = &now
	t.UpdatedAt = now
	if t.Persisted() && t.store != nil {
		return t.store.Touch(ctx, t, column, now)
	}
	return nil
}

func (t *Token) now() time.Time {
	if t.clock != nil {
		return t.clock.Now()
	}
	return time.Now()
}

// tokenReplacer remaps characters that are easy to mistranscribe (and the
// base64 symbols that are awkward in URLs) onto an unambiguous alphabet.
var tokenReplacer = strings.NewReplacer(
	"+", "p", "/", "q", "=", "r", "l", "s", "I", "x", "O", "y", "0", "z",
)

// generateTokenValue renders 20 bytes of entropy into the substituted
// alphabet. Generated once per token, never regenerated.
func generateTokenValue(src io.Reader) (string, error) {
	if src == nil {
		src = rand.Reader
	}
	buf := make([]byte, 20)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenReplacer.Replace(base64.StdEncoding.EncodeToString(buf)), nil
}
