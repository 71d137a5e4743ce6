package database

import (
	"context"
	"fmt"
	"time"

	"proposal_server/proposal"

	"github.com/google/uuid"
)

// ProposalStore is the Postgres-backed proposal.TokenStore. The dedup
// invariant is enforced by the partial unique index created in Migrate,
// so a lost find-or-new race surfaces as proposal.ErrDuplicate.
type ProposalStore struct {
	db *DB
}

// NewProposalStore builds a store over the given connection.
func NewProposalStore(db *DB) *ProposalStore {
	return &ProposalStore{db: db}
}

func pendingQuery(db *DB, key proposal.TokenKey, now time.Time) *QueryBuilder[proposal.Token] {
	q := Query[proposal.Token](db).
		Where("email", key.Email).
		Where("proposable_type", key.ProposableType).
		WhereNull("accepted_at").
		WhereOp("expires_at", ">", now)

	if key.ResourceType != nil {
		q = q.Where("resource_type", *key.ResourceType).Where("resource_id", *key.ResourceID)
	} else {
		q = q.WhereNull("resource_type").WhereNull("resource_id")
	}
	return q
}

// FindPending returns the pending, non-expired token on the key, if any.
func (s *ProposalStore) FindPending(ctx context.Context, key proposal.TokenKey, now time.Time) (*proposal.Token, error) {
	return pendingQuery(s.db, key, now).First(ctx)
}

// PendingExists reports whether a pending, non-expired token other than
// exclude occupies the key.
func (s *ProposalStore) PendingExists(ctx context.Context, key proposal.TokenKey, now time.Time, exclude uuid.UUID) (bool, error) {
	q := pendingQuery(s.db, key, now)
	if exclude != uuid.Nil {
		q = q.WhereOp("id", "!=", exclude)
	}
	return q.Exists(ctx)
}

// FindByToken resolves a token by its opaque value, (nil, nil) when unknown.
func (s *ProposalStore) FindByToken(ctx context.Context, value string) (*proposal.Token, error) {
	return Query[proposal.Token](s.db).Where("token", value).First(ctx)
}

// List returns the tokens matching the query, newest first.
func (s *ProposalStore) List(ctx context.Context, query proposal.TokenQuery) ([]*proposal.Token, error) {
	q := Query[proposal.Token](s.db)
	if query.Email != "" {
		q = q.Where("email", query.Email)
	}
	if query.ProposableType != "" {
		q = q.Where("proposable_type", query.ProposableType)
	}
	if query.ResourceType != nil {
		q = q.Where("resource_type", *query.ResourceType)
	}
	if query.ResourceID != nil {
		q = q.Where("resource_id", *query.ResourceID)
	}
	if query.ProposerType != nil {
		q = q.Where("proposer_type", *query.ProposerType)
	}
	if query.ProposerID != nil {
		q = q.Where("proposer_id", *query.ProposerID)
	}

	switch query.State {
	case proposal.StatePending:
		q = q.WhereNull("accepted_at")
	case proposal.StateAccepted:
		q = q.WhereNotNull("accepted_at")
	case proposal.StateExpired:
		q = q.WhereOp("expires_at", "<=", time.Now())
	case proposal.StateReminded:
		q = q.WhereNotNull("reminded_at")
	}

	rows, err := q.OrderBy("created_at", DESC).All(ctx)
	if err != nil {
		return nil, err
	}

	tokens := make([]*proposal.Token, len(rows))
	for i := range rows {
		tokens[i] = &rows[i]
	}
	return tokens, nil
}

// Insert persists a new token, mapping unique violations on the dedup
// index to proposal.ErrDuplicate.
func (s *ProposalStore) Insert(ctx context.Context, t *proposal.Token) error {
	if _, err := Query[proposal.Token](s.db).Insert(ctx, t); err != nil {
		if sqlState(err) == "23505" {
			return fmt.Errorf("%w: %s", proposal.ErrDuplicate, t.Email)
		}
		return err
	}
	return nil
}

// Update rewrites a persisted token's columns.
func (s *ProposalStore) Update(ctx context.Context, t *proposal.Token) error {
	return Query[proposal.Token](s.db).UpdateModel(ctx, t)
}

// Touch stamps a single timestamp column plus updated_at.
func (s *ProposalStore) Touch(ctx context.Context, t *proposal.Token, column string, at time.Time) error {
	_, err := Query[proposal.Token](s.db).
		Where("id", t.ID).
		Update(ctx, map[string]any{column: at, "updated_at": at})
	return err
}
