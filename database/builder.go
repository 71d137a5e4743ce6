package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// OrderDirection represents sort direction
type OrderDirection string

const (
	ASC  OrderDirection = "ASC"
	DESC OrderDirection = "DESC"
)

// WhereClause represents a WHERE condition
type WhereClause struct {
	Column   string
	Operator string
	Value    any
	IsNull   bool
	NotNull  bool
}

// OrderClause represents an ORDER BY clause
type OrderClause struct {
	Column    string
	Direction OrderDirection
}

// QueryBuilder provides a fluent, type-safe API for building database queries
type QueryBuilder[T any] struct {
	db *DB

	wheres   []*WhereClause
	orders   []*OrderClause
	limitVal *int

	timeout time.Duration
}

// Query creates a new QueryBuilder instance
func Query[T any](db *DB) *QueryBuilder[T] {
	return &QueryBuilder[T]{db: db}
}

// Where adds an equality condition
func (q *QueryBuilder[T]) Where(column string, value any) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{Column: column, Operator: "=", Value: value})
	return q
}

// WhereOp adds a condition with an explicit operator
func (q *QueryBuilder[T]) WhereOp(column, operator string, value any) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{Column: column, Operator: operator, Value: value})
	return q
}

// WhereNull adds an IS NULL condition
func (q *QueryBuilder[T]) WhereNull(column string) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{Column: column, IsNull: true})
	return q
}

// WhereNotNull adds an IS NOT NULL condition
func (q *QueryBuilder[T]) WhereNotNull(column string) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{Column: column, NotNull: true})
	return q
}

// OrderBy adds an ORDER BY clause
func (q *QueryBuilder[T]) OrderBy(column string, direction OrderDirection) *QueryBuilder[T] {
	q.orders = append(q.orders, &OrderClause{Column: column, Direction: direction})
	return q
}

// Limit caps the number of returned rows
func (q *QueryBuilder[T]) Limit(n int) *QueryBuilder[T] {
	q.limitVal = &n
	return q
}

// Timeout sets a per-query timeout
func (q *QueryBuilder[T]) Timeout(d time.Duration) *QueryBuilder[T] {
	q.timeout = d
	return q
}

func (q *QueryBuilder[T]) applyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout > 0 {
		return context.WithTimeout(ctx, q.timeout)
	}
	return ctx, func() {}
}

func (q *QueryBuilder[T]) applyClauses(query *bun.SelectQuery) *bun.SelectQuery {
	for _, w := range q.wheres {
		switch {
		case w.IsNull:
			query = query.Where(fmt.Sprintf("%s IS NULL", w.Column))
		case w.NotNull:
			query = query.Where(fmt.Sprintf("%s IS NOT NULL", w.Column))
		default:
			query = query.Where(fmt.Sprintf("%s %s ?", w.Column, w.Operator), w.Value)
		}
	}
	for _, o := range q.orders {
		query = query.Order(fmt.Sprintf("%s %s", o.Column, o.Direction))
	}
	if q.limitVal != nil {
		query = query.Limit(*q.limitVal)
	}
	return query
}

// All executes the query and returns all matching records with automatic retry
func (q *QueryBuilder[T]) All(ctx context.Context) ([]T, error) {
	start := time.Now()
	var data []T

	ctx, cancel := q.applyContext(ctx)
	defer cancel()

	err := WithRetry(ctx, func() error {
		data = nil // Reset on retry
		query := q.applyClauses(q.db.NewSelect().Model(&data))
		return query.Scan(ctx)
	})

	if err != nil {
		return nil, fmt.Errorf("failed to execute select query: %w (took %v)", err, time.Since(start))
	}

	return data, nil
}

// First executes the query and returns the first matching record with automatic retry
func (q *QueryBuilder[T]) First(ctx context.Context) (*T, error) {
	start := time.Now()
	var data T

	ctx, cancel := q.applyContext(ctx)
	defer cancel()

	err := WithRetry(ctx, func() error {
		query := q.applyClauses(q.db.NewSelect().Model(&data)).Limit(1)
		return query.Scan(ctx)
	})

	if err != nil {
		// Return nil for no rows instead of error
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to execute first query: %w (took %v)", err, time.Since(start))
	}

	return &data, nil
}

// Count executes the query and returns the count of matching records with automatic retry
func (q *QueryBuilder[T]) Count(ctx context.Context) (int, error) {
	start := time.Now()
	var count int

	ctx, cancel := q.applyContext(ctx)
	defer cancel()

	err := WithRetry(ctx, func() error {
		var model T
		query := q.applyClauses(q.db.NewSelect().Model(&model))
		var err error
		count, err = query.Count(ctx)
		return err
	})

	if err != nil {
		return 0, fmt.Errorf("failed to execute count query: %w (took %v)", err, time.Since(start))
	}

	return count, nil
}

// Exists checks if any records match the query
func (q *QueryBuilder[T]) Exists(ctx context.Context) (bool, error) {
	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert inserts a new record and returns it with automatic retry
func (q *QueryBuilder[T]) Insert(ctx context.Context, data *T) (*T, error) {
	start := time.Now()

	ctx, cancel := q.applyContext(ctx)
	defer cancel()

	err := WithRetry(ctx, func() error {
		_, err := q.db.NewInsert().Model(data).Returning("*").Exec(ctx)
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("failed to execute insert query: %w (took %v)", err, time.Since(start))
	}

	return data, nil
}

// Update updates the matching records' columns with automatic retry and
// returns the number of affected rows
func (q *QueryBuilder[T]) Update(ctx context.Context, values map[string]any) (int, error) {
	start := time.Now()
	var affected int64

	ctx, cancel := q.applyContext(ctx)
	defer cancel()

	err := WithRetry(ctx, func() error {
		var model T
		query := q.db.NewUpdate().Model(&model)
		for column, value := range values {
			query = query.Set(fmt.Sprintf("%s = ?", column), value)
		}
		for _, w := range q.wheres {
			switch {
			case w.IsNull:
				query = query.Where(fmt.Sprintf("%s IS NULL", w.Column))
			case w.NotNull:
				query = query.Where(fmt.Sprintf("%s IS NOT NULL", w.Column))
			default:
				query = query.Where(fmt.Sprintf("%s %s ?", w.Column, w.Operator), w.Value)
			}
		}
		res, err := query.Exec(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})

	if err != nil {
		return 0, fmt.Errorf("failed to execute update query: %w (took %v)", err, time.Since(start))
	}

	return int(affected), nil
}

// UpdateModel rewrites a full row from its model with automatic retry
func (q *QueryBuilder[T]) UpdateModel(ctx context.Context, data *T) error {
	start := time.Now()

	ctx, cancel := q.applyContext(ctx)
	defer cancel()

	err := WithRetry(ctx, func() error {
		_, err := q.db.NewUpdate().Model(data).WherePK().Exec(ctx)
		return err
	})

	if err != nil {
		return fmt.Errorf("failed to execute update query: %w (took %v)", err, time.Since(start))
	}

	return nil
}
