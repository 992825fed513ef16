package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DB pool defaults for Connect.
const (
	DefaultMaxOpenConns = 10
	DefaultMaxIdleConns = 5
)

// Connect opens and pings a database. maxOpen and maxIdle below 1 use the
// defaults.
func Connect(ctx context.Context, driver, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: connect %s: %w", driver, err)
	}
	if maxOpen < 1 {
		maxOpen = DefaultMaxOpenConns
	}
	if maxIdle < 1 {
		maxIdle = DefaultMaxIdleConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}

// SQL is a Repository over one PostgreSQL table. Rows are scanned into T with
// sqlx, so T's fields carry `db` tags.
type SQL[T any] struct {
	db      *sqlx.DB
	table   string
	columns map[string]bool
}

// NewSQL returns a repository for table. When columns is non-empty, queries may
// only reference those columns.
func NewSQL[T any](db *sqlx.DB, table string, columns ...string) *SQL[T] {
	s := &SQL[T]{db: db, table: table}
	if len(columns) > 0 {
		s.columns = make(map[string]bool, len(columns))
		for _, c := range columns {
			s.columns[c] = true
		}
	}
	return s
}

// Find returns the entities matching q.
func (s *SQL[T]) Find(ctx context.Context, q Query) ([]T, error) {
	query, args, err := s.build("*", q)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("repository: find in %s: %w", s.table, err)
	}
	return out, nil
}

// Count returns the number of entities matching q, ignoring its page.
func (s *SQL[T]) Count(ctx context.Context, q Query) (int64, error) {
	query, args, err := s.build("COUNT(*)", q.unpaged())
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("repository: count in %s: %w", s.table, err)
	}
	return n, nil
}

// Aggregate applies fn to field over the entities matching q. An empty set
// yields 0.
func (s *SQL[T]) Aggregate(ctx context.Context, fn Agg, field string, q Query) (float64, error) {
	query, args, err := s.aggregateQuery(fn, field, q)
	if err != nil {
		return 0, err
	}
	var v sql.NullFloat64
	if err := s.db.GetContext(ctx, &v, query, args...); err != nil {
		return 0, fmt.Errorf("repository: %s(%s) in %s: %w", fn, field, s.table, err)
	}
	return v.Float64, nil
}

func (s *SQL[T]) aggregateQuery(fn Agg, field string, q Query) (string, []any, error) {
	if !fn.valid() {
		return "", nil, fmt.Errorf("repository: unsupported aggregate %q", fn)
	}
	col, err := s.column(field)
	if err != nil {
		return "", nil, err
	}
	return s.build(fmt.Sprintf("%s(%s)", fn, col), q.unpaged())
}

func (s *SQL[T]) column(field string) (string, error) {
	if field == "" || (s.columns != nil && !s.columns[field]) {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return pq.QuoteIdentifier(field), nil
}

// build renders a SELECT with numbered placeholders.
func (s *SQL[T]) build(sel string, q Query) (string, []any, error) {
	var b strings.Builder
	var args []any

	fmt.Fprintf(&b, "SELECT %s FROM %s", sel, pq.QuoteIdentifier(s.table))
	for i, c := range q.Where {
		if err := c.validate(); err != nil {
			return "", nil, err
		}
		col, err := s.column(c.Field)
		if err != nil {
			return "", nil, err
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		if c.Op == OpIn {
			args = append(args, pq.Array(c.Value))
			fmt.Fprintf(&b, "%s = ANY($%d)", col, len(args))
			continue
		}
		args = append(args, c.Value)
		fmt.Fprintf(&b, "%s %s $%d", col, c.Op, len(args))
	}
	if q.OrderBy != "" {
		col, err := s.column(q.OrderBy)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" ORDER BY " + col)
		if q.Desc {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	return b.String(), args, nil
}
