// Package repository is the persistence boundary seen by actions: a generic
// find/count/aggregate interface over a table of entities, with a PostgreSQL
// implementation on sqlx and an in-memory one for tests and fixtures.
//
// Actions receive plain values back (a slice of entities or a number), so the
// dispatch core never depends on storage types.
package repository

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownField is returned when a query names a field the repository
// does not expose.
var ErrUnknownField = errors.New("repository: unknown field")

// Repository reads entities of type T.
type Repository[T any] interface {
	Find(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, q Query) (int64, error)
	Aggregate(ctx context.Context, fn Agg, field string, q Query) (float64, error)
}

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "<>"
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
	OpIn Op = "IN"
)

// Agg is an aggregate function.
type Agg string

const (
	Sum Agg = "SUM"
	Avg Agg = "AVG"
	Min Agg = "MIN"
	Max Agg = "MAX"
)

func (a Agg) valid() bool {
	switch a {
	case Sum, Avg, Min, Max:
		return true
	}
	return false
}

// Cond compares a field with a value. For OpIn, Value is a slice.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Eq is shorthand for Cond{field, OpEq, v}.
func Eq(field string, v any) Cond { return Cond{Field: field, Op: OpEq, Value: v} }

// In is shorthand for Cond{field, OpIn, values}.
func In(field string, values any) Cond { return Cond{Field: field, Op: OpIn, Value: values} }

// Query selects entities. All conditions must hold. A zero Limit means no limit.
type Query struct {
	Where   []Cond
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// NewQuery returns a query with the given conditions.
func NewQuery(conds ...Cond) Query {
	return Query{Where: conds}
}

// And returns a copy of q with c added.
func (q Query) And(c Cond) Query {
	q.Where = append(append([]Cond(nil), q.Where...), c)
	return q
}

// Order returns a copy of q sorted by field.
func (q Query) Order(field string, desc bool) Query {
	q.OrderBy = field
	q.Desc = desc
	return q
}

// Page returns a copy of q restricted to one page. Pages are 1-based; numbers
// below 1 select the first page.
func (q Query) Page(number, size int) Query {
	p := Page{Number: number, Size: size}
	q.Limit = p.size()
	q.Offset = p.Offset()
	return q
}

// unpaged drops limit and offset, for counting and aggregation.
func (q Query) unpaged() Query {
	q.Limit, q.Offset = 0, 0
	q.OrderBy = ""
	return q
}

func (c Cond) validate() error {
	switch c.Op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIn:
		return nil
	}
	return fmt.Errorf("repository: unsupported operator %q on %s", c.Op, c.Field)
}
