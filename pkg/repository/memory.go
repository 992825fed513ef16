package repository

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx/reflectx"
)

// Memory is a Repository over a slice. Fields are looked up by their `db` tag,
// the same names SQL uses, so the two are interchangeable in tests.
type Memory[T any] struct {
	mu     sync.RWMutex
	items  []T
	mapper *reflectx.Mapper
}

// NewMemory returns a repository holding items. T must be a struct or a
// pointer to one.
func NewMemory[T any](items ...T) *Memory[T] {
	return &Memory[T]{
		items:  append([]T(nil), items...),
		mapper: reflectx.NewMapperFunc("db", strings.ToLower),
	}
}

// Insert appends items.
func (m *Memory[T]) Insert(items ...T) {
	m.mu.Lock()
	m.items = append(m.items, items...)
	m.mu.Unlock()
}

// Find returns the entities matching q.
func (m *Memory[T]) Find(ctx context.Context, q Query) ([]T, error) {
	matched, err := m.filter(q)
	if err != nil {
		return nil, err
	}
	if q.OrderBy != "" {
		if err := m.sort(matched, q.OrderBy, q.Desc); err != nil {
			return nil, err
		}
	}
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []T{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// Count returns the number of entities matching q, ignoring its page.
func (m *Memory[T]) Count(ctx context.Context, q Query) (int64, error) {
	matched, err := m.filter(q.unpaged())
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Aggregate applies fn to field over the entities matching q. An empty set
// yields 0.
func (m *Memory[T]) Aggregate(ctx context.Context, fn Agg, field string, q Query) (float64, error) {
	if !fn.valid() {
		return 0, fmt.Errorf("repository: unsupported aggregate %q", fn)
	}
	matched, err := m.filter(q.unpaged())
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}

	var acc float64
	for i, item := range matched {
		v, err := m.field(item, field)
		if err != nil {
			return 0, err
		}
		f, ok := toFloat(v)
		if !ok {
			return 0, fmt.Errorf("repository: %s(%s): %T is not numeric", fn, field, v)
		}
		switch {
		case i == 0:
			acc = f
		case fn == Sum || fn == Avg:
			acc += f
		case fn == Min && f < acc:
			acc = f
		case fn == Max && f > acc:
			acc = f
		}
	}
	if fn == Avg {
		acc /= float64(len(matched))
	}
	return acc, nil
}

func (m *Memory[T]) filter(q Query) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, 0, len(m.items))
	for _, item := range m.items {
		ok, err := m.matches(item, q.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *Memory[T]) matches(item T, conds []Cond) (bool, error) {
	for _, c := range conds {
		if err := c.validate(); err != nil {
			return false, err
		}
		v, err := m.field(item, c.Field)
		if err != nil {
			return false, err
		}
		ok, err := holds(v, c.Op, c.Value)
		if err != nil {
			return false, fmt.Errorf("repository: %s: %w", c.Field, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (m *Memory[T]) sort(items []T, field string, desc bool) error {
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		a, err := m.field(items[i], field)
		if err != nil {
			sortErr = err
			return false
		}
		b, err := m.field(items[j], field)
		if err != nil {
			sortErr = err
			return false
		}
		n, err := compare(a, b)
		if err != nil {
			sortErr = err
			return false
		}
		if desc {
			return n > 0
		}
		return n < 0
	})
	return sortErr
}

func (m *Memory[T]) field(item T, name string) (any, error) {
	v := reflect.Indirect(reflect.ValueOf(item))
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("repository: %T is not a struct", item)
	}
	fi, ok := m.mapper.TypeMap(v.Type()).Names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return reflectx.FieldByIndexesReadOnly(v, fi.Index).Interface(), nil
}

func holds(v any, op Op, want any) (bool, error) {
	if op == OpIn {
		list := reflect.ValueOf(want)
		if list.Kind() != reflect.Slice && list.Kind() != reflect.Array {
			return false, fmt.Errorf("IN needs a slice, got %T", want)
		}
		for i := 0; i < list.Len(); i++ {
			if n, err := compare(v, list.Index(i).Interface()); err == nil && n == 0 {
				return true, nil
			}
		}
		return false, nil
	}

	n, err := compare(v, want)
	if err != nil {
		if op == OpEq || op == OpNe {
			eq := reflect.DeepEqual(v, want)
			return eq == (op == OpEq), nil
		}
		return false, err
	}
	switch op {
	case OpEq:
		return n == 0, nil
	case OpNe:
		return n != 0, nil
	case OpLt:
		return n < 0, nil
	case OpLe:
		return n <= 0, nil
	case OpGt:
		return n > 0, nil
	default:
		return n >= 0, nil
	}
}

// compare orders numbers, strings and times.
func compare(a, b any) (int, error) {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			}
			return 0, nil
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb), nil
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
