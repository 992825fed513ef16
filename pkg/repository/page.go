package repository

import "context"

// DefaultPageSize is used when a page size is not positive.
const DefaultPageSize = 20

// Page describes one page of a result set.
type Page struct {
	Number int
	Size   int
	Total  int64
}

// Paginate returns the page for number and size over total items.
func Paginate(number, size int, total int64) Page {
	p := Page{Number: number, Size: size, Total: total}
	p.Number = p.number()
	p.Size = p.size()
	return p
}

func (p Page) number() int {
	if p.Number < 1 {
		return 1
	}
	return p.Number
}

func (p Page) size() int {
	if p.Size < 1 {
		return DefaultPageSize
	}
	return p.Size
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.number() - 1) * p.size()
}

// Pages is the number of pages needed for Total items; at least 1.
func (p Page) Pages() int {
	size := int64(p.size())
	n := int((p.Total + size - 1) / size)
	if n < 1 {
		return 1
	}
	return n
}

// HasPrev reports whether a page precedes this one.
func (p Page) HasPrev() bool { return p.number() > 1 }

// HasNext reports whether a page follows this one.
func (p Page) HasNext() bool { return p.number() < p.Pages() }

// Results is a page of entities with its position.
type Results[T any] struct {
	Items []T
	Page  Page
}

// FindPage runs q for one page and counts the full result set.
func FindPage[T any](ctx context.Context, r Repository[T], q Query, number, size int) (Results[T], error) {
	total, err := r.Count(ctx, q)
	if err != nil {
		return Results[T]{}, err
	}
	items, err := r.Find(ctx, q.Page(number, size))
	if err != nil {
		return Results[T]{}, err
	}
	return Results[T]{Items: items, Page: Paginate(number, size, total)}, nil
}
