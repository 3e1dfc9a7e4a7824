package domain

import "math"

// PaginationParams carries page/limit values from the HTTP layer to the repo layer.
// Page is 1-indexed. Limit is capped at 100 by NewPaginationParams.
type PaginationParams struct {
	// Page is the current page number, starting at 1.
	Page int
	// Limit is the maximum number of items to return.
	Limit int
}

// NewPaginationParams builds a PaginationParams from optional HTTP query params.
// Nil pointers fall back to page=1, limit=20. Page is clamped so that
// Offset cannot overflow.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: 20}
	if page != nil && *page >= 1 {
		p.Page = *page
	}
	if limit != nil && *limit >= 1 {
		p.Limit = min(*limit, 100)
	}
	p.Page = min(p.Page, math.MaxInt/p.Limit)
	return p
}

// Offset returns the zero-based row offset for a SQL OFFSET clause.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one slice of a paginated listing together with the total row count.
type Page[T any] struct {
	Items []T
	Total int64
}

// TotalPages is the number of pages of size limit needed for Total items.
func (p Page[T]) TotalPages(limit int) int {
	if limit <= 0 || p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(limit) - 1) / int64(limit))
}
