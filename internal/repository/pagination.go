// Package repository provides data access for the signal journal.
package repository

// Pagination holds offset-based paging parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// Page is one page of results with the totals needed to render it.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

const (
	// DefaultLimit is the default number of signals per page.
	DefaultLimit = 20

	// MaxLimit caps a single page.
	MaxLimit = 500
)

// PageToPagination converts a 1-based page number to offset-based pagination.
func PageToPagination(page, perPage int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultLimit
	}
	if perPage > MaxLimit {
		perPage = MaxLimit
	}
	return Pagination{Limit: perPage, Offset: (page - 1) * perPage}
}

// NewPage builds a Page from the items fetched with p.
func NewPage[T any](items []T, total int64, p Pagination) Page[T] {
	totalPages := int(total) / p.Limit
	if int(total)%p.Limit > 0 {
		totalPages++
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       p.Offset/p.Limit + 1,
		TotalPages: totalPages,
		HasMore:    p.Offset+len(items) < int(total),
	}
}
