// Package domain provides types shared by the procurement domain packages.
package domain

import (
	"compras/internal/core/id"
	"compras/internal/domain/filter"
)

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search performs a case-insensitive match on the entity's display fields
	Search string

	// IDs filters by specific IDs
	IDs []id.ID

	// AdvancedFilters are field/operator/value conditions
	AdvancedFilters []filter.Item

	// OrderBy specifies sorting (e.g., "created_at", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultPageSize matches the page size the web client asks for.
const DefaultPageSize = 100

// DefaultListFilter returns defaults: newest first, one page.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   DefaultPageSize,
		OrderBy: "-id",
	}
}

// Page converts a 1-based page number and page size into Limit/Offset.
// Non-positive values fall back to the first page and DefaultPageSize.
func (f *ListFilter) Page(page, pageSize int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	f.Limit = pageSize
	f.Offset = (page - 1) * pageSize
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
