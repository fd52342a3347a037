package shared

import (
	"math"
	"strconv"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page    int
	PerPage int
	// HasNext is set when the current page came back full.
	HasNext bool
}

// ParsePagination reads a 1-based page number, falling back to the first page.
func ParsePagination(raw string, perPage int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page <= 0 {
		page = 1
	}
	if page > math.MaxInt32/perPage {
		page = 1
	}
	return Pagination{Page: page, PerPage: perPage}
}

// Offset returns the number of rows preceding the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Observe marks whether another page exists given the rows just fetched.
func (p Pagination) Observe(fetched int) Pagination {
	p.HasNext = fetched >= p.PerPage
	return p
}

// Prev returns the previous page number, or 0 on the first page.
func (p Pagination) Prev() int {
	if p.Page <= 1 {
		return 0
	}
	return p.Page - 1
}

// Next returns the next page number, or 0 when there is none.
func (p Pagination) Next() int {
	if !p.HasNext {
		return 0
	}
	return p.Page + 1
}
