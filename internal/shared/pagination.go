package shared

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ListQuery captures the common catalog query state: page, search term,
// sort column and filter value, parsed from request query parameters.
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	Sort    string
	Filter  string
}

// Offset returns the row offset for the current page.
func (q ListQuery) Offset() int {
	page := q.Page
	if page <= 0 {
		page = 1
	}
	return (page - 1) * q.Limit()
}

// Limit returns the page size, defaulting to 20 and capping at 100.
func (q ListQuery) Limit() int {
	switch {
	case q.PerPage <= 0:
		return 20
	case q.PerPage > 100:
		return 100
	default:
		return q.PerPage
	}
}

// ParseListQuery reads page, per_page, search, sort and filter parameters.
// allowedSorts guards the sort column against arbitrary input; an unknown
// value falls back to the first allowed entry.
func ParseListQuery(r *http.Request, allowedSorts ...string) ListQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	sort := strings.TrimSpace(q.Get("sort"))
	if len(allowedSorts) > 0 {
		valid := false
		for _, s := range allowedSorts {
			if sort == s {
				valid = true
				break
			}
		}
		if !valid {
			sort = allowedSorts[0]
		}
	}

	return ListQuery{
		Page:    page,
		PerPage: perPage,
		Search:  strings.TrimSpace(q.Get("search")),
		Sort:    sort,
		Filter:  strings.TrimSpace(q.Get("filter")),
	}
}
