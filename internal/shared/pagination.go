package shared

import (
	"math"
	"net/http"
	"strconv"
)

// DefaultPerPage is applied when the request carries no (or an unsupported)
// page size.
const DefaultPerPage = 10

// allowedPerPage lists the page sizes the listing UIs offer.
var allowedPerPage = []int{5, 10, 25, 50, 100}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	perPage = NormalizePerPage(perPage)
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// PrevPage returns the previous page number, clamped to 1.
func (p Pagination) PrevPage() int {
	if p.Page <= 1 {
		return 1
	}
	return p.Page - 1
}

// NextPage returns the next page number, clamped to the last page.
func (p Pagination) NextPage() int {
	if p.Page >= p.TotalPages {
		return p.TotalPages
	}
	return p.Page + 1
}

// NormalizePerPage clamps a requested page size to the supported set.
func NormalizePerPage(perPage int) int {
	for _, allowed := range allowedPerPage {
		if perPage == allowed {
			return perPage
		}
	}
	return DefaultPerPage
}

// PageRequest reads page/per_page query parameters.
func PageRequest(r *http.Request) (page, perPage int) {
	page = 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	perPage = DefaultPerPage
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			perPage = NormalizePerPage(parsed)
		}
	}
	return page, perPage
}
