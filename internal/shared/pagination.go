package shared

import (
	"math"
	"net/http"
	"strconv"
)

// Page bounds.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// PageRequest is a parsed page/limit query.
type PageRequest struct {
	Page    int
	PerPage int
}

// Offset returns the row offset of the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// PageFromQuery reads `page` and `limit`, clamping them to sane bounds.
func PageFromQuery(r *http.Request) PageRequest {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}
