// Package listutil pages and searches in-memory lists such as the course catalog.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// DefaultPerPage is the catalog page size when none is requested.
const DefaultPerPage = 12

// PerPageOptions are the allowed page sizes.
var PerPageOptions = []int{6, 12, 24, 48}

// Params is what a list request asks for.
type Params struct {
	Page    int // 1-indexed
	PerPage int
	Search  string // trimmed free text, "" for no search
}

// ParseParams reads page, per_page and q from query values.
// PRE: none
// POST: Page >= 1; PerPage is one of PerPageOptions
func ParseParams(q url.Values) Params {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !slices.Contains(PerPageOptions, perPage) {
		perPage = DefaultPerPage
	}
	return Params{Page: page, PerPage: perPage, Search: strings.TrimSpace(q.Get("q"))}
}

// Matches reports whether any field contains the search text, ignoring case.
// An empty search matches everything.
func (p Params) Matches(fields ...string) bool {
	if p.Search == "" {
		return true
	}
	needle := strings.ToLower(p.Search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0
// POST: 1 <= Page <= TotalPages; TotalPages >= 1
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := max((total+perPage-1)/perPage, 1)
	return PageInfo{
		Page:       min(max(page, 1), totalPages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the index of the first item on the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// HasPrev reports whether a previous page exists.
func (p PageInfo) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages }

// PageNumbers returns at most 5 page numbers centred on the current page.
func (p PageInfo) PageNumbers() []int {
	const maxButtons = 5
	start := max(p.Page-maxButtons/2, 1)
	end := start + maxButtons - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = max(end-maxButtons+1, 1)
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// ShowPagination returns true when the list spans more than one page.
func (p PageInfo) ShowPagination() bool {
	return p.Total > p.PerPage
}

// Window returns the items on the current page.
// PRE: info was built from len(items)
func Window[T any](items []T, info PageInfo) []T {
	start := min(info.Offset(), len(items))
	end := min(start+info.PerPage, len(items))
	return items[start:end]
}
