package projections

import (
	"context"
	"time"

	"courseplayer/internal/application/listutil"
	"courseplayer/internal/domain/course"
	"courseplayer/internal/domain/pricing"
)

// GetCatalogQuery carries input for the catalog projection.
type GetCatalogQuery struct {
	LoggedIn bool
	List     listutil.Params
	Now      time.Time
}

// GetCatalogDeps holds dependencies for the catalog projection.
type GetCatalogDeps struct {
	Courses CourseLister
	URLs    LessonURLBuilder
	Options PlayerOptions
}

// CatalogEntry is one course card on the home page.
type CatalogEntry struct {
	ID            int64
	Title         string
	Initials      string
	Description   string
	AuthorName    string
	FeaturedImage string
	URL           string
	Offer         pricing.Offer
}

// CatalogPage is one page of matching courses.
type CatalogPage struct {
	Entries []CatalogEntry
	Search  string
	Page    listutil.PageInfo
}

// QueryGetCatalog lists the courses matching the search with their price badges.
// PRE: deps are valid and non-nil
// POST: entries are in course ID order; Page describes the window returned
func QueryGetCatalog(ctx context.Context, query GetCatalogQuery, deps GetCatalogDeps) (CatalogPage, error) {
	courses, err := deps.Courses.List(ctx)
	if err != nil {
		return CatalogPage{}, err
	}
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}

	matched := make([]course.Course, 0, len(courses))
	for _, c := range courses {
		if query.List.Matches(c.Title, c.AuthorName, c.Excerpt) {
			matched = append(matched, c)
		}
	}
	info := listutil.NewPageInfo(query.List.Page, query.List.PerPage, len(matched))

	out := make([]CatalogEntry, 0, info.PerPage)
	for _, c := range listutil.Window(matched, info) {
		out = append(out, CatalogEntry{
			ID:            c.ID,
			Title:         c.Title,
			Initials:      c.Initials(),
			Description:   c.Description(),
			AuthorName:    c.AuthorName,
			FeaturedImage: c.FeaturedImage,
			URL:           deps.URLs.CourseURL(c.ID),
			Offer: pricing.BuildOffer(pricing.OfferInput{
				Price:         c.Price,
				LoggedIn:      query.LoggedIn,
				GuestCheckout: deps.Options.GuestCheckout,
				Currency:      deps.Options.Currency,
				Now:           now,
			}),
		})
	}
	return CatalogPage{Entries: out, Search: query.List.Search, Page: info}, nil
}
