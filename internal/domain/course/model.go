package course

import (
	"errors"
	"strings"
	"unicode/utf8"

	"courseplayer/internal/domain/pricing"
)

// DescriptionWordLimit caps the description derived from the course body.
const DescriptionWordLimit = 50

// DefaultDescription is shown when a course has neither excerpt nor content.
const DefaultDescription = "Discover the transformative power of this comprehensive course designed to enhance your learning experience."

// Domain errors.
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrEmptyTitle     = errors.New("course title cannot be empty")
	ErrInvalidID      = errors.New("course ID must be positive")
)

// Course is the host course record the player displays.
type Course struct {
	ID            int64
	Title         string
	Excerpt       string
	Content       string // Markdown
	AuthorName    string
	FeaturedImage string
	Price         pricing.Price
}

// Validate checks the course's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (c Course) Validate() error {
	if c.ID <= 0 {
		return ErrInvalidID
	}
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Description returns the excerpt, else the content trimmed to
// DescriptionWordLimit words, else DefaultDescription.
// INVARIANT: c is not mutated
func (c Course) Description() string {
	if s := strings.TrimSpace(c.Excerpt); s != "" {
		return s
	}
	if s := strings.TrimSpace(c.Content); s != "" {
		return TrimWords(s, DescriptionWordLimit)
	}
	return DefaultDescription
}

// Initials returns the first letter of the first two title words, used as a logo.
func (c Course) Initials() string {
	words := strings.Fields(c.Title)
	var b strings.Builder
	for i, w := range words {
		if i == 2 {
			break
		}
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(r)
	}
	return b.String()
}

// TrimWords keeps the first n whitespace-separated words and appends an
// ellipsis when anything was dropped.
func TrimWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "…"
}

// Resource kinds.
const (
	ResourceMaterial = "material"
	ResourceFile     = "file"
)

// Resource is a downloadable course resource.
type Resource struct {
	Kind        string
	Title       string
	Description string
	URL         string
	Size        string // human readable, files only
}
