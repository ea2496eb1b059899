package curriculum

import (
	"errors"
	"fmt"
	"time"
)

// Content type constants. Each maps to a host post type.
const (
	TypeLesson     = "lesson"
	TypeQuiz       = "quiz"
	TypeAssignment = "assignment"
	TypeOther      = "other"
)

// DefaultLockMessage is shown when the host supplies no specific lock reason.
const DefaultLockMessage = "This lesson is not available yet."

// Domain errors.
var (
	ErrEmptyTitle       = errors.New("material title cannot be empty")
	ErrInvalidPostID    = errors.New("material post ID must be positive")
	ErrInvalidType      = errors.New("material content type must be one of: lesson, quiz, assignment, other")
	ErrNegativeDrip     = errors.New("drip delay cannot be negative")
	ErrEmptySectionName = errors.New("section title cannot be empty")
)

// Material is a single lesson, quiz or assignment inside a section.
type Material struct {
	PostID      int64
	Title       string
	ContentType string
	Duration    string // free-form host value, e.g. "12 mins"; empty when unknown
	Preview     bool   // visible to non-enrolled users

	// LockStartsAt, when set, hides the material until that instant.
	LockStartsAt time.Time
	// DripDelay releases the material this long after the user enrolled.
	DripDelay time.Duration
}

// Validate checks the material's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (m Material) Validate() error {
	if m.PostID <= 0 {
		return ErrInvalidPostID
	}
	if m.Title == "" {
		return ErrEmptyTitle
	}
	switch m.ContentType {
	case TypeLesson, TypeQuiz, TypeAssignment, TypeOther:
	default:
		return ErrInvalidType
	}
	if m.DripDelay < 0 {
		return ErrNegativeDrip
	}
	return nil
}

// TypeLabel returns the uppercase badge shown next to the material number.
func (m Material) TypeLabel() string {
	switch m.ContentType {
	case TypeLesson:
		return "LESSON"
	case TypeQuiz:
		return "QUIZ"
	case TypeAssignment:
		return "ASSIGNMENT"
	default:
		return "INTRO"
	}
}

// LockState reports whether the material is locked for a user at now.
// enrolledAt is the zero time for users without an enrollment record.
// PRE: none
// POST: returns beforeStart/drip flags and a user-facing message when locked
// INVARIANT: m is not mutated
func (m Material) LockState(now, enrolledAt time.Time) (beforeStart, drip bool, message string) {
	if !m.LockStartsAt.IsZero() && now.Before(m.LockStartsAt) {
		return true, false, availableOn(m.LockStartsAt)
	}
	if m.DripDelay > 0 && !enrolledAt.IsZero() {
		releaseAt := enrolledAt.Add(m.DripDelay)
		if now.Before(releaseAt) {
			return false, true, availableOn(releaseAt)
		}
	}
	return false, false, ""
}

func availableOn(t time.Time) string {
	return fmt.Sprintf("This lesson will be available on %s.", t.Format("January 2, 2006 at 15:04"))
}

// Section is an ordered group of materials.
type Section struct {
	Title     string
	Materials []Material
}

// Curriculum is the ordered list of sections of a course.
// INVARIANT: order is significant; it defines numbering and next-lesson lookup.
type Curriculum struct {
	Sections []Section
}

// Entry is a material with its position in the curriculum.
type Entry struct {
	Material
	SectionIndex int
	Number       int // 1-based position inside its section
	Position     int // 0-based position in the flattened curriculum
}

// Flatten returns every material in stored order.
// PRE: none
// POST: entries appear section by section, material by material
func (c Curriculum) Flatten() []Entry {
	var out []Entry
	pos := 0
	for si, s := range c.Sections {
		for mi, m := range s.Materials {
			out = append(out, Entry{Material: m, SectionIndex: si, Number: mi + 1, Position: pos})
			pos++
		}
	}
	return out
}

// MaterialCount returns the total number of materials across all sections.
func (c Curriculum) MaterialCount() int {
	n := 0
	for _, s := range c.Sections {
		n += len(s.Materials)
	}
	return n
}

// MaterialIDs returns the post IDs of all materials in stored order.
func (c Curriculum) MaterialIDs() []int64 {
	ids := make([]int64, 0, c.MaterialCount())
	for _, s := range c.Sections {
		for _, m := range s.Materials {
			ids = append(ids, m.PostID)
		}
	}
	return ids
}

// IsEmpty returns true when the curriculum has no materials at all.
func (c Curriculum) IsEmpty() bool {
	return c.MaterialCount() == 0
}

// FirstMaterial returns the first material of the first section.
// Matches the host's behaviour: an empty first section means there is no first lesson.
func (c Curriculum) FirstMaterial() (Material, bool) {
	if len(c.Sections) == 0 || len(c.Sections[0].Materials) == 0 {
		return Material{}, false
	}
	return c.Sections[0].Materials[0], true
}

// Find returns the first material with the given post ID.
func (c Curriculum) Find(postID int64) (Entry, bool) {
	for _, e := range c.Flatten() {
		if e.PostID == postID {
			return e, true
		}
	}
	return Entry{}, false
}

// FindNextLesson returns the material immediately following currentPostID in
// flattened order. Returns false when the current material is last, absent,
// or the only material. Duplicate post IDs resolve to their first occurrence.
// PRE: none
// POST: never panics; c is not mutated
func FindNextLesson(c Curriculum, currentPostID int64) (Material, bool) {
	found := false
	for _, s := range c.Sections {
		for _, m := range s.Materials {
			if found {
				return m, true
			}
			if m.PostID == currentPostID {
				found = true
			}
		}
	}
	return Material{}, false
}
