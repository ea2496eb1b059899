package orchestrators

import (
	"context"
	"errors"
	"strings"
	"time"

	"courseplayer/internal/domain/account"
	"courseplayer/internal/domain/course"
	"courseplayer/internal/domain/curriculum"
)

// memAccountStore is an in-memory account store keyed by lowercased email.
type memAccountStore struct {
	accounts map[string]account.Account
	saves    int
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: make(map[string]account.Account)}
}

// GetByEmail retrieves an account by email from memory.
// PRE: email is non-empty
// POST: returns account or error if not found
func (s *memAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	a, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return account.Account{}, errors.New("not found")
	}
	return a, nil
}

// Save persists an account in memory.
// POST: account is stored in memory map
func (s *memAccountStore) Save(_ context.Context, a account.Account) error {
	s.accounts[strings.ToLower(a.Email)] = a
	s.saves++
	return nil
}

// Count returns the number of stored accounts.
func (s *memAccountStore) Count(_ context.Context) (int, error) {
	return len(s.accounts), nil
}

// memCourses is a fixed course lookup.
type memCourses map[int64]course.Course

// GetCourse returns the course or course.ErrCourseNotFound.
func (m memCourses) GetCourse(_ context.Context, id int64) (course.Course, error) {
	c, ok := m[id]
	if !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	return c, nil
}

// memLMS records enrollments and progress in memory.
type memLMS struct {
	curricula map[int64]curriculum.Curriculum
	enrolled  map[string]bool // key: userID
	joined    map[string]time.Time
	completed map[int64]bool
}

func newMemLMS() *memLMS {
	return &memLMS{
		curricula: make(map[int64]curriculum.Curriculum),
		enrolled:  make(map[string]bool),
		joined:    make(map[string]time.Time),
		completed: make(map[int64]bool),
	}
}

// Enroll records an enrollment.
func (m *memLMS) Enroll(_ context.Context, userID string, _ int64, at time.Time) error {
	m.enrolled[userID] = true
	m.joined[userID] = at
	return nil
}

// EnrolledAt returns the recorded enrollment time.
func (m *memLMS) EnrolledAt(_ context.Context, userID string, _ int64) (time.Time, error) {
	return m.joined[userID], nil
}

// GetCurriculum returns the stored curriculum.
func (m *memLMS) GetCurriculum(_ context.Context, courseID int64) (curriculum.Curriculum, error) {
	return m.curricula[courseID], nil
}

// HasItemAccess is true for enrolled users.
func (m *memLMS) HasItemAccess(_ context.Context, _, _ int64, userID string) (bool, error) {
	return m.enrolled[userID], nil
}

// HasCourseAccess is always false.
func (m *memLMS) HasCourseAccess(_ context.Context, _ int64, _ string) (bool, error) {
	return false, nil
}

// MarkComplete records completion.
func (m *memLMS) MarkComplete(_ context.Context, _ string, _, materialID int64, _ time.Time) error {
	m.completed[materialID] = true
	return nil
}
