package quiz

import "time"

// Attempt is one graded run of a quiz by a user.
type Attempt struct {
	Grade     int // percent, 0-100
	CreatedAt time.Time
}

// Data is what the player needs to render a quiz item.
type Data struct {
	QuizID        int64
	QuestionCount int
	PassingGrade  int // percent
	Attempts      []Attempt
}

// HasAttempts returns true when the user already tried the quiz.
func (d Data) HasAttempts() bool {
	return len(d.Attempts) > 0
}

// LastGrade returns the grade of the most recent attempt, or 0.
// PRE: Attempts are ordered oldest first
func (d Data) LastGrade() int {
	if len(d.Attempts) == 0 {
		return 0
	}
	return d.Attempts[len(d.Attempts)-1].Grade
}

// Passed returns true when any attempt reached the passing grade.
func (d Data) Passed() bool {
	for _, a := range d.Attempts {
		if a.Grade >= d.PassingGrade {
			return true
		}
	}
	return false
}
