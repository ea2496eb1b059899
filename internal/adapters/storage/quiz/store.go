package quiz

import (
	"context"
	"time"

	domain "courseplayer/internal/domain/quiz"
)

// DefaultPassingGrade applies when a quiz has no passing_grade meta.
const DefaultPassingGrade = 70

// Store reads quiz structure and a user's attempts.
type Store interface {
	GetQuizData(ctx context.Context, quizID, courseID int64, userID string) (domain.Data, error)
	AddQuestion(ctx context.Context, quizID int64, prompt string, position int) error
	RecordAttempt(ctx context.Context, quizID, courseID int64, userID string, grade int, at time.Time) (string, error)
}
