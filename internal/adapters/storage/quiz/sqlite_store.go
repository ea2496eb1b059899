package quiz

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"courseplayer/internal/adapters/storage"
	"courseplayer/internal/adapters/storage/post"
	domain "courseplayer/internal/domain/quiz"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    storage.SQLDB
	posts *post.SQLiteStore
}

// NewSQLiteStore creates a new quiz store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, posts: post.NewSQLiteStore(db)}
}

// GetQuizData loads question count, passing grade and the user's attempts.
// A guest (empty userID) gets no attempts.
// PRE: quizID > 0
// POST: Attempts are ordered oldest first
func (s *SQLiteStore) GetQuizData(ctx context.Context, quizID, courseID int64, userID string) (domain.Data, error) {
	d := domain.Data{QuizID: quizID, PassingGrade: DefaultPassingGrade}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM quiz_question WHERE quiz_id = ?", quizID).Scan(&d.QuestionCount); err != nil {
		return domain.Data{}, fmt.Errorf("quiz %d questions: %w", quizID, err)
	}

	raw, ok, err := s.posts.Meta(ctx, quizID, post.MetaPassingGrade)
	if err != nil {
		return domain.Data{}, err
	}
	if ok {
		if g, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && g >= 0 && g <= 100 {
			d.PassingGrade = g
		}
	}

	if userID == "" {
		return d, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT grade, created_at FROM quiz_attempt WHERE quiz_id = ? AND course_id = ? AND user_id = ? ORDER BY created_at",
		quizID, courseID, userID)
	if err != nil {
		return domain.Data{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Attempt
		var createdAt string
		if err := rows.Scan(&a.Grade, &createdAt); err != nil {
			return domain.Data{}, err
		}
		a.CreatedAt, _ = storage.ParseTime(createdAt)
		d.Attempts = append(d.Attempts, a)
	}
	return d, rows.Err()
}

// AddQuestion appends a question to a quiz.
// PRE: prompt is non-empty
func (s *SQLiteStore) AddQuestion(ctx context.Context, quizID int64, prompt string, position int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO quiz_question (quiz_id, prompt, position) VALUES (?, ?, ?)", quizID, prompt, position)
	return err
}

// RecordAttempt stores a graded attempt and returns its ID.
// PRE: 0 <= grade <= 100
func (s *SQLiteStore) RecordAttempt(ctx context.Context, quizID, courseID int64, userID string, grade int, at time.Time) (string, error) {
	if grade < 0 || grade > 100 {
		return "", fmt.Errorf("grade %d out of range", grade)
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO quiz_attempt (id, quiz_id, course_id, user_id, grade, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, quizID, courseID, userID, grade, storage.FormatTime(at))
	if err != nil {
		return "", err
	}
	return id, nil
}
