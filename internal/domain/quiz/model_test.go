package quiz_test

import (
	"testing"

	"courseplayer/internal/domain/quiz"
)

// TestData_Attempts tests the attempt summaries.
func TestData_Attempts(t *testing.T) {
	empty := quiz.Data{PassingGrade: 70}
	if empty.HasAttempts() || empty.LastGrade() != 0 || empty.Passed() {
		t.Errorf("empty quiz summary wrong: %+v", empty)
	}

	d := quiz.Data{PassingGrade: 70, Attempts: []quiz.Attempt{{Grade: 80}, {Grade: 40}}}
	if !d.HasAttempts() {
		t.Error("HasAttempts = false")
	}
	if d.LastGrade() != 40 {
		t.Errorf("LastGrade = %d, want 40", d.LastGrade())
	}
	if !d.Passed() {
		t.Error("Passed = false, want true from first attempt")
	}
}
