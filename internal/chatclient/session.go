package chatclient

import (
	"fmt"
	"slices"

	"learning_agents/internal/domain"
)

// QuizSession holds a learner's answers until the quiz is submitted.
type QuizSession struct {
	Questions []domain.QuizQuestion
	answers   map[int]string
	submitted bool
}

func NewQuizSession(questions []domain.QuizQuestion) *QuizSession {
	return &QuizSession{Questions: questions, answers: make(map[int]string, len(questions))}
}

// Choose records the option picked for question idx.
func (s *QuizSession) Choose(idx int, option string) error {
	if s.submitted {
		return fmt.Errorf("quiz already submitted")
	}
	if idx < 0 || idx >= len(s.Questions) {
		return fmt.Errorf("question %d out of range", idx+1)
	}
	if !slices.Contains(s.Questions[idx].Options, option) {
		return fmt.Errorf("%q is not an option of question %d", option, idx+1)
	}
	s.answers[idx] = option
	return nil
}

func (s *QuizSession) Answer(idx int) string { return s.answers[idx] }

func (s *QuizSession) Answered() int { return len(s.answers) }

// Submit grades the quiz. Unanswered questions count as incorrect.
func (s *QuizSession) Submit() domain.QuizGrade {
	s.submitted = true
	return domain.GradeQuiz(s.Questions, s.answers)
}

func (s *QuizSession) Submitted() bool { return s.submitted }
