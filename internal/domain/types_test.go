package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuizQuestionValid(t *testing.T) {
	opts := []string{"a", "b", "c", "d"}
	tests := []struct {
		name string
		q    QuizQuestion
		want bool
	}{
		{name: "answer in options", q: QuizQuestion{Question: "q", Options: opts, Answer: "c"}, want: true},
		{name: "case sensitive", q: QuizQuestion{Question: "q", Options: opts, Answer: "C"}, want: false},
		{name: "missing answer", q: QuizQuestion{Question: "q", Options: opts}, want: false},
		{name: "three options", q: QuizQuestion{Question: "q", Options: opts[:3], Answer: "a"}, want: false},
		{name: "empty question", q: QuizQuestion{Options: opts, Answer: "a"}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.q.Valid())
		})
	}
}

func TestKnownAgent(t *testing.T) {
	assert.True(t, KnownAgent("teacher"))
	assert.True(t, KnownAgent("quiz"))
	assert.True(t, KnownAgent("review"))
	assert.False(t, KnownAgent("Quiz"))
	assert.False(t, KnownAgent(""))
}

func TestGradeQuiz(t *testing.T) {
	questions := []QuizQuestion{
		{Question: "q1", Options: []string{"a", "b", "c", "d"}, Answer: "b"},
		{Question: "q2", Options: []string{"a", "b", "c", "d"}, Answer: "d"},
		{Question: "q3", Options: []string{"a", "b", "c", "d"}, Answer: "a"},
	}
	grade := GradeQuiz(questions, map[int]string{0: "b", 1: "a"})

	assert.Equal(t, 3, grade.Total)
	assert.Equal(t, 1, grade.Correct)
	assert.Equal(t, 2, grade.Incorrect)
	assert.True(t, grade.Details[0].IsCorrect)
	assert.False(t, grade.Details[1].IsCorrect)
	assert.Equal(t, "", grade.Details[2].UserAnswer)
	assert.InDelta(t, 33.33, grade.Percent(), 0.01)
	assert.Zero(t, QuizGrade{}.Percent())
}
