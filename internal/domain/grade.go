package domain

type GradeDetail struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

type QuizGrade struct {
	Total     int           `json:"total"`
	Correct   int           `json:"correct"`
	Incorrect int           `json:"incorrect"`
	Details   []GradeDetail `json:"details"`
}

// GradeQuiz compares answers (keyed by question index) against each question's
// answer. Unanswered questions count as incorrect.
func GradeQuiz(questions []QuizQuestion, answers map[int]string) QuizGrade {
	grade := QuizGrade{
		Total:   len(questions),
		Details: make([]GradeDetail, 0, len(questions)),
	}
	for idx, q := range questions {
		given := answers[idx]
		ok := given != "" && given == q.Answer
		if ok {
			grade.Correct++
		} else {
			grade.Incorrect++
		}
		grade.Details = append(grade.Details, GradeDetail{
			Question:      q.Question,
			UserAnswer:    given,
			CorrectAnswer: q.Answer,
			IsCorrect:     ok,
		})
	}
	return grade
}

// Percent is the share of correct answers, 0 when the quiz is empty.
func (g QuizGrade) Percent() float64 {
	if g.Total == 0 {
		return 0
	}
	return float64(g.Correct) / float64(g.Total) * 100
}
