package chatclient

import (
	"fmt"
	"strings"

	"learning_agents/internal/domain"
)

// RenderAnswer formats an answer as plain text for a terminal.
func RenderAnswer(a Answer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] routed_to=%s\n", a.QuestionType, a.RoutedTo)
	switch {
	case a.Quiz != nil:
		fmt.Fprintf(&b, "クイズが生成されました（%d問）\n", len(a.Quiz.Questions))
		b.WriteString(RenderQuiz(a.Quiz.Questions))
	case a.Review != nil:
		b.WriteString(RenderReview(*a.Review))
	case a.Explanation != nil:
		b.WriteString(RenderExplanation(*a.Explanation))
	default:
		b.Write(a.Raw)
		b.WriteByte('\n')
	}
	return b.String()
}

func RenderQuiz(questions []domain.QuizQuestion) string {
	var b strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&b, "\n問題 %d: %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(&b, "  %d) %s\n", j+1, opt)
		}
	}
	return b.String()
}

func RenderReview(r domain.ReviewResult) string {
	var b strings.Builder
	s := r.Summary
	fmt.Fprintf(&b, "直近のトピック: %s\n", strings.Join(s.RecentTopics, ", "))
	fmt.Fprintf(&b, "弱点: %s\n", strings.Join(s.WeakAreas, ", "))
	if s.LastStudied != nil {
		fmt.Fprintf(&b, "最終学習: %s\n", *s.LastStudied)
	}
	fmt.Fprintf(&b, "総セッション数: %d\n", s.TotalSessions)
	fmt.Fprintf(&b, "過去ノート数: %d\n", s.PastNotesCount)
	if len(r.ReviewContents) > 0 {
		b.WriteString("\nおすすめの復習内容\n")
		for _, c := range r.ReviewContents {
			fmt.Fprintf(&b, "- %s (%s)\n  %s\n  %s\n", c.Title, c.Type, c.Description, c.ActionURL)
		}
	}
	return b.String()
}

func RenderExplanation(e domain.ExplanationAnswer) string {
	var b strings.Builder
	b.WriteString(e.Answer)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "\nsource=%s model=%s", e.Source, e.Model)
	if e.Usage != nil {
		fmt.Fprintf(&b, " tokens=%d", e.Usage.TotalTokens)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, "\nerror: %s", e.Error)
	}
	b.WriteByte('\n')
	return b.String()
}

func RenderGrade(g domain.QuizGrade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "総問題数: %d  正解: %d (%.1f%%)  不正解: %d\n", g.Total, g.Correct, g.Percent(), g.Incorrect)
	for i, d := range g.Details {
		fmt.Fprintf(&b, "\n問題 %d: %s\n", i+1, d.Question)
		if d.IsCorrect {
			fmt.Fprintf(&b, "  ✅ 正解: %s\n", d.CorrectAnswer)
			continue
		}
		b.WriteString("  ❌ 不正解\n")
		fmt.Fprintf(&b, "  あなたの回答: %s\n", d.UserAnswer)
		fmt.Fprintf(&b, "  正解: %s\n", d.CorrectAnswer)
	}
	return b.String()
}
