// Package templates holds the canned content served when live data or the
// generation backend is unavailable.
package templates

import (
	"fmt"
	"strconv"
	"time"

	"learning_agents/internal/domain"
)

// QuizPool returns the fixed fallback questions for topic. The pool always
// has at least two valid questions.
func QuizPool(topic string) []domain.QuizQuestion {
	return []domain.QuizQuestion{
		{
			Question: fmt.Sprintf("%sについて、基本的な概念は何ですか？", topic),
			Options:  []string{"概念A", "概念B", "概念C（正解）", "概念D"},
			Answer:   "概念C（正解）",
		},
		{
			Question: fmt.Sprintf("%sを使用する際の注意点は？", topic),
			Options:  []string{"注意点1", "注意点2（正解）", "注意点3", "注意点4"},
			Answer:   "注意点2（正解）",
		},
	}
}

type mockLog struct {
	topic   string
	daysAgo int
	score   float64
	notes   string
}

var mockLogs = []mockLog{
	{topic: "Python decorators", daysAgo: 1, score: 0.65, notes: "デコレータの基本的な使い方は理解できたが、応用に苦戦"},
	{topic: "Python list comprehensions", daysAgo: 2, score: 0.85, notes: "理解度は高いが、複雑な条件式での使い方をもう一度確認"},
	{topic: "English articles (a, an, the)", daysAgo: 3, score: 0.45, notes: "冠詞の使い分けが難しい。特に定冠詞と不定冠詞の区別"},
	{topic: "Python decorators", daysAgo: 5, score: 0.55, notes: "初回学習。概念は理解できたが、実践で使えない"},
	{topic: "English grammar: past tense", daysAgo: 7, score: 0.70, notes: "基本的な過去形は理解できた"},
}

// MockLogs returns a week of completed sessions relative to now.
func MockLogs(userID string, now time.Time) domain.LearningLogSet {
	base := float64(now.UnixNano()) / float64(time.Second)
	entries := make([]domain.LearningLogEntry, 0, len(mockLogs))
	for _, m := range mockLogs {
		score := m.score
		notes := m.notes
		entries = append(entries, domain.LearningLogEntry{
			Topic:     m.topic,
			Timestamp: FormatTimestamp(base - float64(m.daysAgo*86400)),
			Score:     &score,
			Status:    domain.LogStatusCompleted,
			Notes:     &notes,
		})
	}
	return domain.LearningLogSet{UserID: userID, Entries: entries}
}

// FormatTimestamp renders epoch seconds the way log files store them.
func FormatTimestamp(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 6, 64)
}

// MockNotes is the seed corpus for the note-retrieval capability.
func MockNotes(userID string) []domain.Note {
	return []domain.Note{
		{
			ID:        "note_1",
			UserID:    userID,
			Topic:     "Python decorators",
			Content:   "デコレータは関数を拡張するためのパターンです。@記号を使って関数を修飾します。",
			CreatedAt: time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC),
			Tags:      []string{"Python", "デコレータ", "関数"},
		},
		{
			ID:        "note_2",
			UserID:    userID,
			Topic:     "English articles",
			Content:   "冠詞の使い分け：a/anは不定冠詞、theは定冠詞。初出はa/an、既出はthe。",
			CreatedAt: time.Date(2025, 11, 2, 14, 30, 0, 0, time.UTC),
			Tags:      []string{"英語", "冠詞", "文法"},
		},
		{
			ID:        "note_3",
			UserID:    userID,
			Topic:     "Python list comprehensions",
			Content:   "リスト内包表記は [式 for 要素 in イテラブル] の形式。if句でフィルタリングも可能。",
			CreatedAt: time.Date(2025, 11, 3, 9, 15, 0, 0, time.UTC),
			Tags:      []string{"Python", "リスト", "内包表記"},
		},
	}
}

const (
	DefaultTeacherSystem = "あなたは優秀な教師です。質問に分かりやすく、丁寧に回答してください。"
	NoModel              = "none"
)

// ExplanationPrompt is the user message for a direct explanation.
func ExplanationPrompt(question, topic string) string {
	prompt := "以下の質問について分かりやすく説明してください:\n\n" + question
	if topic != "" {
		prompt += "\n\nトピック: " + topic
	}
	return prompt
}

func NoCredentialAnswer(question string) string {
	return answerLead(question) + "この機能を完全に利用するには、OpenAI APIキーの設定が必要です。現在は簡易的な回答のみを提供しています。"
}

func NoBackendAnswer(question string) string {
	return answerLead(question) + "OpenAI APIを使用するには、openaiパッケージのインストールとOPENAI_API_KEYの設定が必要です。"
}

func ErrorAnswer(question, errText string) string {
	return answerLead(question) + "OpenAI API呼び出し中にエラーが発生しました: " + errText
}

func answerLead(question string) string {
	return fmt.Sprintf("質問「%s」について説明します。\n\n", question)
}

// Provider supplies canned data to the agents. Tests substitute their own.
type Provider interface {
	QuizPool(topic string) []domain.QuizQuestion
	MockLogs(userID string, now time.Time) domain.LearningLogSet
}

// Canned is the built-in Provider.
type Canned struct{}

func (Canned) QuizPool(topic string) []domain.QuizQuestion { return QuizPool(topic) }

func (Canned) MockLogs(userID string, now time.Time) domain.LearningLogSet {
	return MockLogs(userID, now)
}
