package templates

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learning_agents/internal/domain"
)

func TestQuizPoolIsValid(t *testing.T) {
	pool := QuizPool("Go channels")
	require.GreaterOrEqual(t, len(pool), 2)
	for i, q := range pool {
		assert.True(t, q.Valid(), "question %d invalid: %+v", i, q)
		assert.Contains(t, q.Question, "Go channels")
	}
}

func TestMockLogsRelativeToNow(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	set := MockLogs("u1", now)

	assert.Equal(t, "u1", set.UserID)
	require.Len(t, set.Entries, 5)

	wantDays := []int{1, 2, 3, 5, 7}
	for i, entry := range set.Entries {
		ts, err := strconv.ParseFloat(entry.Timestamp, 64)
		require.NoError(t, err)
		want := float64(now.Unix() - int64(wantDays[i]*86400))
		assert.InDelta(t, want, ts, 0.001, "entry %d", i)
		assert.Equal(t, domain.LogStatusCompleted, entry.Status)
		require.NotNil(t, entry.Score)
		require.NotNil(t, entry.Notes)
	}
	assert.Equal(t, "English articles (a, an, the)", set.Entries[2].Topic)
	assert.InDelta(t, 0.45, *set.Entries[2].Score, 1e-9)
}

func TestMockNotes(t *testing.T) {
	notes := MockNotes("u2")
	require.Len(t, notes, 3)
	for _, n := range notes {
		assert.Equal(t, "u2", n.UserID)
		assert.NotEmpty(t, n.Tags)
	}
	assert.Equal(t, "note_2", notes[1].ID)
}

func TestFallbackAnswers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			name: "no credential",
			got:  NoCredentialAnswer("Q"),
			want: "質問「Q」について説明します。\n\nこの機能を完全に利用するには、OpenAI APIキーの設定が必要です。現在は簡易的な回答のみを提供しています。",
		},
		{
			name: "no backend",
			got:  NoBackendAnswer("Q"),
			want: "質問「Q」について説明します。\n\nOpenAI APIを使用するには、openaiパッケージのインストールとOPENAI_API_KEYの設定が必要です。",
		},
		{
			name: "error",
			got:  ErrorAnswer("Q", "boom"),
			want: "質問「Q」について説明します。\n\nOpenAI API呼び出し中にエラーが発生しました: boom",
		},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestExplanationPrompt(t *testing.T) {
	assert.Equal(t, "以下の質問について分かりやすく説明してください:\n\nQ", ExplanationPrompt("Q", ""))
	assert.Equal(t, "以下の質問について分かりやすく説明してください:\n\nQ\n\nトピック: Go", ExplanationPrompt("Q", "Go"))
}
