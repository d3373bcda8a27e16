package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"learning_agents/internal/domain"
)

func seedCorpus() []domain.Note {
	return []domain.Note{
		{ID: "note_1", Topic: "Python decorators", Content: "a", CreatedAt: time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC), Tags: []string{"Python"}},
		{ID: "note_2", Topic: "English articles", Content: "b", CreatedAt: time.Date(2025, 11, 2, 14, 30, 0, 0, time.UTC), Tags: []string{"英語"}},
		{ID: "note_3", Topic: "Python list comprehensions", Content: "c", CreatedAt: time.Date(2025, 11, 3, 9, 15, 0, 0, time.UTC), Tags: []string{"Python", "リスト"}},
	}
}

func TestSeedNotesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	n, err := store.SeedNotes(ctx, seedCorpus())
	if err != nil {
		t.Fatalf("seed notes: %v", err)
	}
	if n != 3 {
		t.Fatalf("seeded=%d want=3", n)
	}
	n, err = store.SeedNotes(ctx, seedCorpus())
	if err != nil {
		t.Fatalf("reseed notes: %v", err)
	}
	if n != 0 {
		t.Fatalf("reseeded=%d want=0", n)
	}
}

func TestPastNotesFilterAndLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	if _, err := store.SeedNotes(ctx, seedCorpus()); err != nil {
		t.Fatalf("seed notes: %v", err)
	}

	tests := []struct {
		name      string
		topic     string
		limit     int
		wantIDs   []string
		wantTotal int
	}{
		{name: "all", limit: 10, wantIDs: []string{"note_1", "note_2", "note_3"}, wantTotal: 3},
		{name: "case insensitive substring", topic: "PYTHON", limit: 10, wantIDs: []string{"note_1", "note_3"}, wantTotal: 2},
		{name: "limit after filter", topic: "python", limit: 1, wantIDs: []string{"note_1"}, wantTotal: 2},
		{name: "no match", topic: "rust", limit: 10, wantIDs: []string{}, wantTotal: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := store.PastNotes(ctx, "u1", tc.topic, tc.limit)
			if err != nil {
				t.Fatalf("past notes: %v", err)
			}
			ids := make([]string, 0, len(data.Notes))
			for _, n := range data.Notes {
				ids = append(ids, n.ID)
				if n.UserID != "u1" {
					t.Fatalf("note %s user=%q want=u1", n.ID, n.UserID)
				}
			}
			if diff := cmp.Diff(tc.wantIDs, ids); diff != "" {
				t.Fatalf("ids mismatch (-want +got):\n%s", diff)
			}
			if data.Count != len(tc.wantIDs) || data.TotalCount != tc.wantTotal {
				t.Fatalf("count=%d total=%d want=%d/%d", data.Count, data.TotalCount, len(tc.wantIDs), tc.wantTotal)
			}
		})
	}
}

func TestAddNoteScopedToUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	added, err := store.AddNote(ctx, domain.Note{UserID: "alice", Topic: "Go interfaces", Content: "small"})
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if added.ID == "" {
		t.Fatalf("expected generated note id")
	}

	alice, err := store.PastNotes(ctx, "alice", "", 10)
	if err != nil {
		t.Fatalf("past notes alice: %v", err)
	}
	if alice.Count != 1 || alice.Notes[0].Topic != "Go interfaces" {
		t.Fatalf("unexpected alice notes: %+v", alice.Notes)
	}
	if diff := cmp.Diff([]string{}, alice.Notes[0].Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}

	bob, err := store.PastNotes(ctx, "bob", "", 10)
	if err != nil {
		t.Fatalf("past notes bob: %v", err)
	}
	if bob.Count != 0 {
		t.Fatalf("bob should not see alice's notes, got %d", bob.Count)
	}

	if _, err := store.AddNote(ctx, domain.Note{UserID: "alice"}); err == nil {
		t.Fatalf("expected error for empty topic")
	}
}

func TestRelayJournal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	entries := []domain.RelayJournalEntry{
		{TaskID: "t1", Sender: "teacher", Receiver: "quiz", Endpoint: "/quiz/generate-quiz", Outcome: "ok", StatusCode: 200, DurationMS: 12},
		{TaskID: "t2", Sender: "teacher", Receiver: "review", Endpoint: "/review/review", Outcome: "timeout", DurationMS: 30000, Error: "agent relay timed out: review"},
	}
	for _, e := range entries {
		if err := store.RecordRelay(ctx, e); err != nil {
			t.Fatalf("record relay: %v", err)
		}
	}

	got, err := store.ListRelayJournal(ctx, 10)
	if err != nil {
		t.Fatalf("list relay journal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("journal len=%d want=2", len(got))
	}
	if got[0].TaskID != "t2" || got[0].Outcome != "timeout" || got[0].Error == "" {
		t.Fatalf("unexpected newest entry: %+v", got[0])
	}
	if got[1].StatusCode != 200 || got[1].CreatedAt.IsZero() {
		t.Fatalf("unexpected oldest entry: %+v", got[1])
	}

	limited, err := store.ListRelayJournal(ctx, 1)
	if err != nil {
		t.Fatalf("list limited journal: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited len=%d want=1", len(limited))
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		t.Fatalf("migrate store: %v", err)
	}
	return store
}
