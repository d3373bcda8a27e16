package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"learning_agents/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS notes (
	id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	topic TEXT NOT NULL,
	content TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	PRIMARY KEY(user_id, id)
);
CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id, created_at);

CREATE TABLE IF NOT EXISTS relay_journal (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL,
	sender TEXT NOT NULL,
	receiver TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	outcome TEXT NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relay_journal_task ON relay_journal(task_id, created_at);
`

// SharedUser owns notes visible to every user.
const SharedUser = ""

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SeedNotes inserts notes that are not present yet. Existing rows keep
// their content.
func (s *Store) SeedNotes(ctx context.Context, notes []domain.Note) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed notes: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, n := range notes {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO notes(id, user_id, topic, content, tags, created_at)
			VALUES(?, ?, ?, ?, ?, ?)`,
			n.ID, n.UserID, n.Topic, n.Content, mustJSON(n.Tags), n.CreatedAt.UTC().Unix())
		if err != nil {
			return 0, fmt.Errorf("seed note %s: %w", n.ID, err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed notes: %w", err)
	}
	return inserted, nil
}

func (s *Store) AddNote(ctx context.Context, note domain.Note) (domain.Note, error) {
	if strings.TrimSpace(note.Topic) == "" {
		return domain.Note{}, fmt.Errorf("note topic is required")
	}
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO notes(id, user_id, topic, content, tags, created_at)
		VALUES(?, ?, ?, ?, ?, ?)`,
		note.ID, note.UserID, note.Topic, note.Content, mustJSON(note.Tags), note.CreatedAt.UTC().Unix())
	if err != nil {
		return domain.Note{}, fmt.Errorf("add note: %w", err)
	}
	return note, nil
}

// PastNotes returns the user's notes plus shared ones, oldest first. topic
// is a case-insensitive substring filter; limit applies after filtering.
func (s *Store) PastNotes(ctx context.Context, userID, topic string, limit int) (domain.PastNotesData, error) {
	if limit <= 0 {
		limit = 10
	}
	where := `(user_id = ? OR user_id = ?)`
	args := []any{userID, SharedUser}
	if topic != "" {
		where += ` AND instr(lower(topic), lower(?)) > 0`
		args = append(args, topic)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE `+where, args...).Scan(&total); err != nil {
		return domain.PastNotesData{}, fmt.Errorf("count notes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, topic, content, tags, created_at FROM notes WHERE `+where+`
		ORDER BY created_at ASC, id ASC LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return domain.PastNotesData{}, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		var n domain.Note
		var tags string
		var created int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Topic, &n.Content, &tags, &created); err != nil {
			return domain.PastNotesData{}, fmt.Errorf("scan note: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
			return domain.PastNotesData{}, fmt.Errorf("decode note tags %s: %w", n.ID, err)
		}
		if n.UserID == SharedUser {
			n.UserID = userID
		}
		n.CreatedAt = unixToTime(created)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return domain.PastNotesData{}, fmt.Errorf("iterate notes: %w", err)
	}

	data := domain.PastNotesData{
		UserID:     userID,
		Notes:      notes,
		Count:      len(notes),
		TotalCount: total,
	}
	if topic != "" {
		data.Topic = &topic
	}
	return data, nil
}

func (s *Store) RecordRelay(ctx context.Context, entry domain.RelayJournalEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO relay_journal(
			task_id, sender, receiver, endpoint, outcome, status_code, duration_ms, error, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.TaskID, entry.Sender, entry.Receiver, entry.Endpoint, entry.Outcome,
		entry.StatusCode, entry.DurationMS, entry.Error, entry.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("record relay: %w", err)
	}
	return nil
}

// ListRelayJournal returns the newest entries first.
func (s *Store) ListRelayJournal(ctx context.Context, limit int) ([]domain.RelayJournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_id, sender, receiver, endpoint, outcome,
			status_code, duration_ms, error, created_at
		FROM relay_journal ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list relay journal: %w", err)
	}
	defer rows.Close()

	result := make([]domain.RelayJournalEntry, 0)
	for rows.Next() {
		var e domain.RelayJournalEntry
		var created int64
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Sender, &e.Receiver, &e.Endpoint, &e.Outcome,
			&e.StatusCode, &e.DurationMS, &e.Error, &created); err != nil {
			return nil, fmt.Errorf("scan relay journal: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relay journal: %w", err)
	}
	return result, nil
}

func unixToTime(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

func mustJSON(v any) string {
	payload, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(payload)
}
