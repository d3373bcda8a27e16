// Package learninglog persists one JSON document of study sessions per user
// under a fixed directory.
package learninglog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"learning_agents/internal/domain"
)

var (
	ErrNotFound      = errors.New("learning log not found")
	ErrCorrupt       = errors.New("learning log is corrupt")
	ErrInvalidUserID = errors.New("invalid user id")
)

type Store struct {
	root string
	mu   sync.Mutex
}

func NewStore(root string) (*Store, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve logs dir: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	return &Store{root: absRoot}, nil
}

func (s *Store) Root() string { return s.root }

// Load reads the user's log file. It is read fresh on every call.
func (s *Store) Load(userID string) (domain.LearningLogSet, error) {
	path, err := s.resolve(userID)
	if err != nil {
		return domain.LearningLogSet{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.LearningLogSet{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return domain.LearningLogSet{}, fmt.Errorf("read learning log: %w", err)
	}
	var set domain.LearningLogSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.LearningLogSet{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	for i, entry := range set.Entries {
		if err := validateEntry(entry); err != nil {
			return domain.LearningLogSet{}, fmt.Errorf("%w: %s: entry %d: %v", ErrCorrupt, path, i, err)
		}
	}
	if set.UserID == "" {
		set.UserID = userID
	}
	return set, nil
}

func (s *Store) Save(set domain.LearningLogSet) error {
	path, err := s.resolve(set.UserID)
	if err != nil {
		return err
	}
	for i, entry := range set.Entries {
		if err := validateEntry(entry); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	if set.Entries == nil {
		set.Entries = []domain.LearningLogEntry{}
	}
	payload, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal learning log: %w", err)
	}
	tmp, err := os.CreateTemp(s.root, ".log-*.json")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp log: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace learning log: %w", err)
	}
	return nil
}

// Append adds one entry, creating the file when the user has none.
func (s *Store) Append(userID string, entry domain.LearningLogEntry) (domain.LearningLogSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.Load(userID)
	if errors.Is(err, ErrNotFound) {
		set, err = domain.LearningLogSet{UserID: userID}, nil
	}
	if err != nil {
		return domain.LearningLogSet{}, err
	}
	set.UserID = userID
	set.Entries = append(set.Entries, entry)
	if err := s.Save(set); err != nil {
		return domain.LearningLogSet{}, err
	}
	return set, nil
}

func validateEntry(e domain.LearningLogEntry) error {
	if strings.TrimSpace(e.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if strings.TrimSpace(e.Timestamp) == "" {
		return fmt.Errorf("timestamp is required")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("unknown status %q", e.Status)
	}
	if e.Score != nil && (*e.Score < 0 || *e.Score > 1) {
		return fmt.Errorf("score %v out of range", *e.Score)
	}
	return nil
}

// resolve maps a user id to {root}/{user_id}.json, refusing ids that would
// leave the root.
func (s *Store) resolve(userID string) (string, error) {
	id := strings.TrimSpace(userID)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	abs := filepath.Clean(filepath.Join(s.root, id+".json"))
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", fmt.Errorf("resolve log path: %w", err)
	}
	if strings.HasPrefix(rel, "..") || filepath.Dir(rel) != "." {
		return "", fmt.Errorf("%w: %q escapes logs dir", ErrInvalidUserID, userID)
	}
	return abs, nil
}
