// Package prompts reads per-agent persona text from {dir}/{agent}_prompt.txt.
package prompts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var ErrEmptyPrompt = errors.New("prompt file is empty")

type Loader struct {
	dir    string
	logger *zap.Logger
}

func NewLoader(dir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{dir: dir, logger: logger}
}

func (l *Loader) path(agent string) string {
	return filepath.Join(l.dir, agent+"_prompt.txt")
}

// Load returns the prompt text for agent, or an error when the file is
// missing, unreadable, or blank.
func (l *Loader) Load(agent string) (string, error) {
	p := l.path(agent)
	raw, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", p, err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyPrompt, p)
	}
	return text, nil
}

// Get never fails; a default persona is returned when Load does.
func (l *Loader) Get(agent string) string {
	text, err := l.Load(agent)
	if err != nil {
		l.logger.Warn("prompt not loaded, using default persona", zap.String("agent", agent), zap.Error(err))
		return DefaultPersona(agent)
	}
	l.logger.Info("prompt loaded", zap.String("agent", agent), zap.Int("chars", len([]rune(text))))
	return text
}

func DefaultPersona(agent string) string {
	return fmt.Sprintf("あなたは%sエージェントです。学習者のサポートを行います。", agent)
}
