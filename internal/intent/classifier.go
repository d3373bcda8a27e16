// Package intent maps a learner's question to one of the routing intents
// using ordered keyword rules.
package intent

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"

	"learning_agents/internal/domain"
)

// Rule pairs an intent with the keywords that select it.
type Rule struct {
	Intent   domain.Intent `yaml:"intent"`
	Keywords []string      `yaml:"keywords"`
}

// Table is evaluated in order; the first rule with a matching keyword wins.
type Table []Rule

type tableFile struct {
	Rules Table `yaml:"rules"`
}

var ErrInvalidTable = errors.New("invalid keyword table")

// DefaultTable holds the bilingual review and practice keywords. Review is
// checked first.
func DefaultTable() Table {
	return Table{
		{
			Intent:   domain.IntentReview,
			Keywords: []string{"復習", "前回", "以前", "再度", "もう一度", "review", "revisit", "again", "previous"},
		},
		{
			Intent:   domain.IntentPractice,
			Keywords: []string{"練習", "練習問題", "問題", "クイズ", "テスト", "practice", "exercise", "quiz", "problem", "test"},
		},
	}
}

// LoadTable reads a YAML keyword table of the form
//
//	rules:
//	  - intent: review
//	    keywords: [review, again]
func LoadTable(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table %s: %w", path, err)
	}
	var file tableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode keyword table: %w", err)
	}
	if err := file.Rules.Validate(); err != nil {
		return nil, err
	}
	return file.Rules, nil
}

func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalidTable)
	}
	for i, rule := range t {
		if !rule.Intent.Valid() {
			return fmt.Errorf("%w: rule %d has unknown intent %q", ErrInvalidTable, i, rule.Intent)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("%w: rule %d (%s) has no keywords", ErrInvalidTable, i, rule.Intent)
		}
	}
	return nil
}

type Classifier struct {
	rules  []Rule
	logger *zap.Logger
}

func NewClassifier(table Table, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := make([]Rule, 0, len(table))
	for _, rule := range table {
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if kw = normalize(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		rules = append(rules, Rule{Intent: rule.Intent, Keywords: keywords})
	}
	return &Classifier{rules: rules, logger: logger}
}

// Classify returns the intent of the first rule whose keyword occurs in the
// question, or explanation when none do.
func (c *Classifier) Classify(question string) domain.Intent {
	text := normalize(question)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				c.logger.Debug("question classified",
					zap.String("intent", string(rule.Intent)),
					zap.String("keyword", kw),
					zap.String("question", question))
				return rule.Intent
			}
		}
	}
	c.logger.Debug("question classified",
		zap.String("intent", string(domain.IntentExplanation)),
		zap.String("question", question))
	return domain.IntentExplanation
}

// normalize folds full-width latin to ASCII and lower-cases.
func normalize(s string) string {
	folded := width.Fold.String(strings.TrimSpace(s))
	return cases.Lower(language.Und).String(folded)
}
