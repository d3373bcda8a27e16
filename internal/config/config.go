package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAddr               = ":8000"
	DefaultBaseURL            = "http://localhost:8000"
	DefaultGenerationEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultModel              = "gpt-3.5-turbo"
	DefaultTemperature        = 0.7
	DefaultGenerationTimeout  = 60 * time.Second
	DefaultNotesTimeout       = 10 * time.Second
	DefaultLogsDir            = "data/learning_logs"
	DefaultNotesDBPath        = "data/learning_agents.db"
	DefaultPromptsDir         = "prompts"
	DefaultUser               = "default_user"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Generation GenerationConfig `toml:"generation"`
	Review     ReviewConfig     `toml:"review"`
	Notes      NotesConfig      `toml:"notes"`
	Intent     IntentConfig     `toml:"intent"`
	Prompts    PromptsConfig    `toml:"prompts"`
	Log        LogConfig        `toml:"log"`
	Path       string           `toml:"-"`
}

type ServerConfig struct {
	Addr    string `toml:"addr"`
	BaseURL string `toml:"base_url"`
}

type GenerationConfig struct {
	Endpoint    string  `toml:"endpoint"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	TimeoutMS   int     `toml:"timeout_ms"`
	Temperature float64 `toml:"temperature"`
	Disabled    bool    `toml:"disabled"`
}

type ReviewConfig struct {
	LogsDir     string `toml:"logs_dir"`
	DefaultUser string `toml:"default_user"`
}

type NotesConfig struct {
	Endpoint  string `toml:"endpoint"`
	DBPath    string `toml:"db_path"`
	TimeoutMS int    `toml:"timeout_ms"`
}

type IntentConfig struct {
	KeywordsFile string `toml:"keywords_file"`
}

type PromptsConfig struct {
	Dir string `toml:"dir"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Load reads the TOML file at path. An empty path falls back to the default
// location, which may be absent; an explicit path must exist. Environment
// overrides are applied last, then defaults fill the gaps.
func Load(path string) (Config, error) {
	explicit := strings.TrimSpace(path) != ""
	resolved := path
	if !explicit {
		resolved = defaultConfigPath()
	}
	resolved, err := expandHome(resolved)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	bytes, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if _, err := toml.Decode(string(bytes), &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file: %w", err)
		}
		cfg.Path = resolved
	case !explicit && errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("OPENAI_API_KEY"); ok && strings.TrimSpace(v) != "" {
		c.Generation.APIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup("INTERNAL_API_BASE_URL"); ok && strings.TrimSpace(v) != "" {
		c.Server.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("NOTES_ENDPOINT"); ok && strings.TrimSpace(v) != "" {
		c.Notes.Endpoint = strings.TrimSpace(v)
	}
	if v, ok := lookup("LEARNING_LOGS_DIR"); ok && strings.TrimSpace(v) != "" {
		c.Review.LogsDir = strings.TrimSpace(v)
	}
}

func (c *Config) applyDefaults() {
	c.Server.Addr = firstNonEmpty(c.Server.Addr, DefaultAddr)
	c.Server.BaseURL = strings.TrimRight(firstNonEmpty(c.Server.BaseURL, DefaultBaseURL), "/")
	c.Generation.Endpoint = firstNonEmpty(c.Generation.Endpoint, DefaultGenerationEndpoint)
	c.Generation.Model = firstNonEmpty(c.Generation.Model, DefaultModel)
	if c.Generation.Temperature <= 0 {
		c.Generation.Temperature = DefaultTemperature
	}
	c.Review.LogsDir = filepath.Clean(firstNonEmpty(c.Review.LogsDir, DefaultLogsDir))
	c.Review.DefaultUser = firstNonEmpty(c.Review.DefaultUser, DefaultUser)
	c.Notes.DBPath = filepath.Clean(firstNonEmpty(c.Notes.DBPath, DefaultNotesDBPath))
	c.Prompts.Dir = firstNonEmpty(c.Prompts.Dir, DefaultPromptsDir)
	c.Log.Level = strings.ToLower(firstNonEmpty(c.Log.Level, "info"))
}

func (c Config) GenerationTimeout() time.Duration {
	return durationMS(c.Generation.TimeoutMS, DefaultGenerationTimeout)
}

func (c Config) NotesTimeout() time.Duration {
	return durationMS(c.Notes.TimeoutMS, DefaultNotesTimeout)
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return filepath.Clean(p), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	trimmed := strings.TrimPrefix(p, "~")
	trimmed = strings.TrimPrefix(trimmed, "\\")
	trimmed = strings.TrimPrefix(trimmed, "/")
	return filepath.Clean(filepath.Join(home, trimmed)), nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".learning_agents/config.toml"
	}
	return filepath.Join(home, ".learning_agents", "config.toml")
}

func durationMS(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Millisecond
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
