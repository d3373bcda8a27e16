package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"learning_agents/internal/a2a"
	"learning_agents/internal/agent"
	"learning_agents/internal/config"
	"learning_agents/internal/domain"
	"learning_agents/internal/generation"
	"learning_agents/internal/intent"
	"learning_agents/internal/learninglog"
	"learning_agents/internal/metrics"
	"learning_agents/internal/notes"
	"learning_agents/internal/policy"
	"learning_agents/internal/prompts"
	"learning_agents/internal/server"
	sqlitestore "learning_agents/internal/store/sqlite"
	"learning_agents/internal/templates"
)

type serveOptions struct {
	addr    string
	baseURL string
	dbPath  string
	logsDir string
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			opts.apply(&cfg)
			logger, err := newLogger(cfg.Log, root.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "http listen address override")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "base URL agents use to reach each other")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "sqlite database path override")
	cmd.Flags().StringVar(&opts.logsDir, "logs-dir", "", "learning log directory override")
	return cmd
}

func (o *serveOptions) apply(cfg *config.Config) {
	if v := strings.TrimSpace(o.addr); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(o.baseURL); v != "" {
		cfg.Server.BaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(o.dbPath); v != "" {
		cfg.Notes.DBPath = filepath.Clean(v)
	}
	if v := strings.TrimSpace(o.logsDir); v != "" {
		cfg.Review.LogsDir = filepath.Clean(v)
	}
}

type app struct {
	handler http.Handler
	store   *sqlitestore.Store
	relay   *a2a.Relay
}

func (a *app) Close() error {
	a.relay.Close()
	return a.store.Close()
}

// buildApp opens the stores and wires every agent behind one handler.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Notes.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	store, err := sqlitestore.Open(cfg.Notes.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	seeded, err := store.SeedNotes(ctx, templates.MockNotes(sqlitestore.SharedUser))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed notes: %w", err)
	}
	if seeded > 0 {
		logger.Info("seeded past notes", zap.Int("count", seeded))
	}

	logs, err := learninglog.NewStore(cfg.Review.LogsDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	table := intent.DefaultTable()
	if path := strings.TrimSpace(cfg.Intent.KeywordsFile); path != "" {
		if table, err = intent.LoadTable(path); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	m := metrics.New()
	gen, err := newGenerator(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	genPolicy := generation.Policy{Generator: gen, Logger: logger.Named("generation"), Metrics: m}
	personas := prompts.NewLoader(cfg.Prompts.Dir, logger.Named("prompts"))
	channels := policy.New(policy.DefaultChannels())

	relay := a2a.NewRelay(a2a.RelayConfig{
		BaseURL: cfg.Server.BaseURL,
		Logger:  logger.Named("relay"),
		Metrics: m,
		Journal: store,
	})

	localNotes := notes.NewClient(store, cfg.NotesTimeout(), logger.Named("notes"))
	reviewNotes := localNotes
	if endpoint := strings.TrimSpace(cfg.Notes.Endpoint); endpoint != "" {
		reviewNotes = notes.NewClient(notes.NewHTTPSource(endpoint, &http.Client{Timeout: cfg.NotesTimeout()}), cfg.NotesTimeout(), logger.Named("notes"))
	}

	srv := server.New(server.Config{
		Teacher: agent.NewTeacher(agent.TeacherConfig{
			Classifier:  intent.NewClassifier(table, logger.Named("intent")),
			Relay:       relay,
			Channels:    channels,
			Generation:  genPolicy,
			Persona:     personas.Get(string(domain.AgentTeacher)),
			DefaultUser: cfg.Review.DefaultUser,
			Logger:      logger,
		}),
		Quiz: agent.NewQuiz(agent.QuizConfig{
			Generation: genPolicy,
			Persona:    personas.Get(string(domain.AgentQuiz)),
			Channels:   channels,
			Logger:     logger,
		}),
		Review: agent.NewReview(agent.ReviewConfig{
			Logs:     logs,
			Notes:    reviewNotes,
			Channels: channels,
			Logger:   logger,
		}),
		Journal:    store,
		Notes:      localNotes,
		Metrics:    m,
		Logger:     logger.Named("http"),
		ConfigPath: cfg.Path,
	})
	return &app{handler: srv.Handler(), store: store, relay: relay}, nil
}

// newGenerator returns nil when generation is disabled, which the policy
// treats as a missing backend.
func newGenerator(cfg config.Config, logger *zap.Logger) (generation.Generator, error) {
	if cfg.Generation.Disabled {
		logger.Warn("text generation disabled, agents will use fallback content")
		return nil, nil
	}
	client, err := generation.NewOpenAIClient(generation.OpenAIConfig{
		Endpoint:    cfg.Generation.Endpoint,
		Model:       cfg.Generation.Model,
		APIKey:      cfg.Generation.APIKey,
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.GenerationTimeout(),
		Logger:      logger.Named("openai"),
	})
	if err != nil {
		return nil, fmt.Errorf("create generation client: %w", err)
	}
	if cfg.Generation.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set, agents will use fallback content")
	}
	return client, nil
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("learning agents started",
		zap.String("addr", cfg.Server.Addr),
		zap.String("base_url", cfg.Server.BaseURL),
		zap.String("db", cfg.Notes.DBPath),
		zap.String("logs_dir", cfg.Review.LogsDir),
		zap.String("model", cfg.Generation.Model))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	logger.Info("learning agents stopped")
	return nil
}
