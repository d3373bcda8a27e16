package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"learning_agents/internal/domain"
	"learning_agents/internal/learninglog"
	"learning_agents/internal/templates"
)

func newLogsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect and edit per-user learning logs",
	}
	cmd.AddCommand(newLogsAddCommand(root))
	cmd.AddCommand(newLogsShowCommand(root))
	return cmd
}

func openLogStore(root *rootOptions, dir string) (*learninglog.Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		cfg, err := root.load()
		if err != nil {
			return nil, err
		}
		dir = cfg.Review.LogsDir
	}
	return learninglog.NewStore(dir)
}

func newLogsAddCommand(root *rootOptions) *cobra.Command {
	var (
		dir, userID, topic, status, note string
		score                            float64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append one session to a user's learning log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openLogStore(root, dir)
			if err != nil {
				return err
			}
			entry := domain.LearningLogEntry{
				Topic:     strings.TrimSpace(topic),
				Timestamp: templates.FormatTimestamp(float64(time.Now().UnixMicro()) / 1e6),
				Status:    domain.LogStatus(status),
			}
			if cmd.Flags().Changed("score") {
				entry.Score = &score
			}
			if n := strings.TrimSpace(note); n != "" {
				entry.Notes = &n
			}
			set, err := store.Append(userID, entry)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", set.UserID, len(set.Entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "learning log directory (default: review.logs_dir from config)")
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&topic, "topic", "", "topic studied")
	cmd.Flags().Float64Var(&score, "score", 0, "score in [0, 1]")
	cmd.Flags().StringVar(&status, "status", string(domain.LogStatusCompleted), "completed, in_progress or failed")
	cmd.Flags().StringVar(&note, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func newLogsShowCommand(root *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "show [user]",
		Short: "Print a user's learning log as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLogStore(root, dir)
			if err != nil {
				return err
			}
			set, err := store.Load(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "learning log directory (default: review.logs_dir from config)")
	return cmd
}
