package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"learning_agents/internal/intent"
)

func newClassifyCommand(root *rootOptions) *cobra.Command {
	var keywordsFile string
	cmd := &cobra.Command{
		Use:   "classify [question]",
		Short: "Print the intent a question would be routed by",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(keywordsFile)
			if path == "" {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				path = strings.TrimSpace(cfg.Intent.KeywordsFile)
			}
			table := intent.DefaultTable()
			if path != "" {
				var err error
				if table, err = intent.LoadTable(path); err != nil {
					return err
				}
			}
			got := intent.NewClassifier(table, nil).Classify(strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), got)
			return nil
		},
	}
	cmd.Flags().StringVar(&keywordsFile, "keywords", "", "YAML keyword table (default: intent.keywords_file from config)")
	return cmd
}
