package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"learning_agents/internal/chatclient"
)

func newAskCommand(root *rootOptions) *cobra.Command {
	var topic, subject, server string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a running teacher agent a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := strings.TrimSpace(server)
			if baseURL == "" {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				baseURL = cfg.Server.BaseURL
			}
			client := chatclient.New(baseURL, nil)
			answer, err := client.Ask(cmd.Context(), strings.Join(args, " "), topic, subject)
			if err != nil {
				return fmt.Errorf("ask %s: %w", client.BaseURL(), err)
			}
			fmt.Fprint(cmd.OutOrStdout(), chatclient.RenderAnswer(answer))
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic of the question")
	cmd.Flags().StringVar(&subject, "subject", "", "subject of the question")
	cmd.Flags().StringVar(&server, "server", "", "server base URL (default: server.base_url from config)")
	return cmd
}
