package main

import (
	"context"
	"encoding/json"

	"github.com/BetterCallFirewall/Revalidator/internal/output"
	"github.com/BetterCallFirewall/Revalidator/internal/storage"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent assessments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store := openStore(ctx, cfg)
			defer store.Close()

			items, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			return output.HistoryOutput(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", storage.DefaultListLimit, "How many assessments to show")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <document-id>",
		Short: "Print the full assessment document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store := openStore(ctx, cfg)
			defer store.Close()

			doc, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
}
