package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func mirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "One-shot snapshot pull from a remote instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, _ := cmd.Flags().GetString("from")
			fromToken, _ := cmd.Flags().GetString("from-token")
			addr, _ := cmd.Flags().GetString("addr")
			token, _ := cmd.Flags().GetString("token")

			if from == "" {
				return fmt.Errorf("--from is required")
			}

			snap, err := newAPIClient(from, fromToken).Export(cmd.Context())
			if err != nil {
				return fmt.Errorf("export from %s: %w", from, err)
			}

			stats, err := newAPIClient(addr, token).Import(cmd.Context(), snap)
			if err != nil {
				return fmt.Errorf("import into %s: %w", addr, err)
			}

			fmt.Printf("Mirrored: %d entities, %d facts, %d notes, %d conversations\n",
				stats.Entities, stats.Facts, stats.Notes, stats.Conversations)
			return nil
		},
	}
	cmd.Flags().String("from", "", "Base URL of the remote instance to pull from")
	cmd.Flags().String("from-token", "", "Bearer token for the remote instance")
	cmd.Flags().String("addr", "http://127.0.0.1:8080", "Base URL of the local instance")
	cmd.Flags().String("token", "", "Bearer token for the local instance")
	return cmd
}
