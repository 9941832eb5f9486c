package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/knowdhq/knowd/internal/gitlog"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Feed external sources into a running instance",
	}

	gitlogCmd := &cobra.Command{
		Use:   "gitlog <path>",
		Short: "Ingest git commit history as tagged notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			token, _ := cmd.Flags().GetString("token")
			depth, _ := cmd.Flags().GetInt("depth")

			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			commits, err := gitlog.Read(cmd.Context(), dir, depth)
			if err != nil {
				return err
			}
			if len(commits) == 0 {
				fmt.Println("No commits found.")
				return nil
			}

			repo := filepath.Base(dir)
			client := newAPIClient(addr, token)
			added, err := gitlog.Ingest(cmd.Context(), client, repo, commits)
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d of %d commits from %s\n", added, len(commits), repo)
			return nil
		},
	}
	gitlogCmd.Flags().String("addr", "http://127.0.0.1:8080", "Base URL of the running instance")
	gitlogCmd.Flags().String("token", "", "Bearer token, if the API requires one")
	gitlogCmd.Flags().Int("depth", 50, "Maximum number of commits to read")

	cmd.AddCommand(gitlogCmd)
	return cmd
}
