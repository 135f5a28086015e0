package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-binforge/pkg/repo"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working copies and their last build",
		Long:  `List every tool that has a working copy in the build directory, with the commit it was last synced to and how its last build ended.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			inv, err := s.inventory()
			if err != nil {
				return err
			}

			repos, err := inv.Status()
			if err != nil {
				return fmt.Errorf("failed to read build manifest: %w", err)
			}

			if len(repos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No working copies yet.")
				fmt.Fprintln(cmd.OutOrStdout(), "Run 'binforge build' to clone and build tools.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TOOL\tBRANCH\tCOMMIT\tSTATUS\tLAST SYNCED\tLAST BUILD")
			fmt.Fprintln(w, "----\t------\t------\t------\t-----------\t----------")

			for _, r := range repos {
				branch := r.Branch
				if branch == "" {
					branch = "default"
				}

				commit := r.ResolvedCommit
				if len(commit) > 7 {
					commit = commit[:7]
				}
				if commit == "" {
					commit = "-"
				}

				status := r.Build.Status
				if status == repo.BuildFailed && r.Build.Stage != "" {
					status += " (" + r.Build.Stage + ")"
				}

				lastSynced := "never"
				if !r.LastSyncedAt.IsZero() {
					lastSynced = formatTimeSince(r.LastSyncedAt)
				}
				lastBuild := "never"
				if !r.Build.FinishedAt.IsZero() {
					lastBuild = formatTimeSince(r.Build.FinishedAt)
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Tool,
					branch,
					commit,
					status,
					lastSynced,
					lastBuild,
				)
			}

			return w.Flush()
		},
	}
}
