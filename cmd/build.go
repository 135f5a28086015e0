package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-binforge/pkg/orchestrator"
)

func NewBuildCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "build [tools...]",
		Short: "Sync, build and publish tools",
		Long: `Clone or update each tool's repository, build it and copy the binary to the
output directory. With no arguments, builds enabled_tools from the config, or
the whole catalog.

Examples:
  binforge build                  # Everything
  binforge build rubeus seatbelt  # Selected tools
  binforge build rubeus -b dev    # A specific branch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("branch") {
				branch = s.cfg.Branch
			}

			if unknown := s.catalog.Unknown(args); len(unknown) > 0 {
				s.log.WithField("available", s.catalog.Names()).Warnf("Unknown tools: %v", unknown)
			}

			orch, err := s.orchestrator()
			if err != nil {
				return err
			}

			batch := orch.RunMany(cmd.Context(), s.cfg.Selection(args), branch)
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(batch))
			return batchError(batch)
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to build (default: the remote's default branch)")

	return cmd
}

func batchError(b *orchestrator.Batch) error {
	if b.AllSucceeded() {
		return nil
	}
	failed := b.Failed()
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		names = append(names, r.Tool)
	}
	return fmt.Errorf("%d of %d tools failed: %s", len(failed), len(b.Reports), strings.Join(names, ", "))
}
