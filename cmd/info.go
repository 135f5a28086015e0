package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-binforge/pkg/repo"
)

func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <tool>",
		Short: "Show a tool's definition and build status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			inv, err := s.inventory()
			if err != nil {
				return err
			}

			info, ok := inv.Info(args[0])
			if !ok {
				return fmt.Errorf("unknown tool: %s (available: %s)", args[0], strings.Join(s.catalog.Names(), ", "))
			}
			spec := info.Spec

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.Bold.Render(spec.Name()))
			if spec.Description() != "" {
				fmt.Fprintln(out, spec.Description())
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%-14s %s\n", "Repository:", spec.Repo())
			fmt.Fprintf(out, "%-14s %s\n", "Category:", spec.Category())
			fmt.Fprintf(out, "%-14s %s\n", "Build system:", spec.BuildSystem())
			fmt.Fprintf(out, "%-14s %s\n", "Build command:", strings.Join(spec.BuildCommand(), " "))
			fmt.Fprintf(out, "%-14s %s\n", "Output:", spec.Output())
			if spec.Requires() != "" {
				fmt.Fprintf(out, "%-14s %s\n", "Requires:", spec.Requires())
			}
			if tags := spec.Tags(); len(tags) > 0 {
				fmt.Fprintf(out, "%-14s %s\n", "Tags:", strings.Join(tags, ", "))
			}
			if env := spec.Env(); len(env) > 0 {
				keys := make([]string, 0, len(env))
				for k := range env {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for i, k := range keys {
					label := ""
					if i == 0 {
						label = "Environment:"
					}
					fmt.Fprintf(out, "%-14s %s=%s\n", label, k, env[k])
				}
			}

			status := theme.Muted.Render("not built")
			if info.Built {
				status = theme.Success.Render("built") + " " + info.PublishedPath
			}
			fmt.Fprintf(out, "%-14s %s\n", "Status:", status)

			if rec := info.Record; rec != nil && !rec.Build.FinishedAt.IsZero() {
				last := rec.Build.Status
				if rec.Build.Status == repo.BuildFailed && rec.Build.Stage != "" {
					last += " (" + rec.Build.Stage + ")"
				}
				fmt.Fprintf(out, "%-14s %s, %s\n", "Last build:", last, formatTimeSince(rec.Build.FinishedAt))
				if rec.Build.Detail != "" {
					fmt.Fprintf(out, "%-14s %s\n", "", rec.Build.Detail)
				}
			}
			return nil
		},
	}

	return cmd
}
