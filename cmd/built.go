package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewBuiltCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "built",
		Short: "List tools with a published binary",
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

			names := inv.Built()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tools built yet.")
				fmt.Fprintln(cmd.OutOrStdout(), "Run 'binforge build' to build the catalog.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBINARY\tSIZE\tBUILT")
			fmt.Fprintln(w, "----\t------\t----\t-----")
			for _, n := range names {
				info, _ := inv.Info(n)
				st, err := os.Stat(info.PublishedPath)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					n,
					info.PublishedPath,
					formatBytes(st.Size()),
					formatTimeSince(st.ModTime()),
				)
			}
			return w.Flush()
		},
	}
}
