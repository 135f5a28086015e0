package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-binforge/pkg/builder"
	"github.com/mattsolo1/grove-binforge/pkg/deps"
)

func NewDepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check which toolchains are installed",
		Long:  `Report whether git and each build toolchain resolve on PATH, and which catalog tools can be built here.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}

			rep := deps.NewChecker(nil).Check(s.catalog, builder.NewDefaultRegistry())
			fmt.Fprintln(cmd.OutOrStdout(), renderDeps(rep))

			if !rep.Ready() {
				return fmt.Errorf("missing toolchains: %d of %d tools cannot be built", len(rep.Tools)-rep.Buildable(), len(rep.Tools))
			}
			return nil
		},
	}
}
