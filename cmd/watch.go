package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-binforge/pkg/config"
)

func NewWatchCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild whenever the config file changes",
		Long: `Build the selected tools, then rebuild every time the config file is saved.
Requires --config. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath == "" {
				return fmt.Errorf("watch requires --config")
			}

			changed := make(chan struct{}, 1)
			reloadErr := make(chan error, 1)
			w, err := config.Watch(opts.configPath, func(_ *config.Config, err error) {
				if err != nil {
					select {
					case reloadErr <- err:
					default:
					}
					return
				}
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			if err != nil {
				return err
			}

			build := func() error {
				cfg := *w.Current()
				s, err := newSession(cmd, &cfg)
				if err != nil {
					return err
				}
				b := branch
				if !cmd.Flags().Changed("branch") {
					b = s.cfg.Branch
				}
				orch, err := s.orchestrator()
				if err != nil {
					return err
				}
				batch := orch.RunMany(cmd.Context(), s.cfg.Selection(nil), b)
				fmt.Fprintln(cmd.OutOrStdout(), renderSummary(batch))
				s.log.WithField("config", w.Path()).Info("Watching for changes")
				return nil
			}

			if err := build(); err != nil {
				return err
			}
			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case err := <-reloadErr:
					fmt.Fprintln(cmd.ErrOrStderr(), theme.Error.Render("Config reload failed: "+err.Error()))
				case <-changed:
					if err := build(); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), theme.Error.Render(err.Error()))
					}
				}
			}
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to build (default: the remote's default branch)")

	return cmd
}
