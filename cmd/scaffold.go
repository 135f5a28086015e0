package cmd

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-binforge/pkg/builder"
	"github.com/mattsolo1/grove-binforge/pkg/catalog"
)

func NewScaffoldCmd() *cobra.Command {
	var (
		repoURL string
		name    string
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "scaffold <msbuild|dotnet> <project>",
		Short: "Print a catalog entry for a new tool",
		Long: `Print a tools entry using the conventional build command for the given
build system. Paste it into the tools section of your config.

Examples:
  binforge scaffold msbuild Rubeus.sln --repo https://github.com/GhostPack/Rubeus.git
  binforge scaffold dotnet src/Tool/Tool.csproj --repo https://example.com/tool.git --publish`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}

			kind, project := args[0], args[1]
			reg := builder.NewDefaultRegistry()
			backend, ok := reg.Lookup(kind, s.cfg.BackendOptions())
			if !ok {
				return fmt.Errorf("unknown build system %q (available: %s)", kind, strings.Join(reg.IDs(), ", "))
			}

			project = strings.ReplaceAll(project, `\`, "/")
			base := strings.TrimSuffix(path.Base(project), path.Ext(project))
			configuration := s.cfg.Backend.Configuration
			if configuration == "" {
				configuration = "Release"
			}

			entry := catalog.Entry{
				Repo:     repoURL,
				Requires: backend.Executable(),
			}
			switch b := backend.(type) {
			case *builder.MSBuild:
				entry.BuildSystem = string(catalog.MSBuild)
				entry.BuildCmd = b.DefaultCommand(project)
				entry.Output = path.Join(base, "bin", configuration, base+".exe")
			case *builder.DotNet:
				entry.BuildSystem = string(catalog.DotNet)
				entry.BuildCmd = b.DefaultCommand(project, publish)
				entry.Output = path.Join(path.Dir(project), "bin", configuration, base+".dll")
			default:
				return fmt.Errorf("build system %q has no default command", kind)
			}

			if name == "" {
				name = strings.ToLower(base)
			}
			spec, err := catalog.NewToolSpec(name, entry)
			if err != nil {
				return err
			}
			cat, err := catalog.New(spec)
			if err != nil {
				return err
			}
			return catalog.Encode(cmd.OutOrStdout(), cat)
		},
	}

	cmd.Flags().StringVar(&repoURL, "repo", "", "Git URL of the tool's repository")
	cmd.Flags().StringVar(&name, "name", "", "Tool name (default: project name, lower case)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Use dotnet publish instead of build")
	_ = cmd.MarkFlagRequired("repo")

	return cmd
}
