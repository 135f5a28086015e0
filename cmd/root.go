package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-binforge/pkg/builder"
	"github.com/mattsolo1/grove-binforge/pkg/catalog"
	"github.com/mattsolo1/grove-binforge/pkg/config"
	"github.com/mattsolo1/grove-binforge/pkg/events"
	"github.com/mattsolo1/grove-binforge/pkg/orchestrator"
	"github.com/mattsolo1/grove-binforge/pkg/runner"
)

type rootOptions struct {
	configPath string
	buildDir   string
	outputDir  string
	verbose    bool
	logJSON    bool
}

var opts rootOptions

// NewRootCmd returns the binforge command tree.
func NewRootCmd() *cobra.Command {
	opts = rootOptions{}

	root := &cobra.Command{
		Use:   "binforge",
		Short: "Clone, build and collect tool binaries from source",
		Long: `binforge keeps a working copy of each catalog tool, builds it with the
toolchain it needs, and copies the resulting binary into one output directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Config file (YAML or JSON)")
	pf.StringVar(&opts.buildDir, "build-dir", config.DefaultBuildDir, "Directory for working copies")
	pf.StringVarP(&opts.outputDir, "output", "o", config.DefaultOutputDir, "Directory for published binaries")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Show debug output and stream build output")
	pf.BoolVar(&opts.logJSON, "log-json", false, "Log in JSON format")

	root.AddCommand(NewBuildCmd())
	root.AddCommand(NewListCmd())
	root.AddCommand(NewInfoCmd())
	root.AddCommand(NewBuiltCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewDepsCmd())
	root.AddCommand(NewScaffoldCmd())
	root.AddCommand(NewWatchCmd())

	return root
}

// session is what a command works with once flags and config are resolved.
type session struct {
	cfg     *config.Config
	log     *logrus.Logger
	catalog *catalog.Catalog
	stderr  io.Writer
}

func loadSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	return newSession(cmd, cfg)
}

// newSession applies explicitly set flags over cfg, which win over the file
// and environment.
func newSession(cmd *cobra.Command, cfg *config.Config) (*session, error) {
	flags := cmd.Flags()
	if flags.Changed("build-dir") {
		cfg.BuildDir = opts.buildDir
	}
	if flags.Changed("output") {
		cfg.OutputDir = opts.outputDir
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}

	cat, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:     cfg,
		log:     newLogger(cmd.ErrOrStderr(), cfg.Verbose, opts.logJSON),
		catalog: cat,
		stderr:  cmd.ErrOrStderr(),
	}, nil
}

func (s *session) orchestrator() (*orchestrator.Orchestrator, error) {
	var stream io.Writer
	if s.cfg.Verbose {
		stream = s.stderr
	}
	return orchestrator.New(orchestrator.Env{
		BuildRoot:  s.cfg.BuildDir,
		OutputRoot: s.cfg.OutputDir,
		Registry:   builder.NewDefaultRegistry(),
		Runner:     runner.NewExec(stream),
		Sink:       events.NewLogrusSink(s.log),
		Backend:    s.cfg.BackendOptions(),
	}, s.catalog)
}

// inventory answers read-only queries; unlike orchestrator it creates no
// directories.
func (s *session) inventory() (*orchestrator.Inventory, error) {
	return orchestrator.NewInventory(s.cfg.BuildDir, s.cfg.OutputDir, s.catalog)
}
