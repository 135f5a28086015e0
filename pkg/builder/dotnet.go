package builder

import (
	"context"
	"slices"

	"github.com/mattsolo1/grove-binforge/pkg/failure"
)

// DotNet builds .NET SDK projects with the dotnet CLI.
type DotNet struct {
	toolchain
}

// NewDotNet returns the dotnet backend.
func NewDotNet(opts Options) Backend {
	return &DotNet{toolchain{name: "DotNet", exe: "dotnet", opts: opts.withDefaults()}}
}

// DefaultCommand returns the conventional build (or publish) command. The
// runtime identifier only applies to publish.
func (b *DotNet) DefaultCommand(project string, publish bool) []string {
	action := "build"
	if publish {
		action = "publish"
	}
	cmd := []string{b.exe, action}
	if project != "" {
		cmd = append(cmd, project)
	}
	cmd = append(cmd, "-c", b.opts.Configuration)
	if b.opts.Framework != "" {
		cmd = append(cmd, "-f", b.opts.Framework)
	}
	if publish && b.opts.Runtime != "" {
		cmd = append(cmd, "-r", b.opts.Runtime)
	}
	return cmd
}

// Restore restores NuGet packages in dir.
func (b *DotNet) Restore(ctx context.Context, dir string, env map[string]string) error {
	_, err := invoke(ctx, b.opts.Runner, Request{WorkDir: dir, Command: []string{b.exe, "restore"}, Env: env})
	return err
}

// Build restores first when Options.Restore is set and turns the command
// into a publish when Options.Publish is set.
func (b *DotNet) Build(ctx context.Context, req Request) (*Result, error) {
	if !b.IsAvailable() {
		return nil, failure.New(failure.BuildToolMissing, b.name, b.exe+" not found in PATH")
	}
	if b.opts.Restore {
		if err := b.Restore(ctx, req.WorkDir, req.Env); err != nil {
			return nil, err
		}
	}
	if b.opts.Publish {
		req.Command = PublishCommand(req.Command)
	}
	return b.toolchain.Build(ctx, req)
}

// PublishCommand rewrites a dotnet build command into a publish command.
func PublishCommand(cmd []string) []string {
	out := slices.Clone(cmd)
	switch {
	case len(out) > 1 && out[1] == "build":
		out[1] = "publish"
	case !slices.Contains(out, "publish"):
		out = slices.Insert(out, min(1, len(out)), "publish")
	}
	return out
}
