// Package builder runs a tool's build command against its working copy and
// locates the artifact it produced.
package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattsolo1/grove-binforge/pkg/failure"
	"github.com/mattsolo1/grove-binforge/pkg/runner"
)

// Request is one build invocation.
type Request struct {
	// WorkDir is the working copy the command runs in.
	WorkDir string
	Command []string
	// Output is the declared artifact path, relative to WorkDir.
	Output string
	Env    map[string]string
}

// Result describes a successful build.
type Result struct {
	// Artifact is the absolute path of the located artifact.
	Artifact string
	// Exact is false when the artifact was found by searching rather than
	// at the declared path.
	Exact bool
	// Output is the tail of the build's combined output.
	Output string
}

// Backend drives one external build toolchain.
type Backend interface {
	Name() string
	Executable() string
	IsAvailable() bool
	Build(ctx context.Context, req Request) (*Result, error)
}

// Options configure a backend instance.
type Options struct {
	Runner   runner.Runner
	LookPath runner.LookPathFunc
	// Configuration defaults to Release.
	Configuration string
	Platform      string
	Framework     string
	Runtime       string
	// Restore and Publish apply to the dotnet backend: restore packages
	// before building, and run publish instead of build.
	Restore bool
	Publish bool
}

func (o Options) withDefaults() Options {
	if o.Runner == nil {
		o.Runner = runner.NewExec(nil)
	}
	if o.LookPath == nil {
		o.LookPath = runner.LookPath
	}
	if o.Configuration == "" {
		o.Configuration = "Release"
	}
	return o
}

// toolchain implements the build flow shared by every backend: check the
// executable, run the command, then locate the artifact with search fallback.
type toolchain struct {
	name string
	exe  string
	opts Options
}

func (t *toolchain) Name() string       { return t.name }
func (t *toolchain) Executable() string { return t.exe }

func (t *toolchain) IsAvailable() bool {
	_, err := t.opts.LookPath(t.exe)
	return err == nil
}

func (t *toolchain) Build(ctx context.Context, req Request) (*Result, error) {
	if !t.IsAvailable() {
		return nil, failure.New(failure.BuildToolMissing, t.name, t.exe+" not found in PATH")
	}
	res, err := invoke(ctx, t.opts.Runner, req)
	if err != nil {
		return nil, err
	}

	artifact, exact, err := Locate(req.WorkDir, req.Output)
	if err != nil {
		return nil, failure.Wrap(failure.ArtifactNotFound, t.name, err).WithOutput(res.Output)
	}
	return &Result{Artifact: artifact, Exact: exact, Output: res.Output}, nil
}

// Direct runs the command without a backend. Success requires a zero exit
// and the declared output at exactly its declared path; there is no search.
func Direct(ctx context.Context, r runner.Runner, req Request) (*Result, error) {
	if r == nil {
		r = runner.NewExec(nil)
	}
	res, err := invoke(ctx, r, req)
	if err != nil {
		return nil, err
	}
	p := filepath.Join(req.WorkDir, filepath.FromSlash(req.Output))
	if info, err := os.Stat(p); err != nil || info.IsDir() {
		return nil, failure.New(failure.ArtifactNotFound, "direct build",
			fmt.Sprintf("build artifact not found: %s", p)).WithOutput(res.Output)
	}
	return &Result{Artifact: p, Exact: true, Output: res.Output}, nil
}

func invoke(ctx context.Context, r runner.Runner, req Request) (*runner.Result, error) {
	if len(req.Command) == 0 {
		return nil, failure.New(failure.BuildCommandFailed, "build", "empty build command")
	}
	cmd := runner.Command{
		Dir:  req.WorkDir,
		Name: req.Command[0],
		Args: req.Command[1:],
		Env:  req.Env,
	}
	res, err := r.Run(ctx, cmd)
	if err != nil {
		if errors.Is(err, runner.ErrNotFound) {
			return nil, failure.Wrap(failure.BuildToolMissing, "build", err)
		}
		return nil, failure.Wrap(failure.BuildCommandFailed, "build", err)
	}
	if !res.Success() {
		return nil, failure.New(failure.BuildCommandFailed, "build",
			fmt.Sprintf("%s exited with status %d", cmd.Name, res.ExitCode)).WithOutput(res.Output)
	}
	return res, nil
}
