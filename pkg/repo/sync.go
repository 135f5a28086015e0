// Package repo keeps per-tool git working copies in line with their remotes.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattsolo1/grove-binforge/pkg/failure"
	"github.com/mattsolo1/grove-binforge/pkg/runner"
)

const gitExecutable = "git"

// SyncResult describes a successful sync.
type SyncResult struct {
	LocalPath string
	// Cloned is true when the working copy was created by this sync.
	Cloned bool
	// Target is the ref the copy was reset to; empty after a clone.
	Target string
	// Commit is the resolved HEAD, empty if it could not be read.
	Commit string
}

// Synchronizer clones or updates working copies by driving the git CLI.
type Synchronizer struct {
	run      runner.Runner
	lookPath runner.LookPathFunc
}

// NewSynchronizer returns a Synchronizer. Nil arguments use the host
// runner and search path.
func NewSynchronizer(r runner.Runner, lookPath runner.LookPathFunc) *Synchronizer {
	if r == nil {
		r = runner.NewExec(nil)
	}
	if lookPath == nil {
		lookPath = runner.LookPath
	}
	return &Synchronizer{run: r, lookPath: lookPath}
}

// Available reports whether git resolves on the search path.
func (s *Synchronizer) Available() bool {
	_, err := s.lookPath(gitExecutable)
	return err == nil
}

// Sync makes localPath a working copy of repoURL at branch (the remote's
// default branch when empty). A missing or empty directory is cloned; an
// existing repository is fetched, hard-reset and cleaned, in that order,
// stopping at the first failing step.
func (s *Synchronizer) Sync(ctx context.Context, repoURL, localPath, branch string) (*SyncResult, error) {
	if !s.Available() {
		return nil, failure.New(failure.ToolMissing, "sync", "git not found in PATH")
	}

	state, err := inspect(localPath)
	if err != nil {
		return nil, failure.Wrap(failure.LocalStateCorrupt, "sync", err)
	}

	res := &SyncResult{LocalPath: localPath}
	switch state {
	case stateAbsent, stateEmpty:
		if err := s.clone(ctx, repoURL, localPath, branch); err != nil {
			return nil, err
		}
		res.Cloned = true
	case stateForeign:
		return nil, failure.New(failure.LocalStateCorrupt, "sync",
			fmt.Sprintf("%s exists and is not a git repository", localPath))
	case stateRepo:
		if !s.isRepo(ctx, localPath) {
			return nil, failure.New(failure.LocalStateCorrupt, "sync",
				fmt.Sprintf("%s has a .git entry that is not its own repository", localPath))
		}
		target, err := s.update(ctx, localPath, branch)
		if err != nil {
			return nil, err
		}
		res.Target = target
	}

	res.Commit = s.head(ctx, localPath)
	return res, nil
}

func (s *Synchronizer) update(ctx context.Context, localPath, branch string) (string, error) {
	if err := s.git(ctx, "git fetch", failure.NetworkOrAuth, "-C", localPath, "fetch", "--all"); err != nil {
		return "", err
	}

	target := "origin/HEAD"
	if branch != "" {
		target = "origin/" + branch
	}
	if err := s.git(ctx, "git reset", failure.RefNotFound, "-C", localPath, "reset", "--hard", target); err != nil {
		return "", err
	}

	if err := s.git(ctx, "git clean", failure.LocalStateCorrupt, "-C", localPath, "clean", "-f", "-d", "-x"); err != nil {
		return "", err
	}
	return target, nil
}

func (s *Synchronizer) clone(ctx context.Context, repoURL, localPath, branch string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return failure.Wrap(failure.LocalStateCorrupt, "git clone", fmt.Errorf("creating parent directory: %w", err))
	}
	args := []string{"clone", repoURL, localPath}
	if branch != "" {
		args = append(args, "-b", branch)
	}
	return s.git(ctx, "git clone", failure.NetworkOrAuth, args...)
}

// isRepo reports whether path is the top level of its own repository. Git
// searches parent directories for a repository, so a broken .git inside
// another checkout would otherwise resolve to that checkout.
func (s *Synchronizer) isRepo(ctx context.Context, path string) bool {
	res, err := s.run.Run(ctx, runner.Command{Name: gitExecutable, Args: []string{"-C", path, "rev-parse", "--show-toplevel"}})
	if err != nil || !res.Success() {
		return false
	}
	top := strings.TrimSpace(res.Output)
	if top == "" {
		return false
	}
	return samePath(top, path)
}

func samePath(a, b string) bool {
	ra, err := resolve(a)
	if err != nil {
		return false
	}
	rb, err := resolve(b)
	if err != nil {
		return false
	}
	return ra == rb
}

func resolve(p string) (string, error) {
	abs, err := filepath.Abs(filepath.FromSlash(p))
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (s *Synchronizer) head(ctx context.Context, path string) string {
	res, err := s.run.Run(ctx, runner.Command{Name: gitExecutable, Args: []string{"-C", path, "rev-parse", "HEAD"}})
	if err != nil || !res.Success() {
		return ""
	}
	return strings.TrimSpace(res.Output)
}

// git runs one git step and converts a failure into a typed error, using
// fallback when the output matches no known failure.
func (s *Synchronizer) git(ctx context.Context, op string, fallback failure.Kind, args ...string) error {
	res, err := s.run.Run(ctx, runner.Command{Name: gitExecutable, Args: args})
	if err != nil {
		if errors.Is(err, runner.ErrNotFound) {
			return failure.Wrap(failure.ToolMissing, op, err)
		}
		return failure.Wrap(fallback, op, err)
	}
	if res.Success() {
		return nil
	}
	kind := Classify(res.Output)
	if kind == "" {
		kind = fallback
	}
	return failure.New(kind, op, fmt.Sprintf("exit status %d", res.ExitCode)).WithOutput(res.Output)
}

type dirState int

const (
	stateAbsent dirState = iota
	stateEmpty
	stateRepo
	stateForeign
)

func inspect(path string) (dirState, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return stateAbsent, nil
	}
	if err != nil {
		return 0, fmt.Errorf("inspecting %s: %w", path, err)
	}
	if !info.IsDir() {
		return stateForeign, nil
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return stateRepo, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(entries) == 0 {
		return stateEmpty, nil
	}
	return stateForeign, nil
}

var (
	networkMarkers = []string{
		"could not resolve host",
		"could not read from remote repository",
		"authentication failed",
		"could not read username",
		"permission denied",
		"repository not found",
		"connection timed out",
		"connection refused",
		"unable to access",
		"does not appear to be a git repository",
	}
	refMarkers = []string{
		"unknown revision",
		"ambiguous argument",
		"couldn't find remote ref",
		"remote branch",
		"not a valid object name",
		"invalid reference",
	}
	corruptMarkers = []string{
		"not a git repository",
		"index.lock",
		"corrupt",
		"bad object",
		"loose object",
		"unable to read tree",
		"already exists and is not an empty directory",
	}
)

// Classify maps git's diagnostic output to a failure kind, or "" if the
// output matches nothing known.
func Classify(output string) failure.Kind {
	out := strings.ToLower(output)
	for _, m := range corruptMarkers {
		if strings.Contains(out, m) {
			return failure.LocalStateCorrupt
		}
	}
	for _, m := range networkMarkers {
		if strings.Contains(out, m) {
			return failure.NetworkOrAuth
		}
	}
	for _, m := range refMarkers {
		if strings.Contains(out, m) {
			return failure.RefNotFound
		}
	}
	return ""
}
