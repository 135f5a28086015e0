// Package runner launches external processes (git, build toolchains) and
// captures a bounded tail of their output for diagnostics.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"unicode/utf8"
)

// TailLimit bounds the captured diagnostic output kept per command.
const TailLimit = 4096

// ErrNotFound is returned when the executable cannot be resolved or launched
// because it does not exist.
var ErrNotFound = errors.New("executable not found")

// Command describes one process invocation.
type Command struct {
	Dir  string
	Name string
	Args []string
	// Env is overlaid on the current process environment.
	Env map[string]string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the outcome of a process that was launched.
type Result struct {
	ExitCode int
	// Output is the tail of combined stdout and stderr.
	Output string
}

// Success reports whether the process exited zero.
func (r *Result) Success() bool { return r != nil && r.ExitCode == 0 }

// Runner executes commands. A non-nil error means the process could not be
// launched; a non-zero exit is reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// LookPathFunc resolves an executable on the host search path.
type LookPathFunc func(file string) (string, error)

// LookPath is the host implementation of LookPathFunc.
var LookPath LookPathFunc = exec.LookPath

// Exec runs commands as real child processes.
type Exec struct {
	// Stream, when set, additionally receives the live output.
	Stream io.Writer
}

// NewExec returns a Runner backed by os/exec.
func NewExec(stream io.Writer) *Exec {
	return &Exec{Stream: stream}
}

func (e *Exec) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("empty command: %w", ErrNotFound)
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = MergeEnv(os.Environ(), c.Env)

	var buf bytes.Buffer
	var w io.Writer = &buf
	if e.Stream != nil {
		w = io.MultiWriter(&buf, e.Stream)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err := cmd.Run()
	if err == nil {
		return &Result{ExitCode: 0, Output: Tail(buf.String(), TailLimit)}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &Result{ExitCode: exitErr.ExitCode(), Output: Tail(buf.String(), TailLimit)}, nil
	}
	if missingExecutable(err) {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrNotFound)
	}
	return nil, fmt.Errorf("launching %s: %w", c.Name, err)
}

// missingExecutable reports whether a launch failed because the program
// itself does not exist. A missing working directory does not count.
func missingExecutable(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && pathErr.Op == "chdir" {
		return false
	}
	return errors.Is(err, os.ErrNotExist)
}

// MergeEnv overlays vars on base. Later entries win in os/exec, so overlay
// values are appended in key order.
func MergeEnv(base []string, vars map[string]string) []string {
	if len(vars) == 0 {
		return base
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(keys))
	env = append(env, base...)
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env
}

const truncated = "..."

// Tail returns at most the last n bytes of s, cut on a rune boundary. A cut
// string starts with "...", which counts towards n.
func Tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	if n <= len(truncated) {
		return s[runeStart(s, len(s)-n):]
	}
	return truncated + s[runeStart(s, len(s)-n+len(truncated)):]
}

func runeStart(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
