// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mattsolo1/grove-binforge/pkg/runner"
)

// HandlerFunc answers one invocation.
type HandlerFunc func(cmd runner.Command) (*runner.Result, error)

// Fake records every command it is asked to run and answers from handlers
// registered per executable name. Commands without a handler succeed.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []runner.Command
}

func New() *Fake {
	return &Fake{handlers: make(map[string]HandlerFunc)}
}

// On registers the handler for an executable name.
func (f *Fake) On(name string, h HandlerFunc) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
	return f
}

func (f *Fake) Run(_ context.Context, cmd runner.Command) (*runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	h := f.handlers[cmd.Name]
	f.mu.Unlock()
	if h == nil {
		return &runner.Result{}, nil
	}
	return h(cmd)
}

// Calls returns a copy of the recorded commands.
func (f *Fake) Calls() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Command(nil), f.calls...)
}

// Lines returns the recorded commands rendered as command lines.
func (f *Fake) Lines() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.String())
	}
	return out
}

// Exit returns a handler that always exits with code and output.
func Exit(code int, output string) HandlerFunc {
	return func(runner.Command) (*runner.Result, error) {
		return &runner.Result{ExitCode: code, Output: output}, nil
	}
}

// NotFound returns a handler that simulates a missing executable.
func NotFound() HandlerFunc {
	return func(cmd runner.Command) (*runner.Result, error) {
		return nil, fmt.Errorf("%s: %w", cmd.Name, runner.ErrNotFound)
	}
}

// LookPath returns a runner.LookPathFunc resolving only the given names.
func LookPath(available ...string) runner.LookPathFunc {
	set := make(map[string]bool, len(available))
	for _, a := range available {
		set[strings.ToLower(a)] = true
	}
	return func(file string) (string, error) {
		if set[strings.ToLower(file)] {
			return "/usr/bin/" + file, nil
		}
		return "", fmt.Errorf("exec: %q: %w", file, runner.ErrNotFound)
	}
}
