// Package deps checks whether the toolchains tools require exist on the host.
package deps

import (
	"github.com/mattsolo1/grove-binforge/pkg/builder"
	"github.com/mattsolo1/grove-binforge/pkg/catalog"
	"github.com/mattsolo1/grove-binforge/pkg/runner"
)

// Checker resolves executables on the search path. It never runs them.
type Checker struct {
	lookPath runner.LookPathFunc
}

// NewChecker returns a Checker; a nil lookPath uses the host search path.
func NewChecker(lookPath runner.LookPathFunc) *Checker {
	if lookPath == nil {
		lookPath = runner.LookPath
	}
	return &Checker{lookPath: lookPath}
}

// Available reports whether id resolves. An empty id is always available.
func (c *Checker) Available(id string) bool {
	if id == "" {
		return true
	}
	_, err := c.lookPath(id)
	return err == nil
}

// ToolStatus is the readiness of one catalog tool.
type ToolStatus struct {
	Name     string
	Requires string
	Ready    bool
}

// Report summarizes host readiness.
type Report struct {
	// Backends maps registered backend ids to availability.
	Backends map[string]bool
	Git      bool
	Tools    []ToolStatus
}

// Ready reports whether git is present and every tool can be built.
func (r Report) Ready() bool {
	if !r.Git {
		return false
	}
	for _, t := range r.Tools {
		if !t.Ready {
			return false
		}
	}
	return true
}

// Buildable counts the ready tools.
func (r Report) Buildable() int {
	n := 0
	for _, t := range r.Tools {
		if t.Ready {
			n++
		}
	}
	return n
}

// Check inspects the backends in reg, git, and each tool in cat in order.
func (c *Checker) Check(cat *catalog.Catalog, reg *builder.Registry) Report {
	rep := Report{
		Backends: reg.Availability(builder.Options{LookPath: c.lookPath}),
		Git:      c.Available("git"),
	}
	for _, s := range cat.Specs() {
		rep.Tools = append(rep.Tools, ToolStatus{
			Name:     s.Name(),
			Requires: s.Requires(),
			Ready:    c.Available(s.Requires()),
		})
	}
	return rep
}
