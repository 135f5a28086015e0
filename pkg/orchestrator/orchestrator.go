// Package orchestrator drives each catalog tool through dependency check,
// sync, build and publish, one tool at a time, and reports per-tool results.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-binforge/pkg/builder"
	"github.com/mattsolo1/grove-binforge/pkg/catalog"
	"github.com/mattsolo1/grove-binforge/pkg/deps"
	"github.com/mattsolo1/grove-binforge/pkg/events"
	"github.com/mattsolo1/grove-binforge/pkg/failure"
	"github.com/mattsolo1/grove-binforge/pkg/repo"
	"github.com/mattsolo1/grove-binforge/pkg/runner"
)

// DirectBackend is the Report.Backend value when no backend matched and the
// build command was invoked directly.
const DirectBackend = "direct"

// Env is everything an Orchestrator needs from its host. Only one
// orchestrator may operate on a given BuildRoot at a time.
type Env struct {
	BuildRoot  string
	OutputRoot string

	Registry *builder.Registry
	Runner   runner.Runner
	LookPath runner.LookPathFunc
	Sink     events.Sink

	// Backend carries backend options such as configuration and platform;
	// Runner and LookPath above take precedence over its fields.
	Backend builder.Options
}

// Orchestrator runs tools sequentially. It is not safe for concurrent use.
type Orchestrator struct {
	*Inventory

	env   Env
	deps  *deps.Checker
	repos *repo.Synchronizer
	now   func() time.Time
}

// New validates env, fills defaults and creates both roots. Failing to
// create a root is the only fatal error an orchestrator reports.
func New(env Env, cat *catalog.Catalog) (*Orchestrator, error) {
	if env.BuildRoot == "" || env.OutputRoot == "" {
		return nil, fmt.Errorf("build root and output root are required")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if env.Registry == nil {
		env.Registry = builder.NewDefaultRegistry()
	}
	if env.Runner == nil {
		env.Runner = runner.NewExec(nil)
	}
	if env.LookPath == nil {
		env.LookPath = runner.LookPath
	}
	if env.Sink == nil {
		env.Sink = events.Discard
	}
	env.Backend.Runner = env.Runner
	env.Backend.LookPath = env.LookPath

	for _, dir := range []string{env.BuildRoot, env.OutputRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	inv, err := NewInventory(env.BuildRoot, env.OutputRoot, cat)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		Inventory: inv,
		env:       env,
		deps:      deps.NewChecker(env.LookPath),
		repos:     repo.NewSynchronizer(env.Runner, env.LookPath),
		now:       time.Now,
	}, nil
}

// NewDefault builds an orchestrator over the host search path with the
// default backends, reporting progress to log.
func NewDefault(buildRoot, outputRoot string, cat *catalog.Catalog, log *logrus.Logger) (*Orchestrator, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	return New(Env{
		BuildRoot:  buildRoot,
		OutputRoot: outputRoot,
		Registry:   builder.NewDefaultRegistry(),
		Sink:       events.NewLogrusSink(log),
	}, cat)
}

// WorkingCopy returns the working copy directory for a tool.
func (o *Orchestrator) WorkingCopy(name string) string {
	return filepath.Join(o.env.BuildRoot, name)
}

// RunMany runs names in order (the whole catalog when empty). A failing tool
// never stops the batch.
func (o *Orchestrator) RunMany(ctx context.Context, names []string, branch string) *Batch {
	if len(names) == 0 {
		names = o.catalog.Names()
	}
	b := &Batch{ID: uuid.New().String(), Branch: branch}
	for i, name := range names {
		o.emit(events.Info, name, StageNone, fmt.Sprintf("Processing %s (%d/%d)", name, i+1, len(names)), events.Fields{"batch": b.ID})
		b.Reports = append(b.Reports, o.run(ctx, name, branch, b.ID))
	}

	ok, failed := b.Counts()
	sev := events.Success
	if failed > 0 {
		sev = events.Warning
	}
	o.emit(sev, "", StageNone, fmt.Sprintf("Completed %d/%d", ok, len(b.Reports)),
		events.Fields{"batch": b.ID, "succeeded": ok, "failed": failed})
	return b
}

// RunOne runs a single tool through the pipeline.
func (o *Orchestrator) RunOne(ctx context.Context, name, branch string) Report {
	return o.run(ctx, name, branch, "")
}

func (o *Orchestrator) run(ctx context.Context, name, branch, batchID string) Report {
	fields := events.Fields{}
	if batchID != "" {
		fields["batch"] = batchID
	}

	start := o.now()
	rep := o.pipeline(ctx, name, branch, fields)
	rep.Duration = o.now().Sub(start)

	// Tools stopped before sync leave no trace on disk.
	if rep.WorkingCopy != "" {
		o.record(rep, branch, fields)
	}
	return rep
}

func (o *Orchestrator) pipeline(ctx context.Context, name, branch string, fields events.Fields) Report {
	rep := Report{Tool: name, State: Pending, Stage: StageNone}

	spec, ok := o.catalog.Get(name)
	if !ok {
		return o.fail(rep, StageNone, failure.New(failure.UnknownTool, "", fmt.Sprintf("unknown tool: %s", name)), fields)
	}

	if req := spec.Requires(); !o.deps.Available(req) {
		return o.fail(rep, StageDependency, failure.New(failure.DependencyMissing, "",
			fmt.Sprintf("missing dependency for %s: %s", name, req)), fields)
	}
	rep.State = DependencyChecked

	rep.WorkingCopy = o.WorkingCopy(name)
	if _, err := os.Stat(rep.WorkingCopy); err == nil {
		o.emit(events.Info, name, StageSync, fmt.Sprintf("Updating %s...", name), fields)
	} else {
		o.emit(events.Info, name, StageSync, fmt.Sprintf("Cloning %s...", name), fields)
	}
	synced, err := o.repos.Sync(ctx, spec.Repo(), rep.WorkingCopy, branch)
	if err != nil {
		return o.fail(rep, StageSync, err, fields)
	}
	rep.Commit = synced.Commit
	rep.State = Synced
	o.emit(events.Debug, name, StageSync, "Working copy synced", withFields(fields, events.Fields{"commit": synced.Commit, "cloned": synced.Cloned}))

	o.emit(events.Info, name, StageBuild, fmt.Sprintf("Building %s...", name), fields)
	built, backend, err := o.build(ctx, spec, rep.WorkingCopy, fields)
	rep.Backend = backend
	if err != nil {
		return o.fail(rep, StageBuild, err, fields)
	}
	rep.Artifact = built.Artifact
	rep.State = Built
	if !built.Exact {
		o.emit(events.Warning, name, StageBuild, "Declared output missing; using located artifact",
			withFields(fields, events.Fields{"declared": spec.Output(), "artifact": built.Artifact}))
	}

	published, err := o.pub.Publish(built.Artifact)
	if err != nil {
		return o.fail(rep, StagePublish, err, fields)
	}
	rep.PublishedPath = published.Path
	rep.State = Published
	rep.Succeeded = true
	o.emit(events.Success, name, StagePublish, fmt.Sprintf("Built %s -> %s", name, published.Path),
		withFields(fields, events.Fields{"path": published.Path, "bytes": published.Size}))
	return rep
}

// build dispatches to the backend registered for the tool's requirement, or
// invokes the command directly when none matches or it is unavailable. The
// returned name is the registry id, or DirectBackend.
func (o *Orchestrator) build(ctx context.Context, spec catalog.ToolSpec, workDir string, fields events.Fields) (*builder.Result, string, error) {
	req := builder.Request{
		WorkDir: workDir,
		Command: spec.BuildCommand(),
		Output:  spec.Output(),
		Env:     spec.Env(),
	}
	if b, ok := o.env.Registry.Lookup(spec.Requires(), o.env.Backend); ok && b.IsAvailable() {
		res, err := b.Build(ctx, req)
		return res, builder.NormalizeID(spec.Requires()), err
	}
	o.emit(events.Debug, spec.Name(), StageBuild, "No backend available; running build command directly",
		withFields(fields, events.Fields{"requires": spec.Requires()}))
	res, err := builder.Direct(ctx, o.env.Runner, req)
	return res, DirectBackend, err
}

// record stores the outcome in the build root manifest. Sync details are
// only replaced when the sync itself succeeded.
func (o *Orchestrator) record(rep Report, branch string, fields events.Fields) {
	spec, _ := o.catalog.Get(rep.Tool)
	finished := o.now()
	err := o.manifest.Update(rep.Tool, func(r *repo.RepoInfo) {
		r.URL = spec.Repo()
		r.LocalPath = rep.WorkingCopy
		if rep.Stage != StageSync {
			r.Branch = branch
			r.ResolvedCommit = rep.Commit
			r.LastSyncedAt = finished
		}

		status := repo.BuildSucceeded
		if !rep.Succeeded {
			status = repo.BuildFailed
		}
		r.Build = repo.BuildInfo{
			Status:        status,
			Kind:          string(rep.Kind),
			Detail:        rep.Detail,
			FinishedAt:    finished,
			Artifact:      rep.Artifact,
			PublishedPath: rep.PublishedPath,
		}
		if !rep.Succeeded {
			r.Build.Stage = string(rep.Stage)
		}
	})
	if err != nil {
		o.emit(events.Warning, rep.Tool, StageNone, "Could not update manifest: "+err.Error(), fields)
	}
}

func (o *Orchestrator) fail(rep Report, stage Stage, err error, fields events.Fields) Report {
	rep.Succeeded = false
	rep.State = Failed
	rep.Stage = stage
	rep.Kind = failure.KindOf(err)
	rep.Detail = err.Error()
	rep.Output = failure.OutputOf(err)

	o.emit(events.Error, rep.Tool, stage, rep.Detail, withFields(fields, events.Fields{"kind": string(rep.Kind)}))
	if rep.Output != "" {
		o.emit(events.Debug, rep.Tool, stage, rep.Output, fields)
	}
	return rep
}

func (o *Orchestrator) emit(sev events.Severity, tool string, stage Stage, msg string, fields events.Fields) {
	e := events.Event{
		Time:     o.now(),
		Severity: sev,
		Tool:     tool,
		Message:  msg,
		Fields:   fields,
	}
	if stage != StageNone {
		e.Stage = string(stage)
	}
	o.env.Sink.Emit(e)
}

func withFields(base, extra events.Fields) events.Fields {
	out := make(events.Fields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
