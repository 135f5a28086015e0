package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-binforge/pkg/builder"
	"github.com/mattsolo1/grove-binforge/pkg/catalog"
	"github.com/mattsolo1/grove-binforge/pkg/events"
	"github.com/mattsolo1/grove-binforge/pkg/failure"
	"github.com/mattsolo1/grove-binforge/pkg/repo"
	"github.com/mattsolo1/grove-binforge/pkg/runner"
	"github.com/mattsolo1/grove-binforge/pkg/runner/runnertest"
)

const fakeCommit = "0123456789abcdef0123456789abcdef01234567"

type harness struct {
	orch      *Orchestrator
	fake      *runnertest.Fake
	rec       *events.Recorder
	buildRoot string
	outRoot   string
	// fetchOutput, when set, makes git fetch fail with that output.
	fetchOutput string
}

func newHarness(t *testing.T, cat *catalog.Catalog, available ...string) *harness {
	t.Helper()
	base := t.TempDir()
	h := &harness{
		fake:      runnertest.New(),
		rec:       &events.Recorder{},
		buildRoot: filepath.Join(base, "build"),
		outRoot:   filepath.Join(base, "binaries"),
	}
	h.fake.On("git", h.git)

	orch, err := New(Env{
		BuildRoot:  h.buildRoot,
		OutputRoot: h.outRoot,
		Runner:     h.fake,
		LookPath:   runnertest.LookPath(append([]string{"git"}, available...)...),
		Sink:       h.rec,
	}, cat)
	require.NoError(t, err)
	h.orch = orch
	return h
}

// git emulates the subset of git the synchronizer drives.
func (h *harness) git(cmd runner.Command) (*runner.Result, error) {
	args := cmd.Args
	if len(args) > 0 && args[0] == "clone" {
		if err := os.MkdirAll(filepath.Join(args[2], ".git"), 0755); err != nil {
			return nil, err
		}
		return &runner.Result{}, nil
	}
	if len(args) > 2 && args[0] == "-C" {
		switch args[2] {
		case "fetch":
			if h.fetchOutput != "" {
				return &runner.Result{ExitCode: 128, Output: h.fetchOutput}, nil
			}
		case "rev-parse":
			switch args[len(args)-1] {
			case "HEAD":
				return &runner.Result{Output: fakeCommit + "\n"}, nil
			case "--show-toplevel":
				return &runner.Result{Output: args[1] + "\n"}, nil
			}
		}
	}
	return &runner.Result{}, nil
}

// writes returns a handler that creates rel under the command's directory.
func writes(rel, content string) runnertest.HandlerFunc {
	return func(cmd runner.Command) (*runner.Result, error) {
		p := filepath.Join(cmd.Dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(p, []byte(content), 0755); err != nil {
			return nil, err
		}
		return &runner.Result{Output: "built " + rel}, nil
	}
}

func mustCatalog(t *testing.T, pairs ...interface{}) *catalog.Catalog {
	t.Helper()
	var specs []catalog.ToolSpec
	for i := 0; i < len(pairs); i += 2 {
		s, err := catalog.NewToolSpec(pairs[i].(string), pairs[i+1].(catalog.Entry))
		require.NoError(t, err)
		specs = append(specs, s)
	}
	c, err := catalog.New(specs...)
	require.NoError(t, err)
	return c
}

func directEntry(exe, output string) catalog.Entry {
	return catalog.Entry{
		Repo:     "https://example.invalid/" + exe + ".git",
		BuildCmd: []string{exe, "hi"},
		Output:   output,
	}
}

func countCalls(f *runnertest.Fake, name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Name == name {
			n++
		}
	}
	return n
}

func TestRunOneEndToEnd(t *testing.T) {
	h := newHarness(t, mustCatalog(t, "t1", directEntry("echo", "out.bin")))
	h.fake.On("echo", writes("out.bin", "payload"))

	rep := h.orch.RunOne(context.Background(), "t1", "")

	require.True(t, rep.Succeeded, rep.Detail)
	assert.Equal(t, Published, rep.State)
	assert.Equal(t, StageNone, rep.Stage)
	assert.Equal(t, DirectBackend, rep.Backend)
	assert.Equal(t, fakeCommit, rep.Commit)
	assert.Equal(t, filepath.Join(h.buildRoot, "t1"), rep.WorkingCopy)
	assert.Equal(t, filepath.Join(h.outRoot, "out.bin"), rep.PublishedPath)

	got, err := os.ReadFile(rep.PublishedPath)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	lines := h.fake.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, "git clone https://example.invalid/echo.git "+rep.WorkingCopy, lines[0])
	assert.Equal(t, "echo hi", lines[len(lines)-1])

	success := h.rec.Filter(events.Success)
	require.Len(t, success, 1)
	assert.Equal(t, "t1", success[0].Tool)
	assert.Equal(t, string(StagePublish), success[0].Stage)
}

func TestRunOneUnknownToolDoesNoIO(t *testing.T) {
	h := newHarness(t, mustCatalog(t, "t1", directEntry("echo", "out.bin")))

	rep := h.orch.RunOne(context.Background(), "nope", "")

	assert.False(t, rep.Succeeded)
	assert.Equal(t, failure.UnknownTool, rep.Kind)
	assert.Equal(t, StageNone, rep.Stage)
	assert.Equal(t, Failed, rep.State)
	assert.Contains(t, rep.Detail, "unknown tool: nope")
	assert.Empty(t, h.fake.Calls())
	assert.NoDirExists(t, filepath.Join(h.buildRoot, "nope"))
}

func TestRunOneDependencyGateHasNoSideEffects(t *testing.T) {
	e := directEntry("msbuild", "bin/Release/Tool.exe")
	e.Requires = "msbuild"
	h := newHarness(t, mustCatalog(t, "tool", e))

	rep := h.orch.RunOne(context.Background(), "tool", "")

	assert.False(t, rep.Succeeded)
	assert.Equal(t, failure.DependencyMissing, rep.Kind)
	assert.Equal(t, StageDependency, rep.Stage)
	assert.Contains(t, rep.Detail, "msbuild")
	assert.Empty(t, h.fake.Calls())
	assert.NoDirExists(t, filepath.Join(h.buildRoot, "tool"))

	entries, err := os.ReadDir(h.outRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunManyIsolatesFailures(t *testing.T) {
	cat := mustCatalog(t,
		"a", directEntry("build-a", "a.bin"),
		"b", directEntry("build-b", "b.bin"),
		"c", directEntry("build-c", "c.bin"),
	)
	h := newHarness(t, cat)
	h.fake.On("build-a", writes("a.bin", "a"))
	h.fake.On("build-b", runnertest.Exit(1, "error CS1002: ; expected"))
	h.fake.On("build-c", writes("c.bin", "c"))

	batch := h.orch.RunMany(context.Background(), []string{"a", "b", "c"}, "")

	require.Len(t, batch.Reports, 3)
	assert.Equal(t, "a", batch.Reports[0].Tool)
	assert.Equal(t, "b", batch.Reports[1].Tool)
	assert.Equal(t, "c", batch.Reports[2].Tool)

	assert.True(t, batch.Reports[0].Succeeded)
	assert.True(t, batch.Reports[2].Succeeded)

	b := batch.Reports[1]
	assert.False(t, b.Succeeded)
	assert.Equal(t, StageBuild, b.Stage)
	assert.Equal(t, failure.BuildCommandFailed, b.Kind)
	assert.Contains(t, b.Output, "CS1002")

	assert.False(t, batch.AllSucceeded())
	ok, failed := batch.Counts()
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
	require.Len(t, batch.Failed(), 1)
	assert.Equal(t, "b", batch.Failed()[0].Tool)

	assert.FileExists(t, filepath.Join(h.outRoot, "a.bin"))
	assert.FileExists(t, filepath.Join(h.outRoot, "c.bin"))
	assert.NoFileExists(t, filepath.Join(h.outRoot, "b.bin"))
}

func TestRunManyEmptyRunsWholeCatalogInOrder(t *testing.T) {
	cat := mustCatalog(t,
		"zeta", directEntry("build-z", "z.bin"),
		"alpha", directEntry("build-a", "a.bin"),
	)
	h := newHarness(t, cat)
	h.fake.On("build-z", writes("z.bin", "z"))
	h.fake.On("build-a", writes("a.bin", "a"))

	batch := h.orch.RunMany(context.Background(), nil, "")

	require.Len(t, batch.Reports, 2)
	assert.Equal(t, "zeta", batch.Reports[0].Tool)
	assert.Equal(t, "alpha", batch.Reports[1].Tool)
	assert.True(t, batch.AllSucceeded())
	assert.NotEmpty(t, batch.ID)

	for _, e := range h.rec.Events() {
		assert.Equal(t, batch.ID, e.Fields["batch"], "event %q", e.Message)
	}
}

func TestEmptyBatchIsSuccessful(t *testing.T) {
	b := &Batch{}
	assert.True(t, b.AllSucceeded())
	ok, failed := b.Counts()
	assert.Zero(t, ok)
	assert.Zero(t, failed)
}

func TestSecondRunUpdatesInsteadOfCloning(t *testing.T) {
	h := newHarness(t, mustCatalog(t, "t1", directEntry("echo", "out.bin")))
	h.fake.On("echo", writes("out.bin", "payload"))
	ctx := context.Background()

	require.True(t, h.orch.RunOne(ctx, "t1", "").Succeeded)
	rep := h.orch.RunOne(ctx, "t1", "main")
	require.True(t, rep.Succeeded, rep.Detail)

	lines := strings.Join(h.fake.Lines(), "\n")
	assert.Equal(t, 1, strings.Count(lines, "git clone"))
	assert.Contains(t, lines, "git -C "+rep.WorkingCopy+" fetch --all")
	assert.Contains(t, lines, "git -C "+rep.WorkingCopy+" reset --hard origin/main")
	assert.Contains(t, lines, "git -C "+rep.WorkingCopy+" clean -f -d -x")
	assert.Equal(t, 2, countCalls(h.fake, "echo"))
}

func TestFetchFailureFailsOnlySyncStage(t *testing.T) {
	h := newHarness(t, mustCatalog(t, "t1", directEntry("echo", "out.bin")))
	h.fake.On("echo", writes("out.bin", "payload"))
	ctx := context.Background()

	require.True(t, h.orch.RunOne(ctx, "t1", "").Succeeded)

	h.fetchOutput = "fatal: unable to access 'https://example.invalid/': Could not resolve host: example.invalid"
	rep := h.orch.RunOne(ctx, "t1", "")

	assert.False(t, rep.Succeeded)
	assert.Equal(t, StageSync, rep.Stage)
	assert.Equal(t, failure.NetworkOrAuth, rep.Kind)
	assert.Contains(t, rep.Output, "Could not resolve host")
	assert.Equal(t, 1, countCalls(h.fake, "echo"), "build must not run after a failed sync")
	assert.Empty(t, rep.PublishedPath)
}

func TestCloneUsesBranch(t *testing.T) {
	h := newHarness(t, mustCatalog(t, "t1", directEntry("echo", "out.bin")))
	h.fake.On("echo", writes("out.bin", "payload"))

	require.True(t, h.orch.RunOne(context.Background(), "t1", "dev").Succeeded)
	assert.True(t, strings.HasSuffix(h.fake.Lines()[0], " -b dev"), h.fake.Lines()[0])
}

func TestBackendLocatesMovedArtifact(t *testing.T) {
	for _, requires := range []string{"msbuild", "MSBuild"} {
		t.Run(requires, func(t *testing.T) {
			e := catalog.Entry{
				Repo:     "https://example.invalid/Tool.git",
				BuildCmd: []string{"msbuild", "Tool.sln", "/p:Configuration=Release"},
				Output:   "Tool/bin/Release/Tool.exe",
				Requires: requires,
			}
			h := newHarness(t, mustCatalog(t, "tool", e), "msbuild")
			h.fake.On("msbuild", writes("Tool/bin/x64/Release/Tool.exe", "MZ"))

			rep := h.orch.RunOne(context.Background(), "tool", "")

			require.True(t, rep.Succeeded, rep.Detail)
			assert.Equal(t, "msbuild", rep.Backend)
			assert.Equal(t, filepath.Join(rep.WorkingCopy, "Tool", "bin", "x64", "Release", "Tool.exe"), rep.Artifact)
			assert.Equal(t, filepath.Join(h.outRoot, "Tool.exe"), rep.PublishedPath)
			assert.Len(t, h.rec.Filter(events.Warning), 1)
		})
	}
}

func TestDirectBuildDoesNotSearch(t *testing.T) {
	h := newHarness(t, mustCatalog(t, "t1", directEntry("echo", "bin/Release/out.bin")))
	h.fake.On("echo", writes("bin/Debug/out.bin", "payload"))

	rep := h.orch.RunOne(context.Background(), "t1", "")

	assert.False(t, rep.Succeeded)
	assert.Equal(t, StageBuild, rep.Stage)
	assert.Equal(t, failure.ArtifactNotFound, rep.Kind)
	assert.Equal(t, DirectBackend, rep.Backend)
}

func TestUnregisteredRequirementFallsBackToDirect(t *testing.T) {
	e := directEntry("make", "out.bin")
	e.Requires = "make"
	h := newHarness(t, mustCatalog(t, "t1", e), "make")
	h.fake.On("make", writes("out.bin", "payload"))

	rep := h.orch.RunOne(context.Background(), "t1", "")

	require.True(t, rep.Succeeded, rep.Detail)
	assert.Equal(t, DirectBackend, rep.Backend)
}

type recordingBackend struct {
	opts  builder.Options
	built []builder.Request
}

func (b *recordingBackend) Name() string       { return "fakebuild" }
func (b *recordingBackend) Executable() string { return "fakebuild" }
func (b *recordingBackend) IsAvailable() bool  { return true }
func (b *recordingBackend) Build(ctx context.Context, req builder.Request) (*builder.Result, error) {
	b.built = append(b.built, req)
	return builder.Direct(ctx, b.opts.Runner, req)
}

func TestRegisteredBackendReceivesRequest(t *testing.T) {
	e := directEntry("fakebuild", "out.bin")
	e.Requires = "fakebuild"
	e.EnvVars = map[string]string{"CONFIG": "Release"}

	base := t.TempDir()
	fake := runnertest.New().On("git", (&harness{}).git).On("fakebuild", writes("out.bin", "x"))
	backend := &recordingBackend{}
	reg := builder.NewRegistry()
	reg.MustRegister("fakebuild", func(o builder.Options) builder.Backend {
		backend.opts = o
		return backend
	})

	orch, err := New(Env{
		BuildRoot:  filepath.Join(base, "build"),
		OutputRoot: filepath.Join(base, "out"),
		Registry:   reg,
		Runner:     fake,
		LookPath:   runnertest.LookPath("git", "fakebuild"),
	}, mustCatalog(t, "t1", e))
	require.NoError(t, err)

	rep := orch.RunOne(context.Background(), "t1", "")
	require.True(t, rep.Succeeded, rep.Detail)
	assert.Equal(t, "fakebuild", rep.Backend)
	require.Len(t, backend.built, 1)
	assert.Equal(t, []string{"fakebuild", "hi"}, backend.built[0].Command)
	assert.Equal(t, "Release", backend.built[0].Env["CONFIG"])

	calls := fake.Calls()
	assert.Equal(t, "Release", calls[len(calls)-1].Env["CONFIG"])
}

func TestPublishFailureReportsPublishStage(t *testing.T) {
	h := newHarness(t, mustCatalog(t, "t1", directEntry("echo", "out.bin")))
	h.fake.On("echo", writes("out.bin", "payload"))

	require.NoError(t, os.RemoveAll(h.outRoot))
	require.NoError(t, os.WriteFile(h.outRoot, []byte("not a directory"), 0644))

	rep := h.orch.RunOne(context.Background(), "t1", "")

	assert.False(t, rep.Succeeded)
	assert.Equal(t, StagePublish, rep.Stage)
	assert.Equal(t, failure.CopyFailure, rep.Kind)
	assert.NotEmpty(t, rep.Artifact)
}

func TestInfoAndBuilt(t *testing.T) {
	cat := mustCatalog(t,
		"a", directEntry("build-a", "bin/a.bin"),
		"b", directEntry("build-b", "b.bin"),
	)
	h := newHarness(t, cat)
	h.fake.On("build-a", writes("bin/a.bin", "a"))

	assert.Empty(t, h.orch.Built())

	require.True(t, h.orch.RunOne(context.Background(), "a", "").Succeeded)
	assert.Equal(t, []string{"a"}, h.orch.Built())

	info, ok := h.orch.Info("a")
	require.True(t, ok)
	assert.True(t, info.Built)
	assert.Equal(t, filepath.Join(h.outRoot, "a.bin"), info.PublishedPath)
	assert.Equal(t, "bin/a.bin", info.Spec.Output())
	require.NotNil(t, info.Record)
	assert.Equal(t, repo.BuildSucceeded, info.Record.Build.Status)
	assert.Equal(t, fakeCommit, info.Record.ResolvedCommit)

	info, ok = h.orch.Info("b")
	require.True(t, ok)
	assert.False(t, info.Built)
	assert.Nil(t, info.Record)

	_, ok = h.orch.Info("missing")
	assert.False(t, ok)
}

func TestInventoryDoesNotCreateRoots(t *testing.T) {
	base := t.TempDir()
	buildRoot := filepath.Join(base, "build")
	outRoot := filepath.Join(base, "binaries")
	inv, err := NewInventory(buildRoot, outRoot, mustCatalog(t, "a", directEntry("build-a", "a.bin")))
	require.NoError(t, err)

	info, ok := inv.Info("a")
	require.True(t, ok)
	assert.False(t, info.Built)
	assert.Nil(t, info.Record)
	assert.Empty(t, inv.Built())
	repos, err := inv.Status()
	require.NoError(t, err)
	assert.Empty(t, repos)

	assert.NoDirExists(t, buildRoot)
	assert.NoDirExists(t, outRoot)

	_, err = NewInventory("", outRoot, nil)
	assert.Error(t, err)
}

func TestNewCreatesRoots(t *testing.T) {
	base := t.TempDir()
	_, err := New(Env{
		BuildRoot:  filepath.Join(base, "x", "build"),
		OutputRoot: filepath.Join(base, "y", "out"),
	}, catalog.Default())
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(base, "x", "build"))
	assert.DirExists(t, filepath.Join(base, "y", "out"))
}

func TestNewFailsWhenRootCannotBeCreated(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := New(Env{BuildRoot: filepath.Join(blocker, "build"), OutputRoot: base}, catalog.Default())
	assert.Error(t, err)

	_, err = New(Env{}, catalog.Default())
	assert.Error(t, err)
}

func TestManifestRecordsOutcomes(t *testing.T) {
	e := directEntry("msbuild", "x.exe")
	e.Requires = "msbuild"
	cat := mustCatalog(t,
		"t1", directEntry("echo", "out.bin"),
		"gated", e,
	)
	h := newHarness(t, cat)
	h.fake.On("echo", writes("out.bin", "payload"))
	ctx := context.Background()

	h.orch.RunOne(ctx, "gated", "")
	h.orch.RunOne(ctx, "missing", "")
	assert.NoFileExists(t, filepath.Join(h.buildRoot, repo.ManifestFile))

	rep := h.orch.RunOne(ctx, "t1", "main")
	require.True(t, rep.Succeeded, rep.Detail)

	status, err := h.orch.Status()
	require.NoError(t, err)
	require.Len(t, status, 1)
	first := status[0]
	assert.Equal(t, "t1", first.Tool)
	assert.Equal(t, "https://example.invalid/echo.git", first.URL)
	assert.Equal(t, "main", first.Branch)
	assert.Equal(t, fakeCommit, first.ResolvedCommit)
	assert.Equal(t, repo.BuildSucceeded, first.Build.Status)
	assert.Equal(t, rep.PublishedPath, first.Build.PublishedPath)

	h.fetchOutput = "fatal: Authentication failed for 'https://example.invalid/'"
	rep = h.orch.RunOne(ctx, "t1", "dev")
	require.False(t, rep.Succeeded)

	status, err = h.orch.Status()
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, repo.BuildFailed, status[0].Build.Status)
	assert.Equal(t, string(StageSync), status[0].Build.Stage)
	assert.Equal(t, string(failure.NetworkOrAuth), status[0].Build.Kind)
	assert.Equal(t, "main", status[0].Branch, "failed sync keeps the last synced branch")
	assert.Equal(t, fakeCommit, status[0].ResolvedCommit)
	assert.True(t, status[0].LastSyncedAt.Equal(first.LastSyncedAt))
}
