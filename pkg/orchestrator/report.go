package orchestrator

import (
	"time"

	"github.com/mattsolo1/grove-binforge/pkg/failure"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageNone       Stage = "none"
	StageDependency Stage = "dependency"
	StageSync       Stage = "sync"
	StageBuild      Stage = "build"
	StagePublish    Stage = "publish"
)

// State is the position of a tool in its pipeline.
type State string

const (
	Pending           State = "pending"
	DependencyChecked State = "dependency_checked"
	Synced            State = "synced"
	Built             State = "built"
	Published         State = "published"
	Failed            State = "failed"
)

// Report is the outcome of one tool's run.
type Report struct {
	Tool      string
	Succeeded bool
	// State is terminal: Published or Failed.
	State State
	// Stage is the failing stage; StageNone on success and for unknown tools.
	Stage  Stage
	Kind   failure.Kind
	Detail string
	// Output is the bounded tail of the failing command's output.
	Output string

	WorkingCopy   string
	Commit        string
	Backend       string
	Artifact      string
	PublishedPath string
	Duration      time.Duration
}

// Batch is the ordered set of reports from one RunMany call.
type Batch struct {
	ID      string
	Branch  string
	Reports []Report
}

// AllSucceeded reports whether every requested tool succeeded. An empty
// batch is vacuously successful.
func (b *Batch) AllSucceeded() bool {
	for _, r := range b.Reports {
		if !r.Succeeded {
			return false
		}
	}
	return true
}

// Counts returns the number of succeeded and failed reports.
func (b *Batch) Counts() (succeeded, failed int) {
	for _, r := range b.Reports {
		if r.Succeeded {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// Failed returns the reports that did not succeed.
func (b *Batch) Failed() []Report {
	var out []Report
	for _, r := range b.Reports {
		if !r.Succeeded {
			out = append(out, r)
		}
	}
	return out
}
