// Package failure defines the error taxonomy shared by the pipeline stages.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a stage failed.
type Kind string

const (
	// sync
	ToolMissing       Kind = "tool_missing"
	NetworkOrAuth     Kind = "network_or_auth"
	RefNotFound       Kind = "ref_not_found"
	LocalStateCorrupt Kind = "local_state_corrupt"

	// build
	BuildToolMissing   Kind = "build_tool_missing"
	BuildCommandFailed Kind = "build_command_failed"
	ArtifactNotFound   Kind = "artifact_not_found"

	// publish
	CopyFailure Kind = "copy_failure"

	// pre-flight
	UnknownTool       Kind = "unknown_tool"
	DependencyMissing Kind = "dependency_missing"
)

// Error is a stage failure carrying its kind and a bounded tail of the
// diagnostic output of the external command, if any.
type Error struct {
	Kind   Kind
	Op     string
	Msg    string
	Output string
	Err    error
}

// New returns an Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap returns an Error of the given kind wrapping err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithOutput attaches captured command output.
func (e *Error) WithOutput(out string) *Error {
	e.Output = out
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		fmt.Fprintf(&b, "%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// OutputOf returns the captured output of the first *Error in err's chain.
func OutputOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Output
	}
	return ""
}
