// Package publish moves verified build artifacts into the output root.
package publish

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattsolo1/grove-binforge/pkg/failure"
)

// Result describes a published artifact.
type Result struct {
	Source string
	Path   string
	Size   int64
}

// Publisher copies artifacts to <root>/<base name>.
type Publisher struct {
	root string
}

func NewPublisher(root string) *Publisher {
	return &Publisher{root: root}
}

// Publish copies src byte for byte to the output root, keeping its mode and
// modification time. The copy goes through a temporary file in the root so a
// failure never leaves a partial artifact under the final name.
func (p *Publisher) Publish(src string) (*Result, error) {
	dest := filepath.Join(p.root, filepath.Base(src))
	size, err := p.copy(src, dest)
	if err != nil {
		return nil, failure.Wrap(failure.CopyFailure, "publish", err)
	}
	return &Result{Source: src, Path: dest, Size: size}, nil
}

// Published reports the published path for an artifact named like output
// and whether it exists.
func (p *Publisher) Published(output string) (string, bool) {
	dest := filepath.Join(p.root, filepath.Base(filepath.FromSlash(output)))
	info, err := os.Stat(dest)
	return dest, err == nil && !info.IsDir()
}

func (p *Publisher) copy(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("opening artifact: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("reading artifact: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("artifact %s is a directory", src)
	}

	if err := os.MkdirAll(p.root, 0755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(p.root, "."+filepath.Base(dest)+".*")
	if err != nil {
		return 0, fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, in)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("copying artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing artifact: %w", err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("setting mode: %w", err)
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		return 0, fmt.Errorf("setting modification time: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return 0, fmt.Errorf("moving artifact into place: %w", err)
	}
	return n, nil
}
