package builder

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// releaseMarker identifies release-configuration output directories.
const releaseMarker = "release"

// Locate resolves the declared output under root. When the declared path is
// missing it searches root for files with the same base name and picks the
// best candidate by RankCandidates. exact reports whether the declared path
// itself was used.
func Locate(root, declared string) (artifact string, exact bool, err error) {
	p := filepath.Join(root, filepath.FromSlash(declared))
	if info, statErr := os.Stat(p); statErr == nil && !info.IsDir() {
		return p, true, nil
	}

	base := path.Base(filepath.ToSlash(declared))
	candidates, err := FindCandidates(root, base)
	if err != nil {
		return "", false, err
	}
	if len(candidates) == 0 {
		return "", false, fmt.Errorf("build artifact not found: %s (no file named %s under %s)", p, base, root)
	}
	best := RankCandidates(candidates)[0]
	return filepath.Join(root, filepath.FromSlash(best)), false, nil
}

// FindCandidates walks root for regular files named base, skipping .git.
// Paths are returned slash-separated and relative to root.
func FindCandidates(root, base string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != base || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", root, err)
	}
	return out, nil
}

// RankCandidates orders artifact candidates best first: paths under a
// release-configuration directory, then fewer path segments, then
// lexicographic order. The input is not modified.
func RankCandidates(candidates []string) []string {
	out := append([]string(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := isRelease(out[i]), isRelease(out[j])
		if ri != rj {
			return ri
		}
		si, sj := segments(out[i]), segments(out[j])
		if si != sj {
			return si < sj
		}
		return out[i] < out[j]
	})
	return out
}

func isRelease(rel string) bool {
	dir := path.Dir(rel)
	return dir != "." && strings.Contains(strings.ToLower(dir), releaseMarker)
}

func segments(rel string) int {
	return strings.Count(strings.Trim(rel, "/"), "/") + 1
}
