package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ManifestFile is the manifest's file name inside the build root.
const ManifestFile = ".binforge-manifest.json"

// Manifest records, per tool, where its working copy is, what it was last
// synced to, and how its last build ended.
type Manifest struct {
	path string
	mu   sync.Mutex
}

type RepoInfo struct {
	Tool           string    `json:"tool"`
	URL            string    `json:"url"`
	LocalPath      string    `json:"local_path"`
	Branch         string    `json:"branch,omitempty"`
	ResolvedCommit string    `json:"resolved_commit,omitempty"`
	LastSyncedAt   time.Time `json:"last_synced_at,omitzero"`
	Build          BuildInfo `json:"build"`
}

type BuildInfo struct {
	Status        string    `json:"status"`
	Stage         string    `json:"stage,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	FinishedAt    time.Time `json:"finished_at"`
	Artifact      string    `json:"artifact,omitempty"`
	PublishedPath string    `json:"published_path,omitempty"`
}

// Build statuses.
const (
	BuildSucceeded = "succeeded"
	BuildFailed    = "failed"
)

type manifestDoc struct {
	Repositories map[string]RepoInfo `json:"repositories"`
}

// OpenManifest returns the manifest kept in buildRoot. The file is created
// on the first Update.
func OpenManifest(buildRoot string) *Manifest {
	return &Manifest{path: filepath.Join(buildRoot, ManifestFile)}
}

// Path returns the manifest file path.
func (m *Manifest) Path() string { return m.path }

// Update applies fn to the tool's record (zero-valued when new) and saves.
func (m *Manifest) Update(tool string, fn func(*RepoInfo)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load()
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	info := doc.Repositories[tool]
	info.Tool = tool
	fn(&info)
	doc.Repositories[tool] = info

	if err := m.save(doc); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	return nil
}

// Get returns the record for tool.
func (m *Manifest) Get(tool string) (RepoInfo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load()
	if err != nil {
		return RepoInfo{}, false, fmt.Errorf("loading manifest: %w", err)
	}
	info, ok := doc.Repositories[tool]
	return info, ok, nil
}

// List returns every record, sorted by tool name.
func (m *Manifest) List() ([]RepoInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load()
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}

	repos := make([]RepoInfo, 0, len(doc.Repositories))
	for _, r := range doc.Repositories {
		repos = append(repos, r)
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Tool < repos[j].Tool })
	return repos, nil
}

func (m *Manifest) load() (*manifestDoc, error) {
	doc := &manifestDoc{Repositories: make(map[string]RepoInfo)}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("unmarshaling manifest: %w", err)
	}
	if doc.Repositories == nil {
		doc.Repositories = make(map[string]RepoInfo)
	}
	return doc, nil
}

func (m *Manifest) save(doc *manifestDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
