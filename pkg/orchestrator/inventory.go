package orchestrator

import (
	"fmt"

	"github.com/mattsolo1/grove-binforge/pkg/catalog"
	"github.com/mattsolo1/grove-binforge/pkg/publish"
	"github.com/mattsolo1/grove-binforge/pkg/repo"
)

// Inventory answers questions about a catalog against a build root and an
// output root without modifying either. Missing roots read as empty.
type Inventory struct {
	catalog  *catalog.Catalog
	manifest *repo.Manifest
	pub      *publish.Publisher
}

// NewInventory returns an Inventory over the given roots.
func NewInventory(buildRoot, outputRoot string, cat *catalog.Catalog) (*Inventory, error) {
	if buildRoot == "" || outputRoot == "" {
		return nil, fmt.Errorf("build root and output root are required")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	return &Inventory{
		catalog:  cat,
		manifest: repo.OpenManifest(buildRoot),
		pub:      publish.NewPublisher(outputRoot),
	}, nil
}

// ToolInfo is a catalog entry together with its publish status and, once the
// tool has been synced, its manifest record.
type ToolInfo struct {
	Spec          catalog.ToolSpec
	Built         bool
	PublishedPath string
	Record        *repo.RepoInfo
}

// Info returns the tool spec of name and whether its artifact is in the output
// root. An unreadable manifest leaves Record nil.
func (inv *Inventory) Info(name string) (ToolInfo, bool) {
	spec, ok := inv.catalog.Get(name)
	if !ok {
		return ToolInfo{}, false
	}
	info := ToolInfo{Spec: spec}
	if p, ok := inv.pub.Published(spec.Output()); ok {
		info.Built = true
		info.PublishedPath = p
	}
	if rec, ok, err := inv.manifest.Get(name); err == nil && ok {
		info.Record = &rec
	}
	return info, true
}

// Built lists, in catalog order, the tools whose artifact is published.
func (inv *Inventory) Built() []string {
	var out []string
	for _, s := range inv.catalog.Specs() {
		if _, ok := inv.pub.Published(s.Output()); ok {
			out = append(out, s.Name())
		}
	}
	return out
}

// Status returns the manifest records of every tool that has been synced or
// attempted, sorted by name.
func (inv *Inventory) Status() ([]repo.RepoInfo, error) {
	return inv.manifest.List()
}
