package catalog

import (
	"fmt"
	"strings"
)

// Catalog is an ordered, read-only set of tool specs keyed by name.
type Catalog struct {
	order []string
	tools map[string]ToolSpec
}

// New builds a catalog from specs, keeping their order. Names must be unique.
func New(specs ...ToolSpec) (*Catalog, error) {
	c := &Catalog{tools: make(map[string]ToolSpec, len(specs))}
	for _, s := range specs {
		if s.name == "" {
			return nil, fmt.Errorf("catalog entry without a name")
		}
		if _, dup := c.tools[s.name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", s.name)
		}
		c.order = append(c.order, s.name)
		c.tools[s.name] = s
	}
	return c, nil
}

// FromEntries validates entries and builds a catalog ordered by name.
func FromEntries(entries map[string]Entry) (*Catalog, error) {
	specs := make([]ToolSpec, 0, len(entries))
	for _, name := range sortedKeys(entries) {
		s, err := NewToolSpec(name, entries[name])
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return New(specs...)
}

// Override returns a new catalog where entries replace same-named tools in
// place and new tools are appended in name order.
func (c *Catalog) Override(entries map[string]Entry) (*Catalog, error) {
	out := &Catalog{
		order: append([]string(nil), c.order...),
		tools: make(map[string]ToolSpec, len(c.tools)+len(entries)),
	}
	for k, v := range c.tools {
		out.tools[k] = v
	}
	for _, name := range sortedKeys(entries) {
		s, err := NewToolSpec(name, entries[name])
		if err != nil {
			return nil, err
		}
		if _, exists := out.tools[s.name]; !exists {
			out.order = append(out.order, s.name)
		}
		out.tools[s.name] = s
	}
	return out, nil
}

// Get returns the tool spec for name.
func (c *Catalog) Get(name string) (ToolSpec, bool) {
	s, ok := c.tools[name]
	return s, ok
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.tools[name]
	return ok
}

// Len returns the number of tools.
func (c *Catalog) Len() int { return len(c.order) }

// Names returns tool names in catalog order.
func (c *Catalog) Names() []string { return append([]string(nil), c.order...) }

// Specs returns the tool specs in catalog order.
func (c *Catalog) Specs() []ToolSpec {
	out := make([]ToolSpec, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.tools[n])
	}
	return out
}

func (c *Catalog) filter(keep func(ToolSpec) bool) []string {
	var out []string
	for _, n := range c.order {
		if keep(c.tools[n]) {
			out = append(out, n)
		}
	}
	return out
}

// ByCategory lists tools in category.
func (c *Catalog) ByCategory(cat Category) []string {
	return c.filter(func(s ToolSpec) bool { return s.category == cat })
}

// ByTag lists tools carrying tag.
func (c *Catalog) ByTag(tag string) []string {
	return c.filter(func(s ToolSpec) bool { return s.HasTag(tag) })
}

// ByBuildSystem lists tools built with bs.
func (c *Catalog) ByBuildSystem(bs BuildSystem) []string {
	return c.filter(func(s ToolSpec) bool { return s.buildSystem == bs })
}

// Search matches query case-insensitively against name, description and tags.
func (c *Catalog) Search(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Names()
	}
	return c.filter(func(s ToolSpec) bool {
		if strings.Contains(strings.ToLower(s.name), q) ||
			strings.Contains(strings.ToLower(s.description), q) {
			return true
		}
		for _, t := range s.tags {
			if strings.Contains(strings.ToLower(t), q) {
				return true
			}
		}
		return false
	})
}

// Unknown returns the names not present in the catalog, preserving order.
func (c *Catalog) Unknown(names []string) []string {
	var out []string
	for _, n := range names {
		if !c.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
