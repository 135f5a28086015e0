// Package catalog holds the declarative tool definitions binforge builds.
package catalog

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// BuildSystem is the kind of toolchain a tool is built with.
type BuildSystem string

const (
	MSBuild BuildSystem = "msbuild"
	DotNet  BuildSystem = "dotnet"
	CMake   BuildSystem = "cmake"
	Make    BuildSystem = "make"
	Custom  BuildSystem = "custom"
)

var buildSystems = []BuildSystem{MSBuild, DotNet, CMake, Make, Custom}

// ParseBuildSystem parses a build system name; empty defaults to msbuild.
func ParseBuildSystem(s string) (BuildSystem, error) {
	if strings.TrimSpace(s) == "" {
		return MSBuild, nil
	}
	for _, b := range buildSystems {
		if strings.EqualFold(s, string(b)) {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown build system %q", s)
}

// Category groups tools for listing.
type Category string

const (
	CredentialAccess    Category = "credential_access"
	Enumeration         Category = "enumeration"
	PrivilegeEscalation Category = "privilege_escalation"
	LateralMovement     Category = "lateral_movement"
	Persistence         Category = "persistence"
	Collection          Category = "collection"
	Evasion             Category = "evasion"
	Execution           Category = "execution"
	CommandControl      Category = "command_control"
	Network             Category = "network"
	Utility             Category = "utility"
)

var categories = []Category{
	CredentialAccess, Enumeration, PrivilegeEscalation, LateralMovement, Persistence,
	Collection, Evasion, Execution, CommandControl, Network, Utility,
}

// Categories lists every known category.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory parses a category name; empty defaults to utility.
func ParseCategory(s string) (Category, error) {
	if strings.TrimSpace(s) == "" {
		return Utility, nil
	}
	for _, c := range categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// ToolSpec is a validated, immutable tool definition. Slice and map
// accessors return copies.
type ToolSpec struct {
	name        string
	repo        string
	buildCmd    []string
	output      string
	requires    string
	buildSystem BuildSystem
	description string
	category    Category
	tags        []string
	env         map[string]string
}

func (s ToolSpec) Name() string             { return s.name }
func (s ToolSpec) Repo() string             { return s.repo }
func (s ToolSpec) Output() string           { return s.output }
func (s ToolSpec) Requires() string         { return s.requires }
func (s ToolSpec) BuildSystem() BuildSystem { return s.buildSystem }
func (s ToolSpec) Description() string      { return s.description }
func (s ToolSpec) Category() Category       { return s.category }

// BuildCommand returns the command tokens; the first is the executable.
func (s ToolSpec) BuildCommand() []string { return append([]string(nil), s.buildCmd...) }

func (s ToolSpec) Tags() []string { return append([]string(nil), s.tags...) }

// Env returns the environment overlay passed to the build.
func (s ToolSpec) Env() map[string]string {
	if len(s.env) == 0 {
		return nil
	}
	out := make(map[string]string, len(s.env))
	for k, v := range s.env {
		out[k] = v
	}
	return out
}

// HasTag reports whether the tool carries tag (case-insensitive).
func (s ToolSpec) HasTag(tag string) bool {
	for _, t := range s.tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Entry returns the document form of the tool.
func (s ToolSpec) Entry() Entry {
	return Entry{
		Repo:        s.repo,
		BuildCmd:    s.BuildCommand(),
		Output:      s.output,
		Requires:    s.requires,
		BuildSystem: string(s.buildSystem),
		Description: s.description,
		Category:    string(s.category),
		Tags:        s.Tags(),
		EnvVars:     s.Env(),
	}
}

// Entry is the loosely-typed document form of a tool definition as it
// appears in config files and catalog documents.
type Entry struct {
	Repo        string            `yaml:"repo" mapstructure:"repo" json:"repo"`
	BuildCmd    []string          `yaml:"build_cmd" mapstructure:"build_cmd" json:"build_cmd"`
	Output      string            `yaml:"output" mapstructure:"output" json:"output"`
	Requires    string            `yaml:"requires,omitempty" mapstructure:"requires" json:"requires,omitempty"`
	BuildSystem string            `yaml:"build_system,omitempty" mapstructure:"build_system" json:"build_system,omitempty"`
	Description string            `yaml:"description,omitempty" mapstructure:"description" json:"description,omitempty"`
	Category    string            `yaml:"category,omitempty" mapstructure:"category" json:"category,omitempty"`
	Tags        []string          `yaml:"tags,omitempty" mapstructure:"tags" json:"tags,omitempty"`
	EnvVars     map[string]string `yaml:"env_vars,omitempty" mapstructure:"env_vars" json:"env_vars,omitempty"`
}

// NewToolSpec validates e and returns the tool named name.
func NewToolSpec(name string, e Entry) (ToolSpec, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ToolSpec{}, fmt.Errorf("tool name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ToolSpec{}, fmt.Errorf("tool %q: name must be a single path segment", name)
	}
	if strings.TrimSpace(e.Repo) == "" {
		return ToolSpec{}, fmt.Errorf("tool %q: repo is required", name)
	}
	if len(e.BuildCmd) == 0 || strings.TrimSpace(e.BuildCmd[0]) == "" {
		return ToolSpec{}, fmt.Errorf("tool %q: build_cmd must name an executable", name)
	}
	out, err := cleanOutput(e.Output)
	if err != nil {
		return ToolSpec{}, fmt.Errorf("tool %q: %w", name, err)
	}
	bs, err := ParseBuildSystem(e.BuildSystem)
	if err != nil {
		return ToolSpec{}, fmt.Errorf("tool %q: %w", name, err)
	}
	cat, err := ParseCategory(e.Category)
	if err != nil {
		return ToolSpec{}, fmt.Errorf("tool %q: %w", name, err)
	}

	spec := ToolSpec{
		name:        name,
		repo:        strings.TrimSpace(e.Repo),
		buildCmd:    append([]string(nil), e.BuildCmd...),
		output:      out,
		requires:    strings.TrimSpace(e.Requires),
		buildSystem: bs,
		description: e.Description,
		category:    cat,
		tags:        append([]string(nil), e.Tags...),
	}
	if len(e.EnvVars) > 0 {
		spec.env = make(map[string]string, len(e.EnvVars))
		for k, v := range e.EnvVars {
			spec.env[k] = v
		}
	}
	return spec, nil
}

// cleanOutput normalizes the declared output to a slash-separated relative
// path that stays inside the working copy.
func cleanOutput(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("output is required")
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if filepath.IsAbs(p) || path.IsAbs(p) || filepath.VolumeName(p) != "" {
		return "", fmt.Errorf("output %q must be a relative path", p)
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("output %q escapes the working copy", p)
	}
	return p, nil
}

// sortedKeys is used wherever map iteration order would leak into output.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
