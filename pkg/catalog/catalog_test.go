package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntry() Entry {
	return Entry{
		Repo:     "https://example.com/t1.git",
		BuildCmd: []string{"echo", "ok"},
		Output:   "out.bin",
	}
}

func TestNewToolSpecDefaults(t *testing.T) {
	s, err := NewToolSpec("t1", validEntry())
	require.NoError(t, err)

	assert.Equal(t, "t1", s.Name())
	assert.Equal(t, MSBuild, s.BuildSystem())
	assert.Equal(t, Utility, s.Category())
	assert.Empty(t, s.Requires())
	assert.Equal(t, []string{"echo", "ok"}, s.BuildCommand())
}

func TestNewToolSpecRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		tool   string
		mutate func(*Entry)
		want   string
	}{
		{"empty name", "", func(*Entry) {}, "name cannot be empty"},
		{"path name", "a/b", func(*Entry) {}, "single path segment"},
		{"no repo", "t", func(e *Entry) { e.Repo = " " }, "repo is required"},
		{"no command", "t", func(e *Entry) { e.BuildCmd = nil }, "build_cmd"},
		{"blank executable", "t", func(e *Entry) { e.BuildCmd = []string{""} }, "build_cmd"},
		{"no output", "t", func(e *Entry) { e.Output = "" }, "output is required"},
		{"absolute output", "t", func(e *Entry) { e.Output = "/tmp/x.exe" }, "relative"},
		{"escaping output", "t", func(e *Entry) { e.Output = "../x.exe" }, "escapes"},
		{"bad build system", "t", func(e *Entry) { e.BuildSystem = "bazel" }, "unknown build system"},
		{"bad category", "t", func(e *Entry) { e.Category = "fun" }, "unknown category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)
			_, err := NewToolSpec(tt.tool, e)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewToolSpecNormalizesOutput(t *testing.T) {
	e := validEntry()
	e.Output = `x64\Release\.\mimikatz.exe`
	s, err := NewToolSpec("m", e)
	require.NoError(t, err)
	assert.Equal(t, "x64/Release/mimikatz.exe", s.Output())
}

func TestToolSpecAccessorsCopy(t *testing.T) {
	e := validEntry()
	e.Tags = []string{"a"}
	e.EnvVars = map[string]string{"K": "V"}
	s, err := NewToolSpec("t", e)
	require.NoError(t, err)

	s.BuildCommand()[0] = "rm"
	s.Tags()[0] = "b"
	s.Env()["K"] = "X"
	e.BuildCmd[0] = "rm"

	assert.Equal(t, "echo", s.BuildCommand()[0])
	assert.Equal(t, []string{"a"}, s.Tags())
	assert.Equal(t, "V", s.Env()["K"])
}

func TestDefaultCatalogOrder(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"rubeus", "seatbelt", "sharpup", "sharphound", "certify", "mimikatz", "inveigh"}, c.Names())

	s, ok := c.Get("sharphound")
	require.True(t, ok)
	assert.Equal(t, "dotnet", s.Requires())
	assert.Equal(t, DotNet, s.BuildSystem())
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	s, err := NewToolSpec("t", validEntry())
	require.NoError(t, err)
	_, err = New(s, s)
	assert.ErrorContains(t, err, "duplicate")
}

func TestCatalogQueries(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"rubeus", "certify", "mimikatz"}, c.ByCategory(CredentialAccess))
	assert.Equal(t, []string{"rubeus", "sharphound"}, c.ByTag("AD"))
	assert.Equal(t, []string{"sharphound", "inveigh"}, c.ByBuildSystem(DotNet))
	assert.Equal(t, []string{"rubeus"}, c.Search("kerberos"))
	assert.Equal(t, []string{"certify"}, c.Search("PKI"))
	assert.Len(t, c.Search(""), 7)
	assert.Equal(t, []string{"nope"}, c.Unknown([]string{"rubeus", "nope"}))
}

func TestOverrideReplacesInPlaceAndAppends(t *testing.T) {
	c := Default()
	e := validEntry()
	e.Description = "patched"

	out, err := c.Override(map[string]Entry{
		"seatbelt": e,
		"zeta":     validEntry(),
		"alpha":    validEntry(),
	})
	require.NoError(t, err)

	names := out.Names()
	assert.Equal(t, "seatbelt", names[1])
	assert.Equal(t, []string{"alpha", "zeta"}, names[len(names)-2:])
	s, _ := out.Get("seatbelt")
	assert.Equal(t, "patched", s.Description())

	// the original is untouched
	orig, _ := c.Get("seatbelt")
	assert.Equal(t, "Host-based enumeration and security checks", orig.Description())
	assert.Equal(t, 7, c.Len())
}

func TestOverrideRejectsInvalid(t *testing.T) {
	_, err := Default().Override(map[string]Entry{"bad": {Repo: "x"}})
	assert.Error(t, err)
}

func TestDecodePreservesDocumentOrder(t *testing.T) {
	doc := `
tools:
  zed:
    repo: https://example.com/zed.git
    build_cmd: [go, build, -o, zed.exe, .]
    output: zed.exe
    requires: go
    build_system: custom
  abc:
    repo: https://example.com/abc.git
    build_cmd: ["make"]
    output: bin/abc
    build_system: make
    env_vars:
      CC: clang
`
	c, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"zed", "abc"}, c.Names())

	abc, _ := c.Get("abc")
	assert.Equal(t, Make, abc.BuildSystem())
	assert.Equal(t, map[string]string{"CC": "clang"}, abc.Env())
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader("- a\n- b\n"))
	assert.ErrorContains(t, err, "mapping")

	_, err = Decode(strings.NewReader("tools:\n  t:\n    repo: x\n"))
	assert.ErrorContains(t, err, `tool "t"`)

	c, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestEncodeDecodeKeepsCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Default(), "mimikatz", "rubeus"))

	c, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"mimikatz", "rubeus"}, c.Names())

	m, _ := c.Get("mimikatz")
	orig, _ := Default().Get("mimikatz")
	assert.Equal(t, orig.Entry(), m.Entry())

	assert.Error(t, Encode(&buf, Default(), "nope"))
}
