package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document layout:
//
//	tools:
//	  rubeus:
//	    repo: https://github.com/GhostPack/Rubeus.git
//	    build_cmd: [msbuild, Rubeus.sln, /p:Configuration=Release]
//	    output: Rubeus/bin/Release/Rubeus.exe
//
// Tool order in the document is the catalog order.
const toolsKey = "tools"

// Decode reads a catalog document.
func Decode(r io.Reader) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return New()
		}
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(doc.Content) == 0 {
		return New()
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing catalog: top level must be a mapping")
	}

	var tools *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == toolsKey {
			tools = root.Content[i+1]
			break
		}
	}
	if tools == nil {
		return New()
	}
	if tools.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing catalog: %q must be a mapping of tool name to definition", toolsKey)
	}

	specs := make([]ToolSpec, 0, len(tools.Content)/2)
	for i := 0; i+1 < len(tools.Content); i += 2 {
		name := tools.Content[i].Value
		var e Entry
		if err := tools.Content[i+1].Decode(&e); err != nil {
			return nil, fmt.Errorf("parsing tool %q (line %d): %w", name, tools.Content[i].Line, err)
		}
		s, err := NewToolSpec(name, e)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return New(specs...)
}

// LoadFile decodes the catalog document at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes names (all tools when empty) as a catalog document.
func Encode(w io.Writer, c *Catalog, names ...string) error {
	if len(names) == 0 {
		names = c.Names()
	}
	tools := &yaml.Node{Kind: yaml.MappingNode}
	for _, n := range names {
		s, ok := c.Get(n)
		if !ok {
			return fmt.Errorf("unknown tool %q", n)
		}
		var val yaml.Node
		if err := val.Encode(s.Entry()); err != nil {
			return fmt.Errorf("encoding %q: %w", n, err)
		}
		tools.Content = append(tools.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: n}, &val)
	}
	root := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: toolsKey}, tools,
	}}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	return enc.Close()
}
