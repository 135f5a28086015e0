package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-binforge/pkg/catalog"
)

func NewListCmd() *cobra.Command {
	var (
		category string
		tag      string
		system   string
		search   string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog tools",
		Long:  `List the tools binforge knows how to build, optionally filtered.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}

			names, err := filterTools(s.catalog, category, tag, system, search)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No tools match.")
				return nil
			}

			switch format {
			case "yaml":
				return catalog.Encode(out, s.catalog, names...)
			case "table", "":
			default:
				return fmt.Errorf("unknown format %q (use table or yaml)", format)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tBUILD SYSTEM\tREQUIRES\tDESCRIPTION")
			fmt.Fprintln(w, "----\t--------\t------------\t--------\t-----------")
			for _, n := range names {
				spec, _ := s.catalog.Get(n)
				req := spec.Requires()
				if req == "" {
					req = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					spec.Name(),
					spec.Category(),
					spec.BuildSystem(),
					req,
					spec.Description(),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only tools in this category")
	cmd.Flags().StringVar(&tag, "tag", "", "Only tools with this tag")
	cmd.Flags().StringVar(&system, "build-system", "", "Only tools built with this build system")
	cmd.Flags().StringVar(&search, "search", "", "Only tools whose name, description or tags match")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, yaml")

	return cmd
}

// filterTools returns catalog names matching every given filter, in catalog
// order.
func filterTools(c *catalog.Catalog, category, tag, system, search string) ([]string, error) {
	keep := make(map[string]bool)
	for _, n := range c.Names() {
		keep[n] = true
	}
	restrict := func(names []string) {
		set := make(map[string]bool, len(names))
		for _, n := range names {
			set[n] = true
		}
		for n := range keep {
			if !set[n] {
				delete(keep, n)
			}
		}
	}

	if category != "" {
		cat, err := catalog.ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("%w (valid: %s)", err, joinCategories())
		}
		restrict(c.ByCategory(cat))
	}
	if tag != "" {
		restrict(c.ByTag(tag))
	}
	if system != "" {
		bs, err := catalog.ParseBuildSystem(system)
		if err != nil {
			return nil, err
		}
		restrict(c.ByBuildSystem(bs))
	}
	if search != "" {
		restrict(c.Search(search))
	}

	var out []string
	for _, n := range c.Names() {
		if keep[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

func joinCategories() string {
	var names []string
	for _, c := range catalog.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
