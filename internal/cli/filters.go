package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/lakeview/filter"
	"github.com/hugr-lab/lakeview/filtermodel"
)

var (
	filtersQuery  string
	filtersAdd    []string
	filtersRemove []int
	filtersKind   string
	filtersClear  bool
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Show or edit the filters of a query",
	Long: `Prints the filter tree of a query and the WHERE clause it renders to.

Edits apply to the top-level group and are written back to the session.
Removals happen before additions, rows counted from 0.

Examples:
  lakeview filters -s analysis.lakeview --query variants
  lakeview filters -s analysis.lakeview --query variants --kind or --add "af < 0.01" --add "af IS NULL"
  lakeview filters -s analysis.lakeview --query variants --remove 0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, e, err := openQuery(ctx, filtersQuery)
		if err != nil {
			return err
		}
		defer ws.Close()

		edited := filtersClear || filtersKind != "" || len(filtersAdd) > 0 || len(filtersRemove) > 0
		if edited {
			err := e.EditFilters(ctx, func(m *filtermodel.Model) error {
				if filtersClear {
					m.Reset(nil)
				}
				if filtersKind != "" {
					kind, err := filter.ParseKind(strings.ToUpper(filtersKind))
					if err != nil {
						return err
					}
					if err := m.SetKind(filter.NoNode, kind); err != nil {
						return err
					}
				}
				// Highest rows first so earlier removals keep the others in place.
				rows := slices.Clone(filtersRemove)
				slices.Sort(rows)
				slices.Reverse(rows)
				for _, row := range rows {
					if err := m.RemoveRow(filter.NoNode, row); err != nil {
						return err
					}
				}
				for _, expr := range filtersAdd {
					if _, err := m.AddLeaf(filter.NoNode, expr, ""); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		writeTree(out, e.Filters().Tree(), isTerminal())
		if where := e.Filters().Render(); where != "" {
			fmt.Fprintf(out, "\nWHERE %s\n", where)
		}

		if edited {
			if err := e.LastError(); err != nil {
				return fmt.Errorf("filters not saved: %w", err)
			}
			return ws.Save(sessionPath)
		}
		return nil
	},
}

func init() {
	filtersCmd.Flags().StringVarP(&filtersQuery, "query", "q", "", "Query name")
	filtersCmd.Flags().StringArrayVar(&filtersAdd, "add", nil, "Add a filter expression (repeatable)")
	filtersCmd.Flags().IntSliceVar(&filtersRemove, "remove", nil, "Remove the filter at this row (repeatable)")
	filtersCmd.Flags().StringVar(&filtersKind, "kind", "", "Operator of the top-level group (and, or)")
	filtersCmd.Flags().BoolVar(&filtersClear, "clear", false, "Remove every filter first")
	_ = filtersCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(filtersCmd)
}

// writeTree prints the filter tree below the ROOT node, one node per line,
// indented by depth and prefixed with its row.
func writeTree(w io.Writer, t *filter.Tree, styled bool) {
	t.Walk(t.WorkingRoot(), func(id filter.NodeID, depth int) bool {
		label := t.Display(id)
		if alias := t.Alias(id); alias != "" && t.Kind(id) == filter.KindLeaf {
			label = fmt.Sprintf("%s: %s", alias, t.Expression(id))
		} else if alias != "" {
			label = fmt.Sprintf("%s (%s)", t.Kind(id), alias)
		}
		if t.Kind(id).IsComposite() && styled {
			label = Accent.Render(label)
		}

		prefix := ""
		if depth > 0 {
			prefix = fmt.Sprintf("[%d] ", t.Row(id))
			if styled {
				prefix = Muted.Render(prefix)
			}
		}
		fmt.Fprintf(w, "%s%s%s\n", strings.Repeat("  ", depth), prefix, label)
		return true
	})
}

