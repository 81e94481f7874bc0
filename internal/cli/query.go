package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hugr-lab/lakeview"
	"github.com/hugr-lab/lakeview/duck"
	"github.com/hugr-lab/lakeview/filter"
	"github.com/hugr-lab/lakeview/filtermodel"
)

var (
	newFiles      []string
	newValidation string
	newMethod     string
	newSamples    []string
	newGenes      []string
	newWhere      []string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Manage the queries of a session",
}

var queryNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a query over parquet files",
	Long: `Creates a query over parquet files of the datalake and saves it in the
session. Without --validation a new validation table is created.

Examples:
  lakeview query new variants -s analysis.lakeview --files run1.parquet,run2.parquet
  lakeview query new rare -s analysis.lakeview --files run1.parquet --where "af < 0.01"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		defer ws.Close()

		e, err := ws.NewQuery(ctx, args[0], lakeview.QueryDef{
			ParquetFiles:    newFiles,
			ValidationTable: newValidation,
			Validation: duck.ValidationSpec{
				Method:      newMethod,
				SampleNames: newSamples,
				GeneNames:   newGenes,
			},
		})
		if err != nil {
			return err
		}
		if len(newWhere) > 0 {
			err := e.EditFilters(ctx, func(m *filtermodel.Model) error {
				for _, expr := range newWhere {
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
		if err := e.LastError(); err != nil {
			return err
		}
		if err := ws.Save(sessionPath); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created %s over %s (%s rows)\n",
			args[0], e.EditableTable(), humanize.Comma(int64(e.RowCount())))
		return nil
	},
}

var queryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the queries of a session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		out := cmd.OutOrStdout()
		names := ws.Session().Names()
		if len(names) == 0 {
			fmt.Fprintln(out, "No queries in session")
			return nil
		}

		rows := make([][]any, 0, len(names))
		for _, name := range names {
			e, err := ws.Query(name)
			if err != nil {
				return err
			}
			rows = append(rows, []any{name, e.EditableTable(), e.Filters().Render(), e.Summary()})
		}
		fmt.Fprint(out, renderTable([]string{"query", "validation table", "filters", "cached page"}, rows, isTerminal()))
		return nil
	},
}

var queryRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a query from a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		if err := ws.Session().Remove(args[0]); err != nil {
			return err
		}
		return ws.Save(sessionPath)
	},
}

func init() {
	queryNewCmd.Flags().StringSliceVarP(&newFiles, "files", "f", nil, "Parquet files, relative to the datalake")
	queryNewCmd.Flags().StringVar(&newValidation, "validation", "", "Existing validation table to join")
	queryNewCmd.Flags().StringVar(&newMethod, "method", lakeview.DefaultValidationMethod, "Validation method of a new validation table")
	queryNewCmd.Flags().StringSliceVar(&newSamples, "samples", nil, "Sample names recorded on a new validation table")
	queryNewCmd.Flags().StringSliceVar(&newGenes, "genes", nil, "Gene names recorded on a new validation table")
	queryNewCmd.Flags().StringArrayVar(&newWhere, "where", nil, "Initial filter expression (repeatable)")
	_ = queryNewCmd.MarkFlagRequired("files")

	queryCmd.AddCommand(queryNewCmd, queryListCmd, queryRmCmd)
	rootCmd.AddCommand(queryCmd)
}
