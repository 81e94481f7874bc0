package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pageQuery  string
	pageNumber int
	pageLimit  int
	pageSave   bool
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Show one page of a query",
	Long: `Runs a query of the session and prints the requested page.

Examples:
  lakeview page -s analysis.lakeview --query variants
  lakeview page -s analysis.lakeview --query variants --page 3 --limit 50 --save`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, e, err := openQuery(ctx, pageQuery)
		if err != nil {
			return err
		}
		defer ws.Close()

		if todo := e.ToDo(); len(todo) > 0 {
			return fmt.Errorf("query %s is not ready: %v", pageQuery, todo)
		}

		e.Mute()
		if cmd.Flags().Changed("limit") {
			if err := e.SetLimit(ctx, pageLimit); err != nil {
				e.Unmute(ctx)
				return err
			}
		}
		if cmd.Flags().Changed("page") {
			// The stored page count may be stale; Update clamps against the fresh one.
			if err := e.SetOffset(ctx, (pageNumber-1)*e.Limit()); err != nil {
				e.Unmute(ctx)
				return fmt.Errorf("--page must be at least 1: %w", err)
			}
		}
		e.Unmute(ctx)

		if err := e.LastError(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		styled := isTerminal()
		fmt.Fprint(out, renderTable(e.Header(), e.Rows(), styled))
		summary := e.Summary()
		if styled {
			summary = Muted.Render(summary)
		}
		fmt.Fprintln(out, summary)

		if pageSave {
			return ws.Save(sessionPath)
		}
		return nil
	},
}

func init() {
	pageCmd.Flags().StringVarP(&pageQuery, "query", "q", "", "Query name")
	pageCmd.Flags().IntVarP(&pageNumber, "page", "p", 1, "Page to show")
	pageCmd.Flags().IntVarP(&pageLimit, "limit", "n", 0, "Rows per page")
	pageCmd.Flags().BoolVar(&pageSave, "save", false, "Write the new page back to the session")
	_ = pageCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(pageCmd)
}
