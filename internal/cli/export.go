package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hugr-lab/lakeview/export"
)

var (
	exportQuery string
	exportOut   string
	exportBatch int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every row of a query as an Arrow IPC stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, e, err := openQuery(ctx, exportQuery)
		if err != nil {
			return err
		}
		defer ws.Close()

		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		n, err := export.WriteArrow(ctx, e, ws.DB(), f, export.Options{BatchSize: exportBatch})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(exportOut)
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s rows to %s\n", humanize.Comma(int64(n)), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "Query name")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file")
	exportCmd.Flags().IntVar(&exportBatch, "batch-size", export.DefaultBatchSize, "Rows per record batch")
	_ = exportCmd.MarkFlagRequired("query")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
