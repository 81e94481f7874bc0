package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hugr-lab/lakeview"
)

var validationsCmd = &cobra.Command{
	Use:   "validations",
	Short: "List the validation tables of the datalake",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DataLakePath == "" {
			return errors.New("no datalake: use --datalake or set datalake_path in the config file")
		}
		ws, err := lakeview.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer ws.Close()

		vals, err := ws.DB().Validations(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(vals) == 0 {
			fmt.Fprintln(out, "No validation tables")
			return nil
		}

		rows := make([][]any, len(vals))
		for i, v := range vals {
			rows[i] = []any{v.TableName, v.Name, v.Method, v.Username, strings.Join(v.ParquetFiles, ", "), humanize.Time(v.CreatedAt), v.Completed}
		}
		fmt.Fprint(out, renderTable([]string{"table", "name", "method", "user", "files", "created", "completed"}, rows, isTerminal()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validationsCmd)
}
