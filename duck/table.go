package duck

import (
	"path/filepath"

	"github.com/hugr-lab/lakeview/internal/sqlutil"
)

// ParquetTable returns the base-table expression reading every file in
// paths: read_parquet(['a.parquet', 'b.parquet']).
func ParquetTable(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", ErrNoParquetFiles
	}
	return "read_parquet(" + sqlutil.LiteralList(paths) + ")", nil
}

// ParquetTableIn is ParquetTable with paths relative to root. Absolute
// paths are kept as they are.
func ParquetTableIn(root string, paths []string) (string, error) {
	abs := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) || root == "" {
			abs[i] = p
			continue
		}
		abs[i] = filepath.Join(root, p)
	}
	return ParquetTable(abs)
}

// QuoteLiteral returns s as a SQL string literal.
func QuoteLiteral(s string) string { return sqlutil.QuoteLiteral(s) }

// QuoteIdentifier double-quotes name when it is not a plain identifier.
func QuoteIdentifier(name string) string { return sqlutil.QuoteIdentifier(name) }

// LiteralList renders values as a DuckDB list literal.
func LiteralList(values []string) string { return sqlutil.LiteralList(values) }
