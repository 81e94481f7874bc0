// Package lakeview lets an analyst filter and page through Parquet files in a
// datalake folder with nested boolean filters, backed by an embedded DuckDB
// database.
//
// The lakeview package ties the pieces together:
//   - filter: the boolean filter tree and its textual rendering
//   - filtermodel: (row, parent) addressing of the tree for list views
//   - query: the reactive engine turning filters, variables and pagination
//     into SQL and a cached page
//   - duck: the DuckDB connector and validation-table catalog
//   - session: named queries saved to and loaded from one document
//   - export: full results as an Arrow IPC stream
//
// # Quick Start
//
//	ws, err := lakeview.Open(ctx, lakeview.Config{DataLakePath: "/data/lake"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ws.Close()
//
//	e, err := ws.NewQuery(ctx, "variants", lakeview.QueryDef{
//	    ParquetFiles: []string{"run1.parquet", "run2.parquet"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Two filter edits, one query.
//	err = e.EditFilters(ctx, func(m *filtermodel.Model) error {
//	    or, err := m.AddGroup(filter.NoNode, filter.KindOr, "rare")
//	    if err != nil {
//	        return err
//	    }
//	    if _, err := m.AddLeaf(or, "af < 0.01", ""); err != nil {
//	        return err
//	    }
//	    _, err = m.AddLeaf(or, "af IS NULL", "")
//	    return err
//	})
//
//	fmt.Println(e.Summary()) // rows 1-10 of 1,234 (page 1/124)
//	e.NextPage(ctx)
//
// # Query Steps
//
// A step is the query template filters and pagination wrap. Use
// StepBuilder to build one:
//
//	step, err := lakeview.NewStepBuilder("validated").
//	    Select("t.*", "v.accepted").
//	    From("{main_table} t").
//	    LeftJoin("{user_table} v ON v.id = t.id").
//	    Build()
//
// {main_table} is the parquet base table and {user_table} the query's
// validation table. User variables added with Engine.AddVariable are
// substituted the same way.
//
// # Sessions
//
// Workspace.Save writes every query (filters, step, variables, pagination
// and the cached page) to one file; OpenSession restores it without
// running queries until Refresh.
//
// # Configuration
//
// Config fields carry their defaults in struct tags; see Config for the
// REQUIRED/OPTIONAL contract of each field. The lakeview command reads the
// same fields from a TOML file.
package lakeview
