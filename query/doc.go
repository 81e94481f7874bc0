// Package query implements the reactive query engine: it composes SQL from a
// step template, named variables, a filter tree and pagination, executes it
// through a Connector and caches the current page.
//
// # Refresh rules
//
// Every setter and every committed filter edit runs one Update, which is
// the only operation performing I/O. Update always emits exactly one Change
// to subscribers. Batches collapse refreshes:
//
//	engine.Mute()
//	engine.Filters().AddLeaf(filter.NoNode, "a = 5", "")
//	engine.SetLimit(ctx, 50)
//	engine.Unmute(ctx) // one Update
//
// EditFilters does the same for a function of filter edits.
//
// # Generated SQL
//
//	SELECT * FROM (<step template>) WHERE <filters> LIMIT <limit> OFFSET <offset>
//	SELECT COUNT(*) AS count_star FROM (<select without LIMIT/OFFSET>)
//
// Templates reference the data with {main_table} (base table),
// {user_table} (editable table), {selected_rows} and any user variable.
//
// Query failures never escape Update: they are logged with the query text,
// leave the engine with an empty page and are reported as *ExecutionError
// via Change.Err and LastError.
package query
