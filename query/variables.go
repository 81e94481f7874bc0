package query

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hugr-lab/lakeview/filter"
	"github.com/hugr-lab/lakeview/internal/sqlutil"
)

// Substitution keys the engine injects itself. Templates reference them as
// {main_table}, {user_table} and {selected_rows}.
const (
	VarMainTable    = "main_table"
	VarUserTable    = "user_table"
	VarSelectedRows = "selected_rows"
)

// IsReserved reports whether name is injected by the engine and cannot be
// set with AddVariable.
func IsReserved(name string) bool {
	switch name {
	case VarMainTable, VarUserTable, VarSelectedRows:
		return true
	default:
		return false
	}
}

// AddVariable sets a user variable and refreshes. Reserved names and empty
// names are rejected with filter.ErrInvalidMutation, leaving the engine
// unchanged.
func (e *Engine) AddVariable(ctx context.Context, name, value string) error {
	if name == "" {
		return fmt.Errorf("%w: empty variable name", filter.ErrInvalidMutation)
	}
	if IsReserved(name) {
		return fmt.Errorf("%w: variable %q is reserved", filter.ErrInvalidMutation, name)
	}
	e.mu.Lock()
	e.variables[name] = value
	e.mu.Unlock()
	e.changed(ctx)
	return nil
}

// RemoveVariable deletes a user variable and refreshes. Removing an unknown
// name does nothing.
func (e *Engine) RemoveVariable(ctx context.Context, name string) {
	e.mu.Lock()
	_, ok := e.variables[name]
	delete(e.variables, name)
	e.mu.Unlock()
	if ok {
		e.changed(ctx)
	}
}

// Variable returns a user variable.
func (e *Engine) Variable(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.variables[name]
	return v, ok
}

// SetSelectedRows sets the keys substituted for {selected_rows} and
// refreshes.
func (e *Engine) SetSelectedRows(ctx context.Context, keys []string) {
	e.mu.Lock()
	e.selectedRows = slices.Clone(keys)
	e.mu.Unlock()
	e.changed(ctx)
}

// SelectedRows returns the selected row keys.
func (e *Engine) SelectedRows() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.selectedRows)
}

// substitute replaces {name} placeholders in text. Unknown placeholders are
// left as they are.
func (e *Engine) substitute(text string) string {
	pairs := make([]string, 0, 2*(len(e.variables)+3))
	for _, name := range sortedKeys(e.variables) {
		pairs = append(pairs, "{"+name+"}", e.variables[name])
	}
	pairs = append(pairs,
		"{"+VarMainTable+"}", e.baseTable,
		"{"+VarUserTable+"}", e.editableTable,
		"{"+VarSelectedRows+"}", sqlutil.LiteralList(e.selectedRows),
	)
	return strings.NewReplacer(pairs...).Replace(text)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
