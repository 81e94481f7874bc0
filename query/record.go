package query

import (
	"maps"
	"slices"

	"github.com/hugr-lab/lakeview/filter"
)

// Record is the engine snapshot stored in a session document.
type Record struct {
	Step          Step              `json:"step" msgpack:"step"`
	QueryTemplate string            `json:"query_template" msgpack:"query_template"`
	BaseTable     string            `json:"readonly_table" msgpack:"readonly_table"`
	EditableTable string            `json:"editable_table_name" msgpack:"editable_table_name"`
	RootFilter    filter.Record     `json:"root_filter" msgpack:"root_filter"`
	Limit         int               `json:"limit" msgpack:"limit"`
	Offset        int               `json:"offset" msgpack:"offset"`
	CurrentPage   int               `json:"current_page" msgpack:"current_page"`
	PageCount     int               `json:"page_count" msgpack:"page_count"`
	RowCount      int               `json:"row_count,omitempty" msgpack:"row_count,omitempty"`
	Header        []string          `json:"header" msgpack:"header"`
	Data          [][]any           `json:"data" msgpack:"data"`
	Variables     map[string]string `json:"variables" msgpack:"variables"`
	SelectedRows  []string          `json:"selected_rows,omitempty" msgpack:"selected_rows,omitempty"`
}

// ToRecord snapshots the engine state, including the cached page.
func (e *Engine) ToRecord() Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Record{
		Step:          e.step,
		QueryTemplate: e.template,
		BaseTable:     e.baseTable,
		EditableTable: e.editableTable,
		RootFilter:    e.filters.Tree().ToRecord(),
		Limit:         e.limit,
		Offset:        e.offset,
		CurrentPage:   e.page,
		PageCount:     e.pageCount,
		RowCount:      e.rowCount,
		Header:        slices.Clone(e.header),
		Data:          slices.Clone(e.rows),
		Variables:     maps.Clone(e.variables),
		SelectedRows:  slices.Clone(e.selectedRows),
	}
}

// FromRecord restores a snapshot without running a query; the cached page
// is kept as stored until the next Update. The filter tree is validated
// before anything is replaced, so a malformed record leaves the engine
// unchanged.
func (e *Engine) FromRecord(rec Record) error {
	tree, err := filter.FromRecord(rec.RootFilter)
	if err != nil {
		return err
	}

	step := rec.Step
	if step.Name == "" && len(step.Fields) == 0 && step.From == "" {
		step = DefaultStep()
	}
	template := rec.QueryTemplate
	if template == "" {
		if template, err = step.Template(); err != nil {
			return err
		}
	}

	e.quietly(func() {
		e.filters.Reset(tree)

		e.mu.Lock()
		defer e.mu.Unlock()
		e.step = step
		e.template = template
		e.baseTable = rec.BaseTable
		e.editableTable = rec.EditableTable
		e.variables = maps.Clone(rec.Variables)
		if e.variables == nil {
			e.variables = map[string]string{}
		}
		for name := range e.variables {
			if IsReserved(name) {
				delete(e.variables, name)
			}
		}
		e.selectedRows = slices.Clone(rec.SelectedRows)
		e.limit = rec.Limit
		if e.limit <= 0 {
			e.limit = e.defaultLimit
		}
		e.pageCount = max(rec.PageCount, 1)
		e.setPage(max(rec.CurrentPage, 1))
		e.header = slices.Clone(rec.Header)
		e.rows = slices.Clone(rec.Data)
		e.rowCount = max(rec.RowCount, 0)
		e.lastErr = nil
	})
	return nil
}
