package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/hugr-lab/lakeview/filter"
)

var errEmptyCount = errors.New("count query returned no rows")

// PageCount returns max(1, ceil(rowCount/limit)). limit <= 0 counts as a
// single page.
func PageCount(rowCount, limit int) int {
	if limit <= 0 || rowCount <= 0 {
		return 1
	}
	return (rowCount + limit - 1) / limit
}

// setPage moves to page and derives the offset. Caller holds mu.
func (e *Engine) setPage(page int) {
	e.page = page
	e.offset = (page - 1) * e.limit
}

// clampPage bounds page to [1, page_count]. Caller holds mu.
func (e *Engine) clampPage(page int) int {
	if page > e.pageCount {
		page = e.pageCount
	}
	if page < 1 {
		page = 1
	}
	return page
}

// SetLimit changes the page size, keeping the current page, and refreshes.
func (e *Engine) SetLimit(ctx context.Context, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", filter.ErrInvalidMutation, limit)
	}
	e.mu.Lock()
	e.limit = limit
	e.setPage(e.page)
	e.mu.Unlock()
	e.changed(ctx)
	return nil
}

// SetOffset sets the row offset directly and refreshes. The current page
// becomes the page containing that row.
func (e *Engine) SetOffset(ctx context.Context, offset int) error {
	if offset < 0 {
		return fmt.Errorf("%w: negative offset %d", filter.ErrInvalidMutation, offset)
	}
	e.mu.Lock()
	e.offset = offset
	e.page = offset/e.limit + 1
	e.mu.Unlock()
	e.changed(ctx)
	return nil
}

// SetPage moves to page, clamped to [1, page_count], and refreshes.
func (e *Engine) SetPage(ctx context.Context, page int) {
	e.movePage(ctx, func(int) int { return page })
}

// NextPage moves forward one page. On the last page it stays put.
func (e *Engine) NextPage(ctx context.Context) {
	e.movePage(ctx, func(p int) int { return p + 1 })
}

// PreviousPage moves back one page. On the first page it stays put.
func (e *Engine) PreviousPage(ctx context.Context) {
	e.movePage(ctx, func(p int) int { return p - 1 })
}

// FirstPage moves to page 1.
func (e *Engine) FirstPage(ctx context.Context) {
	e.movePage(ctx, func(int) int { return 1 })
}

// LastPage moves to the last known page.
func (e *Engine) LastPage(ctx context.Context) {
	e.mu.Lock()
	last := e.pageCount
	e.mu.Unlock()
	e.movePage(ctx, func(int) int { return last })
}

func (e *Engine) movePage(ctx context.Context, next func(current int) int) {
	e.mu.Lock()
	e.setPage(e.clampPage(next(e.page)))
	e.mu.Unlock()
	e.changed(ctx)
}

// Page returns the current 1-based page.
func (e *Engine) Page() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// PageCount returns the page count derived by the last Update.
func (e *Engine) PageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pageCount
}

// RowCount returns the filtered row count of the last Update.
func (e *Engine) RowCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rowCount
}

// Limit returns the page size.
func (e *Engine) Limit() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.limit
}

// Offset returns the row offset of the current page.
func (e *Engine) Offset() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset
}

// Summary describes the cached page for status lines, e.g.
// "rows 11-20 of 1,234 (page 2/124)".
func (e *Engine) Summary() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.rows) == 0 {
		return "no rows"
	}
	first := int64(e.offset + 1)
	last := int64(e.offset + len(e.rows))
	return fmt.Sprintf("rows %s-%s of %s (page %d/%d)",
		humanize.Comma(first), humanize.Comma(last), humanize.Comma(int64(e.rowCount)),
		e.page, e.pageCount)
}
