package query

import (
	sq "github.com/Masterminds/squirrel"
)

// SelectQuery returns the query for the current state:
//
//	SELECT * FROM (<template>) [WHERE <filters>] [LIMIT n OFFSET m]
//
// The WHERE clause is omitted when the filter tree renders nothing.
// paginated=false drops LIMIT/OFFSET, which is what exports use.
func (e *Engine) SelectQuery(paginated bool) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectQuery(paginated)
}

// CountQuery returns SELECT COUNT(*) AS count_star over the unpaginated
// select query.
func (e *Engine) CountQuery() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countQuery()
}

func (e *Engine) selectQuery(paginated bool) string {
	b := sq.Select("*").From("(" + e.substitute(e.template) + ")")

	tree := e.filters.Tree()
	if !tree.IsEmpty() {
		if where := tree.Render(); where != "" {
			b = b.Where(where)
		}
	}
	if paginated {
		b = b.Limit(uint64(e.limit)).Offset(uint64(e.offset))
	}

	text, _, err := b.ToSql()
	if err != nil {
		// Only reachable with an empty FROM, which the template never is.
		e.logger.Error("Failed to compose select query", "error", err)
		return ""
	}
	return text
}

func (e *Engine) countQuery() string {
	text, _, err := sq.Select("COUNT(*) AS count_star").
		From("(" + e.selectQuery(false) + ")").
		ToSql()
	if err != nil {
		e.logger.Error("Failed to compose count query", "error", err)
		return ""
	}
	return text
}
