package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Step describes the query a panel runs before filtering and paging:
// selected fields, joins, grouping and ordering. Table references use
// {name} placeholders, substituted with the engine variables.
type Step struct {
	Name    string   `json:"name" msgpack:"name"`
	Fields  []string `json:"fields,omitempty" msgpack:"fields,omitempty"`
	From    string   `json:"from,omitempty" msgpack:"from,omitempty"`
	Joins   []Join   `json:"joins,omitempty" msgpack:"joins,omitempty"`
	Where   string   `json:"where,omitempty" msgpack:"where,omitempty"`
	GroupBy []string `json:"group_by,omitempty" msgpack:"group_by,omitempty"`
	OrderBy []string `json:"order_by,omitempty" msgpack:"order_by,omitempty"`
}

// Join is one JOIN clause of a Step.
type Join struct {
	// Kind is the join flavor: "", "LEFT", "RIGHT", "INNER", "FULL", "CROSS".
	Kind string `json:"kind,omitempty" msgpack:"kind,omitempty"`
	// Clause is the joined table and its condition, e.g. "{user_table} v ON v.id = t.id".
	Clause string `json:"clause" msgpack:"clause"`
}

// DefaultStep selects every column of the base table.
func DefaultStep() Step {
	return Step{Name: "default", Fields: []string{"*"}, From: "{" + VarMainTable + "}"}
}

// Template renders the step as SQL text with its placeholders intact.
func (s Step) Template() (string, error) {
	fields := s.Fields
	if len(fields) == 0 {
		fields = []string{"*"}
	}
	from := s.From
	if from == "" {
		from = "{" + VarMainTable + "}"
	}

	b := sq.Select(fields...).From(from)
	for _, j := range s.Joins {
		if j.Clause == "" {
			return "", fmt.Errorf("step %q: join without clause", s.Name)
		}
		kind := strings.ToUpper(strings.TrimSpace(j.Kind))
		switch kind {
		case "":
			b = b.JoinClause("JOIN " + j.Clause)
		case "LEFT", "RIGHT", "INNER", "FULL", "CROSS":
			b = b.JoinClause(kind + " JOIN " + j.Clause)
		default:
			return "", fmt.Errorf("step %q: unknown join kind %q", s.Name, j.Kind)
		}
	}
	if s.Where != "" {
		b = b.Where(s.Where)
	}
	if len(s.GroupBy) > 0 {
		b = b.GroupBy(s.GroupBy...)
	}
	if len(s.OrderBy) > 0 {
		b = b.OrderBy(s.OrderBy...)
	}

	text, _, err := b.ToSql()
	if err != nil {
		return "", fmt.Errorf("step %q: %w", s.Name, err)
	}
	return text, nil
}
