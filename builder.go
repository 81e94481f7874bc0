package lakeview

import (
	"fmt"

	"github.com/hugr-lab/lakeview/query"
)

// StepBuilder builds query steps using fluent API.
// Not thread-safe - use only during initialization.
type StepBuilder struct {
	step  query.Step
	built bool
}

// NewStepBuilder creates a builder for a step named name selecting every
// column of the base table until told otherwise.
//
// Example:
//
//	step, err := lakeview.NewStepBuilder("validated").
//	    Select("t.*", "v.accepted").
//	    From("{main_table} t").
//	    LeftJoin("{user_table} v ON v.id = t.id").
//	    OrderBy("t.id").
//	    Build()
func NewStepBuilder(name string) *StepBuilder {
	return &StepBuilder{step: query.Step{Name: name}}
}

// Select sets the selected fields. Returns self for method chaining.
func (sb *StepBuilder) Select(fields ...string) *StepBuilder {
	sb.step.Fields = append(sb.step.Fields, fields...)
	return sb
}

// From sets the FROM clause. Returns self for method chaining.
func (sb *StepBuilder) From(from string) *StepBuilder {
	sb.step.From = from
	return sb
}

// Join adds a plain JOIN. Returns self for method chaining.
func (sb *StepBuilder) Join(clause string) *StepBuilder {
	return sb.join("", clause)
}

// LeftJoin adds a LEFT JOIN. Returns self for method chaining.
func (sb *StepBuilder) LeftJoin(clause string) *StepBuilder {
	return sb.join("LEFT", clause)
}

// InnerJoin adds an INNER JOIN. Returns self for method chaining.
func (sb *StepBuilder) InnerJoin(clause string) *StepBuilder {
	return sb.join("INNER", clause)
}

func (sb *StepBuilder) join(kind, clause string) *StepBuilder {
	sb.step.Joins = append(sb.step.Joins, query.Join{Kind: kind, Clause: clause})
	return sb
}

// Where sets the step's own condition, applied before user filters.
// Returns self for method chaining.
func (sb *StepBuilder) Where(cond string) *StepBuilder {
	sb.step.Where = cond
	return sb
}

// GroupBy adds grouping expressions. Returns self for method chaining.
func (sb *StepBuilder) GroupBy(exprs ...string) *StepBuilder {
	sb.step.GroupBy = append(sb.step.GroupBy, exprs...)
	return sb
}

// OrderBy adds ordering expressions. Returns self for method chaining.
func (sb *StepBuilder) OrderBy(exprs ...string) *StepBuilder {
	sb.step.OrderBy = append(sb.step.OrderBy, exprs...)
	return sb
}

// Build finalizes the step. Can only be called once.
// Returns error if the step is invalid (no name, or a template that does
// not render).
func (sb *StepBuilder) Build() (query.Step, error) {
	if sb.built {
		return query.Step{}, fmt.Errorf("step already built")
	}
	if sb.step.Name == "" {
		return query.Step{}, fmt.Errorf("step name cannot be empty")
	}
	if _, err := sb.step.Template(); err != nil {
		return query.Step{}, err
	}
	sb.built = true
	return sb.step, nil
}
