package query

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hugr-lab/lakeview/filter"
)

func TestStepTemplate(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		want    string
		wantErr bool
	}{
		{
			name: "default",
			step: DefaultStep(),
			want: "SELECT * FROM {main_table}",
		},
		{
			name: "empty fields and from",
			step: Step{Name: "bare"},
			want: "SELECT * FROM {main_table}",
		},
		{
			name: "grouped",
			step: Step{
				Name:    "by_status",
				Fields:  []string{"status", "COUNT(*) AS n"},
				From:    "{main_table}",
				GroupBy: []string{"status"},
				OrderBy: []string{"n DESC"},
			},
			want: "SELECT status, COUNT(*) AS n FROM {main_table} GROUP BY status ORDER BY n DESC",
		},
		{
			name: "joins",
			step: Step{
				Name: "validated",
				From: "{main_table} t",
				Joins: []Join{
					{Clause: "{user_table} v USING (id)"},
					{Kind: "cross", Clause: "range(3) r"},
				},
			},
			want: "SELECT * FROM {main_table} t JOIN {user_table} v USING (id) CROSS JOIN range(3) r",
		},
		{
			name:    "unknown join kind",
			step:    Step{Name: "bad", Joins: []Join{{Kind: "SIDEWAYS", Clause: "x"}}},
			wantErr: true,
		},
		{
			name:    "join without clause",
			step:    Step{Name: "bad", Joins: []Join{{Kind: "LEFT"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.step.Template()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestSetStepRejectsBadTemplate(t *testing.T) {
	e := NewEngine(Options{Logger: discardLogger()})
	before := e.Step()
	if err := e.SetStep(context.Background(), Step{Name: "bad", Joins: []Join{{Kind: "?", Clause: "x"}}}); err == nil {
		t.Fatal("expected error")
	}
	if diff := cmp.Diff(before, e.Step()); diff != "" {
		t.Errorf("step changed on failure (-before +after):\n%s", diff)
	}
}

func TestEngineRecordRoundTrip(t *testing.T) {
	db := &fakeDB{count: 25}
	e := newReadyEngine(t, db)
	ctx := context.Background()
	_ = e.AddVariable(ctx, "threshold", "3")
	e.SetSelectedRows(ctx, []string{"k1"})
	_ = e.SetLimit(ctx, 5)
	or, err := e.Filters().AddGroup(filter.NoNode, filter.KindOr, "either")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Filters().AddLeaf(or, "id = 1", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Filters().AddLeaf(or, "id = 2", "two"); err != nil {
		t.Fatal(err)
	}
	e.Unmute(ctx)
	e.NextPage(ctx)

	rec := e.ToRecord()
	if rec.CurrentPage != 2 || rec.Offset != 5 || rec.PageCount != 5 || len(rec.Data) != 5 {
		t.Fatalf("unexpected record: page=%d offset=%d pages=%d rows=%d",
			rec.CurrentPage, rec.Offset, rec.PageCount, len(rec.Data))
	}

	other := &fakeDB{count: 25}
	restored := NewEngine(Options{Logger: discardLogger(), Connector: other})
	changes := 0
	restored.Subscribe(func(Change) { changes++ })
	if err := restored.FromRecord(rec); err != nil {
		t.Fatal(err)
	}
	if changes != 0 {
		t.Errorf("restore must not refresh, got %d changes", changes)
	}
	if _, _, queries := other.stats(); queries != 0 {
		t.Errorf("restore must not query, got %d queries", queries)
	}

	if diff := cmp.Diff(e.SelectQuery(true), restored.SelectQuery(true)); diff != "" {
		t.Errorf("select query differs after restore (-orig +restored):\n%s", diff)
	}
	if diff := cmp.Diff(rec, restored.ToRecord()); diff != "" {
		t.Errorf("record differs after restore (-orig +restored):\n%s", diff)
	}
}

func TestEngineFromRecordMalformed(t *testing.T) {
	e := NewEngine(Options{Logger: discardLogger()})
	_ = e.AddVariable(context.Background(), "keep", "1")
	e.SetBaseTable(context.Background(), "orig")

	expr := "x=1"
	rec := Record{
		BaseTable: "t",
		RootFilter: filter.Record{
			FilterType: "LEAF",
			Expression: &expr,
			Children:   []filter.Record{{FilterType: "LEAF", Expression: &expr}},
		},
	}
	if err := e.FromRecord(rec); err == nil {
		t.Fatal("expected malformed filter error")
	}
	if e.BaseTable() != "orig" {
		t.Error("failed restore must leave the engine unchanged")
	}
	if _, ok := e.Variable("keep"); !ok {
		t.Error("failed restore dropped variables")
	}
}
