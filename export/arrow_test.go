package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/lakeview/query"
)

type staticSource string

func (s staticSource) SelectQuery(bool) string { return string(s) }

type staticConnector struct {
	res    *query.Result
	err    error
	closed int
}

func (c *staticConnector) Conn(context.Context) (query.Conn, error) { return c, nil }

func (c *staticConnector) Query(context.Context, string) (*query.Result, error) {
	return c.res, c.err
}

func (c *staticConnector) Close() error {
	c.closed++
	return nil
}

func TestWriteArrow(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &query.Result{
		Columns: []string{"id", "score", "ok", "seen", "name", "empty"},
		Rows: [][]any{
			{int64(1), 0.5, true, ts, "a", nil},
			{int64(2), nil, false, ts.Add(time.Hour), nil, nil},
			{int32(3), 1.5, nil, nil, "c", nil},
		},
	}
	conn := &staticConnector{res: res}

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	var buf bytes.Buffer
	n, err := WriteArrow(context.Background(), staticSource("SELECT 1"), conn, &buf, Options{Allocator: mem, BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows, got %d", n)
	}
	if conn.closed != 1 {
		t.Errorf("connection not released")
	}

	reader, err := ipc.NewReader(&buf, ipc.WithAllocator(mem))
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Release()

	wantTypes := []arrow.DataType{
		arrow.PrimitiveTypes.Int64,
		arrow.PrimitiveTypes.Float64,
		arrow.FixedWidthTypes.Boolean,
		arrow.FixedWidthTypes.Timestamp_us,
		arrow.BinaryTypes.String,
		arrow.BinaryTypes.String,
	}
	for i, f := range reader.Schema().Fields() {
		if !arrow.TypeEqual(f.Type, wantTypes[i]) {
			t.Errorf("column %s: type %s, want %s", f.Name, f.Type, wantTypes[i])
		}
	}

	var ids []int64
	batches := 0
	for reader.Next() {
		batches++
		rec := reader.Record()
		col := rec.Column(0).(*array.Int64)
		ids = append(ids, col.Int64Values()...)
		if rec.Column(5).NullN() != int(rec.NumRows()) {
			t.Error("all-null column must stay null")
		}
	}
	if err := reader.Err(); err != nil {
		t.Fatal(err)
	}
	if batches != 2 {
		t.Errorf("expected 2 batches, got %d", batches)
	}
	if len(ids) != 3 || ids[2] != 3 {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestWriteArrowErrors(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WriteArrow(context.Background(), staticSource(""), &staticConnector{}, &buf, Options{}); !errors.Is(err, ErrNoQuery) {
		t.Errorf("expected ErrNoQuery, got %v", err)
	}

	boom := errors.New("boom")
	_, err := WriteArrow(context.Background(), staticSource("SELECT 1"), &staticConnector{err: boom}, &buf, Options{})
	var execErr *query.ExecutionError
	if !errors.As(err, &execErr) || !errors.Is(err, boom) {
		t.Errorf("expected execution error wrapping boom, got %v", err)
	}

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	mixed := &query.Result{Columns: []string{"n"}, Rows: [][]any{{int64(1)}, {"two"}}}
	if _, err := WriteResult(mixed, &buf, Options{Allocator: mem}); err == nil {
		t.Error("expected error for a mixed-type column")
	}
}
