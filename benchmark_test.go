package lakeview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/lakeview/export"
	"github.com/hugr-lab/lakeview/filter"
	"github.com/hugr-lab/lakeview/query"
	"github.com/hugr-lab/lakeview/session"
)

// benchConnector answers every query with a fixed page and a fixed count.
type benchConnector struct {
	page *query.Result
}

func (c *benchConnector) Conn(context.Context) (query.Conn, error) { return c, nil }

func (c *benchConnector) Query(_ context.Context, text string) (*query.Result, error) {
	if strings.HasPrefix(text, "SELECT COUNT(*)") {
		return &query.Result{Columns: []string{"count_star()"}, Rows: [][]any{{int64(100000)}}}, nil
	}
	return c.page, nil
}

func (c *benchConnector) Close() error { return nil }

func benchRows(n int) *query.Result {
	res := &query.Result{Columns: []string{"id", "gene", "af", "pass"}}
	for i := range n {
		res.Rows = append(res.Rows, []any{int64(i), "GENE" + strconv.Itoa(i%26), float64(i) / float64(n), i%2 == 0})
	}
	return res
}

// benchTree builds groups of leaves alternating AND and OR.
func benchTree(b *testing.B, groups, leaves int) *filter.Tree {
	b.Helper()
	t := filter.NewTree()
	for g := range groups {
		kind := filter.KindAnd
		if g%2 == 1 {
			kind = filter.KindOr
		}
		group, err := t.NewComposite(kind, "")
		if err != nil {
			b.Fatal(err)
		}
		if err := t.AddChild(t.WorkingRoot(), group); err != nil {
			b.Fatal(err)
		}
		for l := range leaves {
			leaf, err := t.NewLeaf(fmt.Sprintf("depth >= %d", g*leaves+l), "")
			if err != nil {
				b.Fatal(err)
			}
			if err := t.AddChild(group, leaf); err != nil {
				b.Fatal(err)
			}
		}
	}
	return t
}

func benchEngine(b *testing.B, name string, conn query.Connector) *query.Engine {
	b.Helper()
	e := query.NewEngine(query.Options{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Connector: conn,
	})
	ctx := context.Background()
	e.Mute()
	e.SetBaseTable(ctx, "read_parquet(['/data/lake/"+name+".parquet'])")
	e.SetEditableTable(ctx, "validation_"+name)
	for l := range 8 {
		if _, err := e.Filters().AddLeaf(filter.NoNode, fmt.Sprintf("depth >= %d", l), ""); err != nil {
			b.Fatal(err)
		}
	}
	e.Unmute(ctx)
	return e
}

// BenchmarkRender benchmarks rendering filter trees of growing size.
func BenchmarkRender(b *testing.B) {
	for _, groups := range []int{1, 10, 100} {
		b.Run("groups_"+strconv.Itoa(groups), func(b *testing.B) {
			t := benchTree(b, groups, 5)

			b.ResetTimer()
			b.ReportAllocs()

			for b.Loop() {
				if t.Render() == "" {
					b.Fatal("empty render")
				}
			}

			b.StopTimer()
			b.ReportMetric(float64(t.Len()), "nodes")
		})
	}
}

// BenchmarkUpdate benchmarks one refresh against an in-process connector.
func BenchmarkUpdate(b *testing.B) {
	e := benchEngine(b, "variants", &benchConnector{page: benchRows(query.DefaultLimit)})
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		e.Update(ctx)
		if e.LastError() != nil {
			b.Fatalf("Update failed: %v", e.LastError())
		}
	}
}

// BenchmarkSessionSerialization benchmarks saving a session and reports
// the compressed document size.
func BenchmarkSessionSerialization(b *testing.B) {
	conn := &benchConnector{page: benchRows(100)}
	s := session.New(session.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	for i := range 10 {
		name := "query_" + strconv.Itoa(i)
		if err := s.AddQuery(name, benchEngine(b, name, conn)); err != nil {
			b.Fatal(err)
		}
	}

	var size countingWriter
	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		size = 0
		if err := s.Save(&size); err != nil {
			b.Fatalf("Save failed: %v", err)
		}
	}

	b.StopTimer()
	b.ReportMetric(float64(size), "bytes")
}

// BenchmarkExport benchmarks Arrow IPC export of growing results.
func BenchmarkExport(b *testing.B) {
	for _, rows := range []int{100, 1000, 10000} {
		b.Run("rows_"+strconv.Itoa(rows), func(b *testing.B) {
			res := benchRows(rows)

			b.ResetTimer()
			b.ReportAllocs()

			for b.Loop() {
				if _, err := export.WriteResult(res, io.Discard, export.Options{Allocator: memory.DefaultAllocator}); err != nil {
					b.Fatalf("WriteResult failed: %v", err)
				}
			}

			b.StopTimer()
			b.ReportMetric(float64(rows), "rows/export")
		})
	}
}

// BenchmarkConcurrentRefresh benchmarks refreshing a session whose queries
// update in parallel.
func BenchmarkConcurrentRefresh(b *testing.B) {
	conn := &benchConnector{page: benchRows(query.DefaultLimit)}
	s := session.New(session.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	for i := range 8 {
		name := "query_" + strconv.Itoa(i)
		if err := s.AddQuery(name, benchEngine(b, name, conn)); err != nil {
			b.Fatal(err)
		}
	}
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		if err := s.Refresh(ctx); err != nil {
			b.Fatalf("Refresh failed: %v", err)
		}
	}
}

type countingWriter int

func (w *countingWriter) Write(p []byte) (int, error) {
	*w += countingWriter(len(p))
	return len(p), nil
}
