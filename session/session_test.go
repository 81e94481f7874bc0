package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hugr-lab/lakeview/filter"
	"github.com/hugr-lab/lakeview/query"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingConnector answers every query with a three-row table and counts
// connections.
type countingConnector struct {
	conns atomic.Int32
}

func (c *countingConnector) Conn(context.Context) (query.Conn, error) {
	c.conns.Add(1)
	return countingConn{}, nil
}

type countingConn struct{}

func (countingConn) Query(_ context.Context, text string) (*query.Result, error) {
	if bytes.HasPrefix([]byte(text), []byte("SELECT COUNT(*)")) {
		return &query.Result{Columns: []string{"count_star"}, Rows: [][]any{{int64(3)}}}, nil
	}
	return &query.Result{Columns: []string{"id"}, Rows: [][]any{{int64(1)}, {int64(2)}, {int64(3)}}}, nil
}

func (countingConn) Close() error { return nil }

func sampleSession(t *testing.T, conn query.Connector) *Session {
	t.Helper()
	s := New(Options{Logger: discardLogger(), Engine: query.Options{Connector: conn}})
	s.SetDataLakePath("/data/lake")

	ctx := context.Background()
	for _, name := range []string{"variants", "samples"} {
		e, err := s.NewQuery(name)
		if err != nil {
			t.Fatal(err)
		}
		e.Mute()
		e.SetBaseTable(ctx, "read_parquet(['/data/lake/"+name+".parquet'])")
		e.SetEditableTable(ctx, "validation_"+name)
		if err := e.AddVariable(ctx, "min_depth", "20"); err != nil {
			t.Fatal(err)
		}
		if _, err := e.Filters().AddLeaf(filter.NoNode, "depth >= {min_depth}", "deep"); err != nil {
			t.Fatal(err)
		}
		e.Unmute(ctx)
	}
	return s
}

func TestQueryRegistry(t *testing.T) {
	s := New(Options{Logger: discardLogger()})
	if _, err := s.NewQuery("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.NewQuery("a"); !errors.Is(err, ErrQueryExists) {
		t.Errorf("expected ErrQueryExists, got %v", err)
	}
	if _, err := s.NewQuery("b"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, s.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if err := s.Remove("a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("a"); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("expected ErrQueryNotFound, got %v", err)
	}
	if _, ok := s.Query("b"); !ok {
		t.Error("query b missing")
	}
}

func TestPaths(t *testing.T) {
	s := New(Options{Logger: discardLogger()})
	if _, err := s.RelativeToAbsolute("x"); !errors.Is(err, ErrNoDataLake) {
		t.Errorf("expected ErrNoDataLake, got %v", err)
	}
	s.SetDataLakePath("/data/lake")
	got, err := s.DatabasePath("validations")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/data/lake", "validations.db"); got != want {
		t.Errorf("DatabasePath = %q, want %q", got, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	conn := &countingConnector{}
	s := sampleSession(t, conn)

	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(&buf, Options{Logger: discardLogger(), Engine: query.Options{Connector: conn}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s.Document(), loaded.Document()); diff != "" {
		t.Errorf("document mismatch after load (-saved +loaded):\n%s", diff)
	}

	orig, _ := s.Query("variants")
	back, _ := loaded.Query("variants")
	if orig.SelectQuery(true) != back.SelectQuery(true) {
		t.Errorf("select differs:\n%s\n%s", orig.SelectQuery(true), back.SelectQuery(true))
	}
	if !back.IsValid() {
		t.Error("loaded engine must reuse the session connector")
	}
}

func TestSaveLoadFile(t *testing.T) {
	s := sampleSession(t, nil)
	path := filepath.Join(t.TempDir(), "analysis.lakeview")
	if err := s.SaveFile(path); err != nil {
		t.Fatal(err)
	}
	// Saving twice replaces the file.
	if err := s.SaveFile(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFile(path, Options{Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if loaded.DataLakePath() != "/data/lake" || len(loaded.Names()) != 2 {
		t.Errorf("unexpected session: %q %v", loaded.DataLakePath(), loaded.Names())
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load(bytes.NewReader([]byte("not a session")), Options{Logger: discardLogger()}); !errors.Is(err, ErrBadDocument) {
		t.Errorf("expected ErrBadDocument, got %v", err)
	}
}

func TestFromDocumentMalformedQuery(t *testing.T) {
	expr := "a=1"
	doc := Document{
		Version: documentVersion,
		Queries: map[string]query.Record{
			"broken": {RootFilter: filter.Record{FilterType: "LEAF", Expression: &expr}},
		},
	}
	if _, err := FromDocument(doc, Options{Logger: discardLogger()}); !errors.Is(err, filter.ErrMalformedFilter) {
		t.Errorf("expected ErrMalformedFilter, got %v", err)
	}

	doc = Document{Version: documentVersion + 1}
	if _, err := FromDocument(doc, Options{Logger: discardLogger()}); !errors.Is(err, ErrBadDocument) {
		t.Errorf("expected ErrBadDocument for a future version, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	conn := &countingConnector{}
	s := sampleSession(t, conn)
	before := conn.conns.Load()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := conn.conns.Load() - before; got != 2 {
		t.Errorf("expected one update per query, got %d", got)
	}
	for _, name := range s.Names() {
		e, _ := s.Query(name)
		if e.RowCount() != 3 || e.LastError() != nil {
			t.Errorf("%s: rows=%d err=%v", name, e.RowCount(), e.LastError())
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
