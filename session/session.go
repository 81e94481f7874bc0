// Package session holds the named query engines of one analysis over a
// datalake folder and persists them as a single document.
//
// Documents are MessagePack encoded and ZStandard compressed:
//
//	{datalake_path, queries: {name: query.Record}}
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hugr-lab/lakeview/internal/msgpack"
	"github.com/hugr-lab/lakeview/internal/runctx"
	"github.com/hugr-lab/lakeview/internal/serialize"
	"github.com/hugr-lab/lakeview/query"
)

// Standard errors returned by session operations.
var (
	ErrQueryExists   = errors.New("query already exists")
	ErrQueryNotFound = errors.New("query not found")
	ErrNoDataLake    = errors.New("no datalake path set")
	ErrBadDocument   = errors.New("invalid session document")
)

// documentVersion is written into every saved document.
const documentVersion = 1

// Document is the persisted form of a Session.
type Document struct {
	Version      int                     `msgpack:"version"`
	DataLakePath string                  `msgpack:"datalake_path"`
	Queries      map[string]query.Record `msgpack:"queries"`
}

// Options configures new engines created by a Session.
type Options struct {
	// Logger for the session and its engines.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// Engine is the template for engines created by NewQuery and Load.
	// Its Logger is replaced by the session logger when unset.
	Engine query.Options
}

// Session owns the named engines of one analysis.
type Session struct {
	logger *slog.Logger
	opts   query.Options

	mu           sync.RWMutex
	dataLakePath string
	queries      map[string]*query.Engine
}

// New creates an empty session.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engineOpts := opts.Engine
	if engineOpts.Logger == nil {
		engineOpts.Logger = logger
	}
	return &Session{
		logger:  logger,
		opts:    engineOpts,
		queries: map[string]*query.Engine{},
	}
}

// SetDataLakePath sets the folder relative file paths resolve against.
func (s *Session) SetDataLakePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataLakePath = path
}

// DataLakePath returns the datalake folder.
func (s *Session) DataLakePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataLakePath
}

// RelativeToAbsolute resolves path inside the datalake folder.
func (s *Session) RelativeToAbsolute(path string) (string, error) {
	root := s.DataLakePath()
	if root == "" {
		return "", ErrNoDataLake
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Join(root, path), nil
}

// DatabasePath returns the DuckDB file backing database name:
// <datalake>/<name>.db.
func (s *Session) DatabasePath(name string) (string, error) {
	return s.RelativeToAbsolute(name + ".db")
}

// NewQuery creates an engine from the session options and registers it.
func (s *Session) NewQuery(name string) (*query.Engine, error) {
	e := query.NewEngine(s.opts)
	if err := s.AddQuery(name, e); err != nil {
		return nil, err
	}
	return e, nil
}

// AddQuery registers an engine under name.
func (s *Session) AddQuery(name string, e *query.Engine) error {
	if name == "" {
		return fmt.Errorf("%w: empty query name", ErrBadDocument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queries[name]; ok {
		return fmt.Errorf("%w: %s", ErrQueryExists, name)
	}
	s.queries[name] = e
	return nil
}

// Query returns the engine registered under name.
func (s *Session) Query(name string) (*query.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.queries[name]
	return e, ok
}

// Names returns the registered query names in sorted order.
func (s *Session) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.queries))
	for name := range s.queries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Remove unregisters name.
func (s *Session) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queries[name]; !ok {
		return fmt.Errorf("%w: %s", ErrQueryNotFound, name)
	}
	delete(s.queries, name)
	return nil
}

// Refresh runs Update on every engine concurrently and waits for all of
// them. Update never fails, so the returned error only reports a
// cancelled context; per-engine failures are in each engine's LastError.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	engines := make(map[string]*query.Engine, len(s.queries))
	for name, e := range s.queries {
		engines[name] = e
	}
	s.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for name, e := range engines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.Update(runctx.WithQueryName(ctx, name))
			if err := e.LastError(); err != nil {
				s.logger.Warn("Query refresh failed", "query_name", name, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Document snapshots the session.
func (s *Session) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := Document{
		Version:      documentVersion,
		DataLakePath: s.dataLakePath,
		Queries:      make(map[string]query.Record, len(s.queries)),
	}
	for name, e := range s.queries {
		doc.Queries[name] = e.ToRecord()
	}
	return doc
}

// Save writes the session document to w.
func (s *Session) Save(w io.Writer) error {
	data, err := msgpack.Encode(s.Document())
	if err != nil {
		return err
	}

	c, err := serialize.NewCompressor()
	if err != nil {
		return err
	}
	defer c.Close()

	compressed, err := c.Compress(data)
	if err != nil {
		return err
	}
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// SaveFile writes the session document to path, replacing it atomically.
func (s *Session) SaveFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := s.Save(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	s.logger.Debug("Saved session", "path", path, "queries", len(s.Names()))
	return nil
}

// Load reads a session document from r. Engines are restored without
// running queries; call Refresh to recompute their pages.
func Load(r io.Reader, opts Options) (*Session, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	d, err := serialize.NewDecompressor()
	if err != nil {
		return nil, err
	}
	defer d.Close()

	data, err := d.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}

	var doc Document
	if err := msgpack.Decode(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	return FromDocument(doc, opts)
}

// LoadFile reads a session document from path.
func LoadFile(path string, opts Options) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()
	return Load(f, opts)
}

// FromDocument rebuilds a session. Any malformed query fails the whole
// load.
func FromDocument(doc Document, opts Options) (*Session, error) {
	if doc.Version > documentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadDocument, doc.Version)
	}

	s := New(opts)
	s.dataLakePath = doc.DataLakePath
	for name, rec := range doc.Queries {
		e, err := s.NewQuery(name)
		if err != nil {
			return nil, err
		}
		if err := e.FromRecord(rec); err != nil {
			return nil, fmt.Errorf("query %q: %w", name, err)
		}
	}
	return s, nil
}
