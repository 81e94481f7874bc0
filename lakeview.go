package lakeview

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hugr-lab/lakeview/duck"
	"github.com/hugr-lab/lakeview/query"
	"github.com/hugr-lab/lakeview/session"
)

// DefaultValidationMethod is recorded for validation tables created without
// an explicit method.
const DefaultValidationMethod = "manual"

// Workspace ties a datalake folder, its validation database and a session
// of named queries together. It is the main entry point for applications.
type Workspace struct {
	config  Config
	logger  *slog.Logger
	db      *duck.DB
	session *session.Session
}

// QueryDef describes a query created with Workspace.NewQuery.
type QueryDef struct {
	// ParquetFiles are the files the base table reads, relative to the
	// datalake folder.
	// REQUIRED: MUST NOT be empty.
	ParquetFiles []string

	// ValidationTable is the editable table joined as {user_table}.
	// OPTIONAL: If empty, a new validation table is created from Validation.
	ValidationTable string

	// Validation names the validation table created when ValidationTable
	// is empty. Its ParquetFiles default to the query's.
	Validation duck.ValidationSpec

	// Step is the query template.
	// OPTIONAL: If zero, every column of the base table is selected.
	Step query.Step
}

// Open validates config, opens the validation database and starts an empty
// session.
//
// Example:
//
//	ws, err := lakeview.Open(ctx, lakeview.Config{DataLakePath: "/data/lake"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ws.Close()
func Open(ctx context.Context, config Config) (*Workspace, error) {
	return open(ctx, config, nil)
}

// OpenSession is Open followed by loading a saved session. Loaded queries
// keep their cached pages until Refresh.
func OpenSession(ctx context.Context, config Config, path string) (*Workspace, error) {
	return open(ctx, config, &path)
}

func open(ctx context.Context, config Config, sessionPath *string) (*Workspace, error) {
	if err := applyDefaults(&config); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	logger := newLogger(config)

	dbPath := ""
	if config.DataLakePath != "" {
		dbPath = filepath.Join(config.DataLakePath, config.Database+".db")
	}

	db, err := duck.Open(ctx, dbPath, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	opts := session.Options{
		Logger: logger,
		Engine: query.Options{
			Logger:         logger,
			Connector:      db,
			Limit:          config.PageSize,
			RefreshTimeout: config.QueryTimeout,
		},
	}

	var s *session.Session
	if sessionPath != nil {
		s, err = session.LoadFile(*sessionPath, opts)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if s.DataLakePath() == "" {
			s.SetDataLakePath(config.DataLakePath)
		}
	} else {
		s = session.New(opts)
		s.SetDataLakePath(config.DataLakePath)
	}

	logger.Info("Lakeview workspace opened",
		"datalake", config.DataLakePath,
		"database", dbPath,
		"queries", len(s.Names()),
	)

	return &Workspace{config: config, logger: logger, db: db, session: s}, nil
}

// Close releases the database.
func (w *Workspace) Close() error {
	return w.db.Close()
}

// DB returns the validation database.
func (w *Workspace) DB() *duck.DB { return w.db }

// Session returns the session of named queries.
func (w *Workspace) Session() *session.Session { return w.session }

// Logger returns the workspace logger.
func (w *Workspace) Logger() *slog.Logger { return w.logger }

// Query returns the engine registered under name.
func (w *Workspace) Query(name string) (*query.Engine, error) {
	e, ok := w.session.Query(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQueryNotFound, name)
	}
	return e, nil
}

// NewQuery creates, configures and registers a query, then runs its first
// Update. A validation table is created when def names none.
func (w *Workspace) NewQuery(ctx context.Context, name string, def QueryDef) (*query.Engine, error) {
	table, err := duck.ParquetTableIn(w.session.DataLakePath(), def.ParquetFiles)
	if err != nil {
		return nil, err
	}

	custom := def.Step.Name != "" || len(def.Step.Fields) > 0 || def.Step.From != "" || len(def.Step.Joins) > 0
	if custom {
		if _, err := def.Step.Template(); err != nil {
			return nil, err
		}
	}

	e, err := w.session.NewQuery(name)
	if err != nil {
		return nil, err
	}

	validation := def.ValidationTable
	if validation == "" {
		spec := def.Validation
		if spec.Name == "" {
			spec.Name = name
		}
		if spec.Method == "" {
			spec.Method = DefaultValidationMethod
		}
		if spec.Username == "" {
			spec.Username = w.config.Username
		}
		if len(spec.ParquetFiles) == 0 {
			spec.ParquetFiles = def.ParquetFiles
		}
		if validation, err = w.db.CreateValidationTable(ctx, spec); err != nil {
			_ = w.session.Remove(name)
			return nil, err
		}
	}

	e.Mute()
	defer e.Unmute(ctx)
	e.SetBaseTable(ctx, table)
	e.SetEditableTable(ctx, validation)
	if custom {
		if err := e.SetStep(ctx, def.Step); err != nil {
			_ = w.session.Remove(name)
			return nil, err
		}
	}
	return e, nil
}

// Refresh recomputes every query of the session.
func (w *Workspace) Refresh(ctx context.Context) error {
	return w.session.Refresh(ctx)
}

// Save writes the session to path.
func (w *Workspace) Save(path string) error {
	return w.session.SaveFile(path)
}
