package query

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/hugr-lab/lakeview/filtermodel"
	"github.com/hugr-lab/lakeview/internal/recovery"
)

// Default pagination state of a fresh engine.
const (
	DefaultLimit = 10
	maxClampRuns = 1
)

// Options configures an Engine.
type Options struct {
	// Logger for query failures and diagnostics.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// Connector to the embedded engine.
	// OPTIONAL: may be set later with SetConnector; Update is a no-op until then.
	Connector Connector

	// Limit is the initial page size.
	// OPTIONAL: DefaultLimit if <= 0.
	Limit int

	// RefreshTimeout bounds updates triggered by filter edits, which carry no
	// caller context.
	// OPTIONAL: no timeout if 0.
	RefreshTimeout time.Duration
}

// Change is delivered to observers once per logical change.
type Change struct {
	Valid     bool
	Err       error
	RowCount  int
	Page      int
	PageCount int
}

type subscriber struct {
	id int
	fn func(Change)
}

// Engine turns a filter tree, named variables and pagination into SQL,
// runs it and caches the current page.
//
// State changes while muted accumulate without I/O; leaving the outermost
// batch runs exactly one Update. All methods are safe for concurrent use,
// but Update holds the state lock for the whole query, so callers are
// effectively serialized. The filter model shares that lock, so tree edits
// never overlap query composition.
type Engine struct {
	logger         *slog.Logger
	refreshTimeout time.Duration
	defaultLimit   int

	filters *filtermodel.Model

	mu            sync.Mutex
	connector     Connector
	step          Step
	template      string
	baseTable     string
	editableTable string
	variables     map[string]string
	selectedRows  []string

	limit     int
	offset    int
	page      int
	pageCount int
	rowCount  int

	header  []string
	rows    [][]any
	lastErr error

	muted int

	subsMu sync.Mutex
	subs   []subscriber
	nextID int
}

// NewEngine creates an engine with an empty filter tree and default
// pagination (limit 10, page 1).
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	e := &Engine{
		logger:         logger,
		refreshTimeout: opts.RefreshTimeout,
		defaultLimit:   limit,
		connector:      opts.Connector,
	}
	e.filters = filtermodel.NewShared(nil, logger, &e.mu)
	e.initState()
	e.filters.Subscribe(e.onFilterChange)
	return e
}

// initState resets everything but the connector. Caller holds mu or owns e.
func (e *Engine) initState() {
	e.step = DefaultStep()
	e.template, _ = e.step.Template()
	e.baseTable = ""
	e.editableTable = ""
	e.variables = map[string]string{}
	e.selectedRows = nil
	e.limit = e.defaultLimit
	e.offset = 0
	e.page = 1
	e.clearResults()
	e.lastErr = nil
}

func (e *Engine) clearResults() {
	e.header = nil
	e.rows = nil
	e.rowCount = 0
	e.pageCount = 1
}

// Filters returns the filter model. Edits made through it refresh the
// engine unless it is muted. Its methods must not be called from code
// holding the engine lock.
func (e *Engine) Filters() *filtermodel.Model { return e.filters }

// Subscribe registers fn to receive one Change per logical change.
func (e *Engine) Subscribe(fn func(Change)) (cancel func()) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscriber{id: id, fn: fn})

	return func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) notify(c Change) {
	e.subsMu.Lock()
	subs := slices.Clone(e.subs)
	e.subsMu.Unlock()

	for _, s := range subs {
		recovery.Recover(e.logger, "query change observer", func() { s.fn(c) })
	}
}

// Mute starts a batch: setters keep updating state but skip the refresh.
// Batches nest.
func (e *Engine) Mute() {
	e.mu.Lock()
	e.muted++
	e.mu.Unlock()
}

// Unmute ends a batch. Leaving the outermost batch runs exactly one Update,
// however many mutations happened inside it. Unmute outside a batch does
// nothing.
func (e *Engine) Unmute(ctx context.Context) {
	e.mu.Lock()
	if e.muted == 0 {
		e.mu.Unlock()
		return
	}
	e.muted--
	fire := e.muted == 0
	e.mu.Unlock()

	if fire {
		e.Update(ctx)
	}
}

// Muted reports whether a batch is open.
func (e *Engine) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted > 0
}

// EditFilters applies several filter edits as one batch, then refreshes
// once.
func (e *Engine) EditFilters(ctx context.Context, edit func(m *filtermodel.Model) error) error {
	e.Mute()
	defer e.Unmute(ctx)
	return edit(e.filters)
}

// quietly runs fn muted and closes the batch without refreshing.
func (e *Engine) quietly(fn func()) {
	e.Mute()
	defer func() {
		e.mu.Lock()
		e.muted--
		e.mu.Unlock()
	}()
	fn()
}

func (e *Engine) onFilterChange(c filtermodel.Change) {
	if c.Op != filtermodel.OpCommitted {
		return
	}
	e.changed(context.Background())
}

// changed refreshes unless muted. Refreshes triggered without a caller
// context are bounded by the refresh timeout.
func (e *Engine) changed(ctx context.Context) {
	if e.Muted() {
		return
	}
	if e.refreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.refreshTimeout)
		defer cancel()
	}
	e.Update(ctx)
}

// Reset starts over: fresh filter tree, default step and pagination, no
// tables or variables. The connector is kept. Runs one Update.
func (e *Engine) Reset(ctx context.Context) {
	e.Mute()
	e.mu.Lock()
	e.initState()
	e.mu.Unlock()
	e.filters.Reset(nil)
	e.Unmute(ctx)
}

// IsValid reports whether the engine can run queries: base table,
// editable table and connector are all set.
func (e *Engine) IsValid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isValid()
}

func (e *Engine) isValid() bool {
	return e.baseTable != "" && e.editableTable != "" && e.connector != nil
}

// ToDo lists the missing prerequisites, for user feedback.
func (e *Engine) ToDo() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var todo []string
	if e.connector == nil {
		todo = append(todo, "Please select a datalake")
	}
	if e.baseTable == "" {
		todo = append(todo, "Please select a main table")
	}
	if e.editableTable == "" {
		todo = append(todo, "Please select a validation table")
	}
	return todo
}

// Update recomputes the current page. It is the only operation performing
// I/O and always emits exactly one Change. Failures are logged with the
// offending query text and leave the engine in the empty state.
func (e *Engine) Update(ctx context.Context) {
	e.mu.Lock()
	c := e.update(ctx)
	e.mu.Unlock()
	e.notify(c)
}

func (e *Engine) update(ctx context.Context) Change {
	e.clearResults()
	e.lastErr = nil

	if !e.isValid() {
		return e.snapshot()
	}

	conn, err := recovery.RecoverToValue(e.logger, "Conn", func() (Conn, error) {
		return e.connector.Conn(ctx)
	})
	if err != nil {
		e.fail("", err)
		return e.snapshot()
	}
	defer func() {
		if err := recovery.RecoverToError(e.logger, "Close", conn.Close); err != nil {
			e.logger.Warn("Failed to release connection", "error", err)
		}
	}()

	for run := 0; ; run++ {
		retry := e.run(ctx, conn)
		if !retry || run == maxClampRuns {
			break
		}
		e.clearResults()
	}
	return e.snapshot()
}

// run executes the page and count queries. It reports whether the current
// page was out of range and has been clamped, so the caller should run
// again.
func (e *Engine) run(ctx context.Context, conn Conn) (retry bool) {
	text := e.selectQuery(true)
	res, err := e.exec(ctx, conn, text)
	if err != nil {
		e.fail(text, err)
		return false
	}

	if len(res.Rows) > 0 {
		e.header = slices.Clone(res.Columns)
		e.rows = res.Rows
	} else if e.page <= 1 {
		return false
	}

	countText := e.countQuery()
	countRes, err := e.exec(ctx, conn, countText)
	if err == nil && (len(countRes.Rows) == 0 || len(countRes.Rows[0]) == 0) {
		err = errEmptyCount
	}
	if err == nil {
		e.rowCount, err = toInt(countRes.Rows[0][0])
	}
	if err != nil {
		e.clearResults()
		e.fail(countText, err)
		return false
	}

	e.pageCount = PageCount(e.rowCount, e.limit)
	if e.page > e.pageCount {
		e.logger.Debug("Page out of range, clamping", "page", e.page, "page_count", e.pageCount)
		e.setPage(e.pageCount)
		return true
	}
	return false
}

func (e *Engine) exec(ctx context.Context, conn Conn, text string) (*Result, error) {
	return recovery.RecoverToValue(e.logger, "Query", func() (*Result, error) {
		return conn.Query(ctx, text)
	})
}

func (e *Engine) fail(text string, err error) {
	e.logger.Error("Query execution failed", "error", err, "query", text)
	e.lastErr = &ExecutionError{Query: text, Err: err}
}

func (e *Engine) snapshot() Change {
	return Change{
		Valid:     e.isValid(),
		Err:       e.lastErr,
		RowCount:  e.rowCount,
		Page:      e.page,
		PageCount: e.pageCount,
	}
}

// Header returns the column names of the cached page.
func (e *Engine) Header() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.header)
}

// Rows returns the cached page. Row slices are shared with the engine and
// must not be modified.
func (e *Engine) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.rows)
}

// LastError returns the failure of the last Update, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// SetConnector sets the embedded engine connector and refreshes.
func (e *Engine) SetConnector(ctx context.Context, c Connector) {
	e.mu.Lock()
	e.connector = c
	e.mu.Unlock()
	e.changed(ctx)
}

// SetBaseTable sets the table expression queries read from, e.g.
// read_parquet(['a.parquet']), and refreshes.
func (e *Engine) SetBaseTable(ctx context.Context, table string) {
	e.mu.Lock()
	e.baseTable = table
	e.mu.Unlock()
	e.changed(ctx)
}

// BaseTable returns the base table expression.
func (e *Engine) BaseTable() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseTable
}

// SetEditableTable sets the secondary (validation) table name and refreshes.
func (e *Engine) SetEditableTable(ctx context.Context, name string) {
	e.mu.Lock()
	e.editableTable = name
	e.mu.Unlock()
	e.changed(ctx)
}

// EditableTable returns the secondary table name.
func (e *Engine) EditableTable() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editableTable
}

// SetStep replaces the query template and refreshes. The template text is
// derived once here and cached.
func (e *Engine) SetStep(ctx context.Context, step Step) error {
	text, err := step.Template()
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.step = step
	e.template = text
	e.mu.Unlock()
	e.changed(ctx)
	return nil
}

// Step returns the current step definition.
func (e *Engine) Step() Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// Variables returns a copy of the user variables.
func (e *Engine) Variables() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.variables)
}
