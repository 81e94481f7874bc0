package duck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hugr-lab/lakeview/internal/sqlutil"
)

// Catalog objects created by Bootstrap.
const (
	ValidationsTable = "validations"
	CommentType      = "COMMENT"
)

// ErrInvalidValidation is returned for a ValidationSpec missing required
// fields.
var ErrInvalidValidation = errors.New("invalid validation")

// ValidationSpec describes a new validation table.
type ValidationSpec struct {
	// REQUIRED
	Name string
	// REQUIRED
	Method string
	// REQUIRED: the files the validation covers.
	ParquetFiles []string

	Username    string
	SampleNames []string
	GeneNames   []string
}

// Validation is one row of the validations catalog.
type Validation struct {
	TableName    string
	Name         string
	Method       string
	Username     string
	ParquetFiles []string
	CreatedAt    time.Time
	Completed    bool
}

// Bootstrap creates the validations catalog table and the COMMENT struct
// type, unless they already exist.
func (d *DB) Bootstrap(ctx context.Context) error {
	var types int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM duckdb_types() WHERE lower(type_name) = lower(?)", CommentType,
	).Scan(&types)
	if err != nil {
		return fmt.Errorf("failed to look up type %s: %w", CommentType, err)
	}
	if types == 0 {
		stmt := "CREATE TYPE " + sqlutil.QuoteIdentifier(CommentType) +
			" AS STRUCT(comment TEXT, username TEXT, creation_timestamp TIMESTAMP)"
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create type %s: %w", CommentType, err)
		}
	}

	stmt := "CREATE TABLE IF NOT EXISTS " + ValidationsTable + ` (
		parquet_files TEXT[],
		sample_names TEXT[],
		gene_names TEXT[],
		username TEXT,
		validation_name TEXT,
		table_uuid TEXT,
		creation_date TIMESTAMP,
		completed BOOLEAN,
		validation_method TEXT
	)`
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create %s table: %w", ValidationsTable, err)
	}
	return nil
}

// CreateValidationTable creates a fresh validation_<uuid> table, registers
// it in the catalog and returns its name. Both happen in one transaction.
func (d *DB) CreateValidationTable(ctx context.Context, spec ValidationSpec) (string, error) {
	if spec.Name == "" || spec.Method == "" {
		return "", fmt.Errorf("%w: name and method are required", ErrInvalidValidation)
	}
	if len(spec.ParquetFiles) == 0 {
		return "", fmt.Errorf("%w: %w", ErrInvalidValidation, ErrNoParquetFiles)
	}

	name := "validation_" + strings.ReplaceAll(uuid.NewString(), "-", "_")

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := "INSERT INTO " + ValidationsTable + " VALUES (" +
		sqlutil.LiteralList(spec.ParquetFiles) + ", " +
		sqlutil.LiteralList(spec.SampleNames) + ", " +
		sqlutil.LiteralList(spec.GeneNames) + ", ?, ?, ?, now(), FALSE, ?)"
	if _, err := tx.ExecContext(ctx, insert, spec.Username, spec.Name, name, spec.Method); err != nil {
		return "", fmt.Errorf("failed to register validation %q: %w", spec.Name, err)
	}

	create := "CREATE TABLE " + name + " (accepted BOOLEAN, comment " +
		sqlutil.QuoteIdentifier(CommentType) + ", tags TEXT[])"
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return "", fmt.Errorf("failed to create validation table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit validation %q: %w", spec.Name, err)
	}
	d.logger.Info("Created validation table", "table", name, "validation", spec.Name)
	return name, nil
}

// TableExists reports whether a table named name exists in the database.
func (d *DB) TableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?", name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %q: %w", name, err)
	}
	return n > 0, nil
}

// Validations lists the catalog, oldest first.
func (d *DB) Validations(ctx context.Context) ([]Validation, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT table_uuid, validation_name, validation_method, "+
		"coalesce(username, ''), parquet_files, creation_date, completed FROM "+ValidationsTable+
		" ORDER BY creation_date, table_uuid")
	if err != nil {
		return nil, fmt.Errorf("failed to list validations: %w", err)
	}
	defer rows.Close()

	var out []Validation
	for rows.Next() {
		var (
			v     Validation
			files any
		)
		if err := rows.Scan(&v.TableName, &v.Name, &v.Method, &v.Username, &files, &v.CreatedAt, &v.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan validation: %w", err)
		}
		v.ParquetFiles = stringList(files)
		out = append(out, v)
	}
	return out, rows.Err()
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
