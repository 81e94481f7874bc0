package lakeview

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/creasty/defaults"
)

// Config contains configuration for a lakeview Workspace.
type Config struct {
	// DataLakePath is the folder holding the parquet files and the
	// validation database.
	// OPTIONAL: If empty, the workspace uses an in-memory database and
	// parquet paths must be absolute.
	DataLakePath string `toml:"datalake_path"`

	// Database is the validation database name inside DataLakePath; the
	// file is <DataLakePath>/<Database>.db.
	// OPTIONAL: Defaults to "lakeview".
	Database string `toml:"database" default:"lakeview"`

	// Username is recorded on validation tables created by the workspace.
	// OPTIONAL: Defaults to $USER.
	Username string `toml:"username"`

	// PageSize is the initial limit of new queries.
	// OPTIONAL: Defaults to 10. MUST be positive when set.
	PageSize int `toml:"page_size" default:"10"`

	// QueryTimeout bounds refreshes triggered by filter edits, which carry
	// no caller context.
	// OPTIONAL: Defaults to 30s. 0 after defaults means no timeout.
	QueryTimeout time.Duration `toml:"query_timeout" default:"30s"`

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger `toml:"-"`

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level `toml:"-"`
}

// Standard errors returned by the lakeview package.
var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid lakeview config")

	// ErrQueryNotFound indicates a named query lookup failed.
	ErrQueryNotFound = errors.New("query not found")
)

// applyDefaults fills unset fields from their default tags.
func applyDefaults(config *Config) error {
	if err := defaults.Set(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if config.Username == "" {
		config.Username = os.Getenv("USER")
	}
	return nil
}

// validateConfig checks that Config fields are valid after defaults.
func validateConfig(config Config) error {
	if config.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", config.PageSize)
	}
	if config.QueryTimeout < 0 {
		return fmt.Errorf("query timeout must not be negative, got %s", config.QueryTimeout)
	}
	if config.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.DataLakePath != "" {
		info, err := os.Stat(config.DataLakePath)
		if err != nil {
			return fmt.Errorf("datalake path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("datalake path %s is not a directory", config.DataLakePath)
		}
	}
	return nil
}

// newLogger returns config.Logger, or a text logger at config.LogLevel.
func newLogger(config Config) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}
