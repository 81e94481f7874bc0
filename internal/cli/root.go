// Package cli implements the lakeview command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/lakeview"
	"github.com/hugr-lab/lakeview/query"
)

var (
	// Global flags
	configPath   string
	dataLakeFlag string
	sessionFlag  string
	logLevelFlag string

	// Resolved values
	cfg         lakeview.Config
	sessionPath string
)

var rootCmd = &cobra.Command{
	Use:   "lakeview",
	Short: "Filter and page through parquet files in a datalake",
	Long: `lakeview runs filtered, paginated queries over the parquet files of a
datalake folder. Queries, their filters and their cached pages live in a
session file that every command reads and most commands write back.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "completion", "help":
			return nil
		}

		fc, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = fc.Config
		sessionPath = fc.Session

		if dataLakeFlag != "" {
			cfg.DataLakePath = dataLakeFlag
		}
		if sessionFlag != "" {
			sessionPath = sessionFlag
		}
		if logLevelFlag != "" {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevelFlag)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			cfg.LogLevel = &level
		}
		if cfg.LogLevel == nil {
			level := slog.LevelWarn
			cfg.LogLevel = &level
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/lakeview/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataLakeFlag, "datalake", "", "Datalake folder holding the parquet files")
	rootCmd.PersistentFlags().StringVarP(&sessionFlag, "session", "s", "", "Session file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
}

// openWorkspace opens the configured session, or a fresh workspace when
// the session file does not exist yet.
func openWorkspace(ctx context.Context) (*lakeview.Workspace, error) {
	if sessionPath == "" {
		return nil, errors.New("no session file: use --session or set session in the config file")
	}
	if _, err := os.Stat(sessionPath); os.IsNotExist(err) {
		return lakeview.Open(ctx, cfg)
	}
	return lakeview.OpenSession(ctx, cfg, sessionPath)
}

// openQuery opens the session and returns the named query.
func openQuery(ctx context.Context, name string) (*lakeview.Workspace, *query.Engine, error) {
	ws, err := openWorkspace(ctx)
	if err != nil {
		return nil, nil, err
	}
	e, err := ws.Query(name)
	if err != nil {
		_ = ws.Close()
		return nil, nil, fmt.Errorf("%w\n\nRun 'lakeview query list' to see the session's queries", err)
	}
	return ws, e, nil
}
