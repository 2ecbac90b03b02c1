package cmd

import (
	"fmt"

	"github.com/harrison/benchmaker/internal/config"
	"github.com/harrison/benchmaker/internal/logger"
	"github.com/harrison/benchmaker/internal/store"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// rootOptions holds the persistent flags shared by every subcommand
type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string
}

// NewRootCommand creates and returns the root cobra command for benchmaker
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "benchmaker",
		Short: "Local storage for model benchmark suites and runs",
		Long: `Benchmaker keeps test suites, benchmark runs and their per-case results
in a local SQLite database.

Every command opens the database, upgrading its schema if needed, performs
one operation and closes it. Entities are read and written as JSON.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: $BENCHMAKER_HOME/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Database file (default: $BENCHMAKER_HOME/benchmaker.sqlite)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (trace|debug|info|warn|error)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSuitesCommand(opts))
	cmd.AddCommand(newRunsCommand(opts))
	cmd.AddCommand(newStateCommand(opts))
	cmd.AddCommand(newSnapshotCommand(opts))

	return cmd
}

// loadConfig resolves the effective configuration: file, then flags.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadConfig(o.configPath)
	} else {
		cfg, err = config.LoadDefaultConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var dbFlag, levelFlag *string
	if cmd.Flags().Changed("db") {
		dbFlag = &o.dbPath
	}
	if cmd.Flags().Changed("log-level") {
		levelFlag = &o.logLevel
	}
	cfg.MergeWithFlags(dbFlag, levelFlag)

	if err := cfg.ResolveDBPath(); err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured database. Diagnostics go to stderr so
// stdout stays valid JSON.
func (o *rootOptions) openStore(cmd *cobra.Command) (*store.Store, *logger.ConsoleLogger, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	log.LogDebug(fmt.Sprintf("Opening database %s", cfg.DBPath))

	s, err := store.Open(cfg.DBPath, store.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", cfg.DBPath, err)
	}
	return s, log, nil
}

// withStore opens the store, runs fn and closes the store.
func (o *rootOptions) withStore(cmd *cobra.Command, fn func(s *store.Store, log *logger.ConsoleLogger) error) error {
	s, log, err := o.openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s, log)
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the database schema and print its version",
		Long: `Open the database, applying any pending schema migrations, and print
the installed schema version.

A database written by an older release that kept everything in a single
snapshot document is converted to the current tables on first open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(s *store.Store, _ *logger.ConsoleLogger) error {
				version, err := s.SchemaVersion(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to read schema version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
				return nil
			})
		},
	}
}
