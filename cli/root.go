// Package cli holds the storefront command line: the HTTP server and the
// maintenance commands that share its configuration.
package cli

import (
	"fmt"
	"log/slog"

	"storefront/config"
	"storefront/db"
	"storefront/store"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands. Empty values fall back to
// the environment.
type RootOptions struct {
	DBPath      string
	DatabaseURL string
	Verbose     bool
}

// NewRootCommand creates the root command for the storefront CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront - online shop backend",
		Long:  "Catalog, cart, checkout and admin API for a small online shop.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "sqlite database file (overrides DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", "", "postgres DSN (overrides DATABASE_URL)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output, including SQL")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewCreateUserCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig(opts *RootOptions) *config.Config {
	cfg := config.Load()
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
		cfg.DatabaseURL = ""
	}
	if opts.DatabaseURL != "" {
		cfg.DatabaseURL = opts.DatabaseURL
	}
	return cfg
}

func dbOptions(cfg *config.Config, opts *RootOptions) db.Options {
	return db.Options{DatabaseURL: cfg.DatabaseURL, Path: cfg.DBPath, Debug: opts.Verbose}
}

// openStore connects, migrates and returns the store with a close func.
func openStore(cfg *config.Config, opts *RootOptions) (*store.Store, func(), error) {
	gdb, err := db.InitDatabase(dbOptions(cfg, opts))
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	closeFn := func() {
		if err := sqlDB.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}
	return store.New(gdb), closeFn, nil
}
