// Package commands implements the inventory command line.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/netinventory/internal/buildinfo"
	"github.com/JonMunkholm/netinventory/internal/config"
	"github.com/JonMunkholm/netinventory/internal/core"
	"github.com/JonMunkholm/netinventory/internal/importer"
	"github.com/JonMunkholm/netinventory/internal/lock"
	"github.com/JonMunkholm/netinventory/internal/logging"
	"github.com/JonMunkholm/netinventory/internal/store/postgres"
)

// app is the state shared by all subcommands once the root pre-run has
// loaded configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	// openStore connects the persistent store. The returned func releases it.
	openStore func(ctx context.Context) (core.Store, func(), error)

	// openLock returns the cross-process import lock, or nil when none is
	// configured.
	openLock func(ctx context.Context) (importer.ProcessLock, func(), error)
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}
	a.openStore = a.openPostgres
	a.openLock = a.openRedisLock
	return newRootCommand(a)
}

func newRootCommand(a *app) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:     "inventory",
		Short:   "Reconcile branch, contact and ATM spreadsheets into the network inventory",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			a.cfg = cfg
			a.logger = logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(
		newImportCommand(a),
		newNormalizeTIDsCommand(a),
		newStatsCommand(a),
		newMigrateCommand(a),
		newServeCommand(a),
	)

	return rootCmd
}

// openPostgres connects to DATABASE_URL.
func (a *app) openPostgres(ctx context.Context) (core.Store, func(), error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}

	pool, err := postgres.Connect(ctx, a.cfg.Database.URL, postgres.PoolOptions{
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: a.cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	a.logger.Debug("connected to database", "max_conns", a.cfg.Database.MaxConns)
	return postgres.New(pool), pool.Close, nil
}

// openRedisLock connects to REDIS_URL when it is set.
func (a *app) openRedisLock(ctx context.Context) (importer.ProcessLock, func(), error) {
	if a.cfg.Lock.RedisURL == "" {
		return nil, func() {}, nil
	}
	client, err := lock.Connect(ctx, a.cfg.Lock.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("import lock: %w", err)
	}
	a.logger.Debug("import lock enabled", "key", a.cfg.Lock.Key)
	return lock.New(client, a.cfg.Lock.Key), func() { client.Close() }, nil
}

// newRunner wraps im with the configured import lock. The returned func
// releases the lock's connection.
func (a *app) newRunner(ctx context.Context, im *importer.Importer, limiter *core.RunLimiter) (*importer.Runner, func(), error) {
	runner := importer.NewRunner(im, limiter)
	if a.openLock == nil {
		return runner, func() {}, nil
	}
	pl, closeLock, err := a.openLock(ctx)
	if err != nil {
		return nil, nil, err
	}
	if pl != nil {
		runner.WithLock(pl, a.cfg.Import.Timeout)
	}
	return runner, closeLock, nil
}
