package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/netinventory/internal/core"
	"github.com/JonMunkholm/netinventory/internal/importer"
	"github.com/JonMunkholm/netinventory/internal/web"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the import API and run scheduled imports",
		Long: `Serve exposes the import trigger, latest run result, inventory counts and
row journal over HTTP. When IMPORT_INTERVAL is set, imports also run on
that schedule. Only one import runs at a time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	im := a.newImporter(store, configuredSources(&a.cfg.Import))
	limiter := core.NewRunLimiter(1, a.cfg.Import.MaxWaitTime)
	runner, closeLock, err := a.newRunner(ctx, im, limiter)
	if err != nil {
		return err
	}
	defer closeLock()

	server := web.NewServer(runner, store, im.Journal, a.cfg)

	a.logger.Info("configuration loaded",
		"port", a.cfg.Server.Port,
		"db_max_conns", a.cfg.Database.MaxConns,
		"import_interval", a.cfg.Import.Interval.String(),
		"require_api_key", a.cfg.Security.RequireAPIKey,
		"import_lock", a.cfg.Lock.RedisURL != "",
	)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if a.cfg.Import.Interval > 0 {
		go runner.StartScheduler(jobCtx, a.cfg.Import.Interval, importer.RunOptions{})
	}

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for a running import to finish (with timeout)
		if st := limiter.Status(); st.Active > 0 {
			slog.Info("waiting for import to complete", "active", st.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("import did not complete in time", "error", err)
			} else {
				slog.Info("import completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", a.cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	slog.Info("server stopped")
	return nil
}
