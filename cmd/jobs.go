package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/releaseradar/internal/server"
	"github.com/desertthunder/releaseradar/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve starts the nightly scheduler and the administrative HTTP server,
// stopping both cleanly on SIGINT/SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	app, err := r.build()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.scheduler.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	httpServer := server.New(r.config.Server, app.scheduler, app.entries, r.logger)

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("admin server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-serverErrors:
		app.scheduler.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	// Let an in-flight run settle so the execution log stays truthful.
	app.scheduler.Stop()

	return nil
}

// RunOnce executes one manual fleet run and exits non-zero on fleet-level failure.
func (r *Runner) RunOnce(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	var fromDate time.Time
	if from := cmd.String("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			return fmt.Errorf("invalid --from date %q, expected YYYY-MM-DD", from)
		}
		fromDate = parsed
	}

	app, err := r.build()
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.entries.EnsureIndex(); err != nil {
		return fmt.Errorf("failed to prepare execution log: %w", err)
	}

	summary, err := app.scheduler.ExecuteJob(ctx, tasks.RunOptions{Manual: true, FromDate: fromDate})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	r.writePlain("✓ Run complete\n")
	r.writePlain("Users synced: %d\n", summary.UsersSynced)
	r.writePlain("Users failed: %d\n", summary.UsersFailed)
	r.writePlain("Tracks added: %d\n", summary.TracksAdded)
	r.writePlain("Duration: %v\n", summary.Duration)
	return nil
}

// LogLatest prints the most recent execution log entry.
func (r *Runner) LogLatest(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	app, err := r.build()
	if err != nil {
		return err
	}
	defer app.close()

	entry, err := app.entries.Latest()
	if err != nil {
		return fmt.Errorf("failed to read execution log: %w", err)
	}
	if entry == nil {
		return r.writePlain("No runs recorded\n")
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"execution_time": entry.ExecutionTime(),
			"status":         entry.Status(),
			"duration_ms":    entry.DurationMS(),
			"error":          entry.Error(),
			"created_at":     entry.CreatedAt(),
		}, true)
	}

	r.writePlain("Last run: %s\n", entry.ExecutionTime().Format(time.RFC3339))
	r.writePlain("Status: %s\n", entry.Status())
	r.writePlain("Duration: %dms\n", entry.DurationMS())
	if entry.Error() != "" {
		r.writePlain("Error: %s\n", entry.Error())
	}
	return nil
}
