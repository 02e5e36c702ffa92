package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/campus-guardian/internal/app"
	"github.com/ogulcanaydogan/campus-guardian/internal/bus"
	"github.com/ogulcanaydogan/campus-guardian/internal/config"
	"github.com/ogulcanaydogan/campus-guardian/internal/scheduler"
	"github.com/ogulcanaydogan/campus-guardian/internal/server"
	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server, scheduled sweeps and the job bus",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}
	return Serve(cmd.Context(), cfg)
}

// Serve runs the daemon until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config) error {
	logger := app.NewLogger(cfg.Logging, os.Stderr)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	defaults := a.DefaultOptions()

	// The bus is created after the queue but the callback only fires once workers run.
	var events *bus.Bus
	queue := a.NewQueue(func(ev automation.Event) {
		if events != nil {
			events.Publish(ev)
		}
	})

	if cfg.Bus.Enabled {
		events, err = bus.Connect(cfg.Bus.URL, bus.Config{
			TriggerSubject:   cfg.Bus.TriggerSubject,
			CompletedSubject: cfg.Bus.CompletedSubject,
		}, queue, defaults, logger)
		if err != nil {
			return err
		}
		defer events.Close()
		if err := events.Start(); err != nil {
			return err
		}
	}

	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Schedule.Enabled {
		sched := scheduler.New(queue, []scheduler.Entry{
			{Job: automation.JobStockMonitor, Interval: cfg.Schedule.StockInterval},
			{Job: automation.JobBudgetMonitor, Interval: cfg.Schedule.BudgetInterval},
		}, defaults, logger)
		go sched.Run(ctx)
	}

	api := server.NewServer(server.Deps{
		Alerts:   a.Ledger,
		Stats:    a.Stats,
		Queue:    queue,
		History:  a.Store,
		Defaults: defaults,
	}, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return listen(ctx, srv, logger)
}

func listen(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("guardian started", "listen", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("guardian stopped")
	return nil
}
