package app

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/config"
	"grn-sheet-sync-go/internal/db"
	"grn-sheet-sync-go/internal/handlers"
	"grn-sheet-sync-go/internal/metrics"
	"grn-sheet-sync-go/internal/report"
	"grn-sheet-sync-go/internal/repository"
	"grn-sheet-sync-go/internal/scheduler"
	"grn-sheet-sync-go/internal/server"
	"grn-sheet-sync-go/internal/sheets"
	"grn-sheet-sync-go/internal/workflow"
)

// Options are the command line settings.
type Options struct {
	ConfigPath string
	Once       bool
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// Run initializes and starts the application
func Run(opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogging(cfg.App.LogLevel)
	logrus.Infof("Starting %s", cfg.App.Name)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	repo := repository.New(dbConn)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	var cl closers
	defer func() { cl.Close() }()

	runner, err := buildRunner(ctx, cfg, repo, m, &cl)
	if err != nil {
		return err
	}

	if opts.Once || cfg.Scheduler.Once {
		summary, err := runner.Run(ctx)
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		logrus.Infof("Run %s finished with status %s", summary.RunID, summary.Status)
		return nil
	}

	sched := scheduler.NewScheduler(cfg.Scheduler, runner)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	var srv *http.Server
	if cfg.Server.Enabled {
		h := handlers.NewHandlers(repo, sched, runner, prometheus.DefaultGatherer)
		srv = &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      server.SetupRouter(h),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		go func() {
			logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.Fatalf("HTTP server error: %v", err)
			}
		}()
	}

	<-ctx.Done()

	logrus.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.Errorf("HTTP server shutdown error: %v", err)
		}
	}

	logrus.Info("Stopped gracefully")
	return nil
}

func buildRunner(ctx context.Context, cfg *config.Config, repo *repository.Repository, m *metrics.Metrics, cl *closers) (*workflow.Runner, error) {
	source, sender, err := newMailbox(ctx, cfg, cl)
	if err != nil {
		return nil, err
	}
	store, err := newStorage(ctx, cfg, cl)
	if err != nil {
		return nil, err
	}
	svc, spreadsheetID, err := newSheets(ctx, cfg, cl)
	if err != nil {
		return nil, err
	}

	sc := cfg.Sheet
	table := func(id, name string) *sheets.Table {
		return sheets.NewTable(svc, id, name, sc.AppendAttempts, sc.AppendBackoff)
	}
	reports := report.NewWriter(
		table(orDefault(sc.WorkflowLogSheetID, spreadsheetID), sc.WorkflowLogSheet),
		table(spreadsheetID, sc.FailedExtractionsSheet),
		table(orDefault(sc.RemainingFilesSheetID, spreadsheetID), sc.RemainingFilesSheet),
	)

	mail := workflow.NewMailToStorage(cfg.Mail, source, store, repo, m)
	sheet := workflow.NewStorageToSheet(sc, cfg.Extraction, store, newResolver(cfg, cl), table(spreadsheetID, sc.SheetRange), reports, m)

	if !cfg.Notification.Enabled {
		sender = nil
	}
	return workflow.NewRunner(cfg, mail, sheet, reports, sender, repo, m), nil
}
