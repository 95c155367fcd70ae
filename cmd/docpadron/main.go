package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/docpadron/docpadron/internal/api"
	"github.com/docpadron/docpadron/internal/classify"
	"github.com/docpadron/docpadron/internal/config"
	"github.com/docpadron/docpadron/internal/db"
	"github.com/docpadron/docpadron/internal/drive"
	"github.com/docpadron/docpadron/internal/scan"
	"github.com/docpadron/docpadron/internal/scheduler"
	"github.com/docpadron/docpadron/internal/store"
	"github.com/docpadron/docpadron/internal/worker"
)

// Injected at build time via -ldflags; defaults to "dev".
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Logging (initial, overridden below once config is loaded).
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("docpadron starting",
		"version", version,
		"log_level", cfg.LogLevel,
		"http_addr", cfg.HTTPAddr,
		"db_path", cfg.DBPath,
		"drive_id", cfg.DriveID)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}
	st := store.New(database)

	// Taxonomy: an external file wins over the embedded copy, so document
	// types can evolve without rebuilding the binary.
	var taxonomy *classify.Taxonomy
	if cfg.TaxonomyPath != "" {
		taxonomy, err = classify.LoadTaxonomy(cfg.TaxonomyPath)
	} else {
		taxonomy, err = classify.DefaultTaxonomy()
	}
	if err != nil {
		slog.Error("load taxonomy", "error", err)
		os.Exit(1)
	}
	classifier := classify.New(taxonomy)

	// Storage backend. DriveID doubles as the local root directory; the
	// employees folder is a path relative to it.
	provider := drive.WithRetry(drive.NewLocalProvider(cfg.DriveID))
	extractor := drive.PlainTextExtractor{}

	progress := scan.NewProgress()
	pause := time.Duration(cfg.Worker.EmployeePauseMs) * time.Millisecond
	scanner := scan.New(provider, st, progress, pause)

	wk := worker.New(st, classifier, scanner, provider, extractor, worker.Options{
		PollInterval: time.Duration(cfg.Worker.PollIntervalSecs) * time.Second,
		ScanInterval: time.Duration(cfg.Worker.ScanIntervalSecs) * time.Second,
		BatchSize:    cfg.Worker.BatchSize,
		MaxWorkers:   cfg.Worker.MaxWorkers,
		AutoScan:     cfg.Worker.AutoScan,
	})
	if cfg.DriveID != "" {
		wk.Configure(cfg.DriveID, cfg.EmployeesFolderID)
		wk.Start()
		defer wk.Stop()
	} else {
		slog.Warn("no drive configured; worker idle until POST /api/worker/start after configuration")
	}

	sched := scheduler.New()
	if cfg.Schedule != "" {
		if err := sched.SetScanJob(cfg.Schedule, func() {
			slog.Info("scheduled scan triggered")
			if err := wk.TriggerScan(context.Background()); err != nil {
				slog.Warn("scheduled scan", "error", err)
			}
		}); err != nil {
			slog.Warn("invalid cron expression", "expr", cfg.Schedule, "error", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.New(cfg.HTTPAddr, st, wk, scanner, sched, version)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("docpadron stopped")
}

// parseLogLevel converts a config string ("debug", "info", "warn", "error")
// to its slog.Level equivalent. Unknown values default to Info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
