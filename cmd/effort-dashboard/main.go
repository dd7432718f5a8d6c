package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"effort-dashboard/internal/app"
	"effort-dashboard/internal/config"
	"effort-dashboard/internal/migrate"
)

func main() {
	// Flags
	once := flag.Bool("once", false, "Build a single project report, print it as JSON and exit")
	runMigrations := flag.Bool("migrate", false, "Apply the dev/e2e schema to the configured MySQL database and exit")
	from := flag.String("from", "", "Report start date, RFC3339 or YYYY-MM-DD (default: now - 30d)")
	to := flag.String("to", "", "Report end date, RFC3339 or YYYY-MM-DD (default: today)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	// Logger
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *runMigrations {
		if err := migrate.Run(ctx, cfg.MySQL.DSN, logger); err != nil {
			logger.Error("migrate failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("migrations applied")
		return
	}

	// Report window flags (accept RFC3339 or date-only YYYY-MM-DD)
	now := time.Now().UTC()
	toTime := parseDate(*to, now, logger)
	fromTime := parseDate(*from, toTime.AddDate(0, 0, -30), logger)

	application, err := app.New(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to initialize app", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer application.Close()

	if *once {
		rep, err := application.Engine().ProjectReport(ctx, fromTime, toTime)
		if err != nil {
			logger.Error("report failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			logger.Error("encode failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	// Serve mode (default)
	srv := application.HTTPServer(cfg.HTTP.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()
	logger.Info("serving reports", slog.String("addr", cfg.HTTP.Addr))

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
}

// parseDate parses a report boundary that may be RFC3339 or YYYY-MM-DD.
// If empty, defaultVal is returned.
func parseDate(val string, defaultVal time.Time, log *slog.Logger) time.Time {
	if val == "" {
		return defaultVal
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if d, err := time.Parse("2006-01-02", val); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	log.Error("invalid date flag, expected RFC3339 or YYYY-MM-DD", slog.String("value", val))
	os.Exit(1)
	return time.Time{}
}
