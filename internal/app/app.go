package app

import (
	"context"
	"log/slog"

	"effort-dashboard/internal/adapter/clickup"
	"effort-dashboard/internal/adapter/ivanti"
	msql "effort-dashboard/internal/adapter/mysql"
	"effort-dashboard/internal/auth"
	"effort-dashboard/internal/config"
	"effort-dashboard/internal/match"
	"effort-dashboard/internal/report"
)

// App wires adapters into the report engine.
type App struct {
	log    *slog.Logger
	engine *report.Engine
	auth   *auth.Verifier // nil when the report endpoints are open
	source *msql.Source
}

func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	pm := clickup.NewClient(cfg.ClickUp.BaseURL, cfg.ClickUp.APIToken, cfg.ClickUp.TeamID, log)
	source, err := msql.NewSource(ctx, cfg.MySQL.DSN, log)
	if err != nil {
		return nil, err
	}

	engine := &report.Engine{
		Log:              log,
		Projects:         pm,
		Tasks:            pm,
		TimeLogs:         source,
		Companies:        source,
		Categories:       source,
		Matcher:          match.New(),
		MinReportDate:    cfg.Report.MinDate,
		TaskFetchWorkers: cfg.Report.TaskFetchWorkers,
	}
	if cfg.Ivanti.BaseURL != "" {
		engine.Tickets = ivanti.NewClient(cfg.Ivanti.BaseURL, cfg.Ivanti.APIKey, log)
	} else {
		log.Info("ticket source not configured, reports exclude ticket effort")
	}

	a := &App{log: log, engine: engine, source: source}
	if cfg.HTTP.AuthUser != "" {
		verifier, err := auth.NewVerifier(cfg.HTTP.AuthUser, cfg.HTTP.AuthPasswordHash)
		if err != nil {
			source.Close()
			return nil, err
		}
		a.auth = verifier
	}
	return a, nil
}

// Engine exposes the report engine for the -once CLI mode.
func (a *App) Engine() *report.Engine { return a.engine }

// Close releases the database pool.
func (a *App) Close() error { return a.source.Close() }
