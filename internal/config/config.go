package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds environment-driven configuration.
type Config struct {
	ClickUp struct {
		APIToken string
		TeamID   string
		BaseURL  string // default: https://api.clickup.com
	}
	Ivanti struct {
		BaseURL string // empty disables the ticket source
		APIKey  string
	}
	MySQL struct {
		DSN string // e.g., user:pass@tcp(host:3306)/timetrack?parseTime=true&multiStatements=true
	}
	Report struct {
		MinDate          time.Time // floor for the previous-period window
		TaskFetchWorkers int
	}
	HTTP struct {
		Addr             string
		AuthUser         string // optional; both auth vars must be set together
		AuthPasswordHash string // bcrypt hash
	}
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config

	cfg.ClickUp.APIToken = os.Getenv("CLICKUP_API_TOKEN")
	if cfg.ClickUp.APIToken == "" {
		return cfg, errors.New("CLICKUP_API_TOKEN is required")
	}
	cfg.ClickUp.TeamID = os.Getenv("CLICKUP_TEAM_ID")
	if cfg.ClickUp.TeamID == "" {
		return cfg, errors.New("CLICKUP_TEAM_ID is required")
	}
	cfg.ClickUp.BaseURL = os.Getenv("CLICKUP_BASE_URL")
	if cfg.ClickUp.BaseURL == "" {
		cfg.ClickUp.BaseURL = "https://api.clickup.com"
	}

	cfg.Ivanti.BaseURL = os.Getenv("IVANTI_BASE_URL")
	cfg.Ivanti.APIKey = os.Getenv("IVANTI_API_KEY")
	if cfg.Ivanti.BaseURL != "" && cfg.Ivanti.APIKey == "" {
		return cfg, errors.New("IVANTI_API_KEY is required when IVANTI_BASE_URL is set")
	}

	cfg.MySQL.DSN = os.Getenv("MYSQL_DSN")
	if cfg.MySQL.DSN == "" {
		return cfg, errors.New("MYSQL_DSN is required")
	}

	if v := os.Getenv("REPORT_MIN_DATE"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return cfg, errors.New("REPORT_MIN_DATE must be YYYY-MM-DD")
		}
		cfg.Report.MinDate = d
	}
	if v := os.Getenv("REPORT_TASK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, errors.New("REPORT_TASK_WORKERS must be a positive integer")
		}
		cfg.Report.TaskFetchWorkers = n
	}

	cfg.HTTP.Addr = os.Getenv("HTTP_ADDR")
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	cfg.HTTP.AuthUser = os.Getenv("REPORT_AUTH_USER")
	cfg.HTTP.AuthPasswordHash = os.Getenv("REPORT_AUTH_PASSWORD_HASH")
	if (cfg.HTTP.AuthUser == "") != (cfg.HTTP.AuthPasswordHash == "") {
		return cfg, errors.New("REPORT_AUTH_USER and REPORT_AUTH_PASSWORD_HASH must be set together")
	}

	return cfg, nil
}
