package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"effort-dashboard/internal/domain"
	"effort-dashboard/internal/report"
)

const dateOnly = "2006-01-02"

// HTTPServer returns a configured http.Server exposing the report
// endpoints. Call ListenAndServe on it in a goroutine and Shutdown on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(a.log))
	r.Use(recoveryMiddleware(a.log))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if a.auth != nil {
			r.Use(a.basicAuth)
		}
		r.Get("/reports/projects", a.handleProjectReport)
		r.Get("/reports/projects/{key}", a.handleProjectDetail)
		r.Get("/reports/users/{user}", a.handleUserReport)
	})

	srv := &http.Server{Addr: addr, Handler: r}
	a.log.Info("report server configured", slog.String("addr", addr))
	return srv
}

// handleProjectReport serves GET /reports/projects?from=...&to=...
// from/to accept RFC3339 or YYYY-MM-DD. If omitted, the range defaults to
// the last 30 days.
func (a *App) handleProjectReport(w http.ResponseWriter, r *http.Request) {
	from, to := parseRange(r)
	ctx, cancel := requestContext(r)
	defer cancel()

	rep, err := a.engine.ProjectReport(ctx, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

func (a *App) handleUserReport(w http.ResponseWriter, r *http.Request) {
	from, to := parseRange(r)
	ctx, cancel := requestContext(r)
	defer cancel()

	rep, err := a.engine.UserReport(ctx, chi.URLParam(r, "user"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

func (a *App) handleProjectDetail(w http.ResponseWriter, r *http.Request) {
	from, to := parseRange(r)
	ctx, cancel := requestContext(r)
	defer cancel()

	detail, err := a.engine.ProjectDetail(ctx, chi.URLParam(r, "key"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailDTO(detail))
}

// parseRange extracts the report window from the query. Defaults to the
// last 30 days when omitted; invalid values fall back to the default rather
// than hard-failing.
func parseRange(r *http.Request) (time.Time, time.Time) {
	q := r.URL.Query()
	now := time.Now().UTC()
	to := parseDay(q.Get("to"), now)
	from := parseDay(q.Get("from"), to.AddDate(0, 0, -30))
	return from, to
}

func parseDay(val string, defaultVal time.Time) time.Time {
	if val == "" {
		return defaultVal
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if d, err := time.Parse(dateOnly, val); err == nil {
		return d
	}
	return defaultVal
}

// requestContext applies an optional ?timeout=5m override so expensive
// reports can be bounded by the caller.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := r.Context()
	if tStr := r.URL.Query().Get("timeout"); tStr != "" {
		if d, err := time.ParseDuration(tStr); err == nil && d > 0 {
			return context.WithTimeout(ctx, d)
		}
	}
	return ctx, func() {}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, report.ErrNoDateRange),
		errors.Is(err, report.ErrNoMatcher),
		errors.Is(err, report.ErrNoUser),
		errors.Is(err, report.ErrNoProjectKey):
		status = http.StatusBadRequest
	case errors.Is(err, report.ErrProjectNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Middleware.

type ctxKey string

const requestIDKey ctxKey = "request_id"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			id, _ := r.Context().Value(requestIDKey).(string)
			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.String("request_id", id),
				slog.Duration("dur", time.Since(start)),
			)
		})
	}
}

func recoveryMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered", slog.Any("panic", rec))
					writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func (a *App) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || a.auth.Verify(user, pass) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="effort-dashboard"`)
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DTOs: hour figures are rounded here, at the presentation boundary, never
// during accumulation.

type varianceRecordDTO struct {
	ProjectKey       string   `json:"project_key"`
	ProjectName      string   `json:"project_name"`
	EstimatedHours   float64  `json:"estimated_hours"`
	ActualHours      float64  `json:"actual_hours"`
	TimeTrackerHours float64  `json:"actual_hours_timetracker"`
	TicketHours      float64  `json:"actual_hours_ivanti"`
	EntryCount       int      `json:"entry_count"`
	ContributorCount int      `json:"contributor_count"`
	TicketCount      int      `json:"ticket_count"`
	VarianceHours    float64  `json:"variance_hours"`
	CompletionPct    int      `json:"completion_percentage"`
	Status           string   `json:"status"`
	MatchedBy        []string `json:"matched_by"` // null when nothing matched
	PrevActualHours  float64  `json:"previous_actual_hours"`
	DeltaHours       float64  `json:"delta_hours"`
	DeltaPct         *float64 `json:"delta_pct"` // null when the previous period had no hours
}

type summaryDTO struct {
	ProjectCount        int     `json:"project_count"`
	TotalEstimatedHours float64 `json:"total_estimated_hours"`
	TotalActualHours    float64 `json:"total_actual_hours"`
	TotalVarianceHours  float64 `json:"total_variance_hours"`
	UnderBudgetCount    int     `json:"under_budget_count"`
	OverBudgetCount     int     `json:"over_budget_count"`
	OnTrackCount        int     `json:"on_track_count"`
	AnomalousRowCount   int     `json:"anomalous_row_count"`
}

type reportDTO struct {
	From     string              `json:"from"`
	To       string              `json:"to"`
	PrevFrom string              `json:"previous_from,omitempty"`
	PrevTo   string              `json:"previous_to,omitempty"`
	Records  []varianceRecordDTO `json:"records"`
	Summary  summaryDTO          `json:"summary"`
	Warnings []string            `json:"warnings,omitempty"`
}

type entryDetailDTO struct {
	Date      string  `json:"date"`
	UserName  string  `json:"user_name"`
	UserEmail string  `json:"user_email"`
	Category  string  `json:"category"`
	Hours     float64 `json:"hours"`
	MatchedBy string  `json:"matched_by"`
}

type userHoursDTO struct {
	UserID     int64   `json:"user_id"`
	UserName   string  `json:"user_name"`
	UserEmail  string  `json:"user_email"`
	Hours      float64 `json:"hours"`
	EntryCount int     `json:"entry_count"`
}

type ticketDTO struct {
	Number      string   `json:"ticket_number"`
	Category    string   `json:"category"`
	Company     string   `json:"company"`
	Status      string   `json:"status"`
	EffortHours float64  `json:"effort_hours"`
	TaskCount   int      `json:"task_count"`
	Tasks       []string `json:"tasks,omitempty"`
}

type detailDTO struct {
	Record   varianceRecordDTO `json:"record"`
	Entries  []entryDetailDTO  `json:"entries"`
	Users    []userHoursDTO    `json:"users"`
	Tickets  []ticketDTO       `json:"tickets"`
	Warnings []string          `json:"warnings,omitempty"`
}

func toRecordDTO(rec domain.VarianceRecord) varianceRecordDTO {
	dto := varianceRecordDTO{
		ProjectKey:       rec.ProjectKey,
		ProjectName:      rec.ProjectName,
		EstimatedHours:   report.Round2(rec.EstimatedHours),
		ActualHours:      report.Round2(rec.ActualHours),
		TimeTrackerHours: report.Round2(rec.TimeTrackerHours),
		TicketHours:      report.Round2(rec.TicketHours),
		EntryCount:       rec.EntryCount,
		ContributorCount: rec.ContributorCount,
		TicketCount:      rec.TicketCount,
		VarianceHours:    report.Round2(rec.VarianceHours),
		CompletionPct:    rec.CompletionPct,
		Status:           rec.Status,
		PrevActualHours:  report.Round2(rec.PrevActualHours),
		DeltaHours:       report.Round2(rec.DeltaHours),
	}
	for _, s := range rec.MatchedBy {
		dto.MatchedBy = append(dto.MatchedBy, string(s))
	}
	if rec.DeltaPct != nil {
		pct := report.Round2(*rec.DeltaPct)
		dto.DeltaPct = &pct
	}
	return dto
}

func toReportDTO(rep *domain.Report) reportDTO {
	dto := reportDTO{
		From: rep.From.Format(dateOnly),
		To:   rep.To.Format(dateOnly),
		Summary: summaryDTO{
			ProjectCount:        rep.Summary.ProjectCount,
			TotalEstimatedHours: report.Round2(rep.Summary.TotalEstimatedHours),
			TotalActualHours:    report.Round2(rep.Summary.TotalActualHours),
			TotalVarianceHours:  report.Round2(rep.Summary.TotalVarianceHours),
			UnderBudgetCount:    rep.Summary.UnderBudgetCount,
			OverBudgetCount:     rep.Summary.OverBudgetCount,
			OnTrackCount:        rep.Summary.OnTrackCount,
			AnomalousRowCount:   rep.Summary.AnomalousRowCount,
		},
		Warnings: rep.Warnings,
		Records:  make([]varianceRecordDTO, 0, len(rep.Records)),
	}
	if !rep.PrevFrom.IsZero() {
		dto.PrevFrom = rep.PrevFrom.Format(dateOnly)
		dto.PrevTo = rep.PrevTo.Format(dateOnly)
	}
	for _, rec := range rep.Records {
		dto.Records = append(dto.Records, toRecordDTO(rec))
	}
	return dto
}

func toDetailDTO(detail *domain.ProjectDetail) detailDTO {
	dto := detailDTO{
		Record:   toRecordDTO(detail.Record),
		Warnings: detail.Warnings,
	}
	for _, e := range detail.Entries {
		dto.Entries = append(dto.Entries, entryDetailDTO{
			Date:      e.Date.Format(dateOnly),
			UserName:  e.UserName,
			UserEmail: e.UserEmail,
			Category:  e.Category,
			Hours:     report.Round2(e.Hours),
			MatchedBy: string(e.MatchedBy),
		})
	}
	for _, u := range detail.Users {
		dto.Users = append(dto.Users, userHoursDTO{
			UserID:     u.UserID,
			UserName:   u.UserName,
			UserEmail:  u.UserEmail,
			Hours:      report.Round2(u.Hours),
			EntryCount: u.EntryCount,
		})
	}
	for _, t := range detail.Tickets {
		dto.Tickets = append(dto.Tickets, ticketDTO{
			Number:      t.Number,
			Category:    t.Category,
			Company:     t.Company,
			Status:      t.Status,
			EffortHours: report.Round2(t.EffortHours),
			TaskCount:   t.TaskCount,
			Tasks:       t.Tasks,
		})
	}
	return dto
}
