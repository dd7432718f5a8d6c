package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"effort-dashboard/internal/domain"
	"effort-dashboard/internal/match"
)

// fakeData implements every source port over in-memory fixtures. The time
// log fake honors the requested range so previous-period fetches behave
// like the real adapter.
type fakeData struct {
	projects     []domain.Project
	projectsErr  error
	tasks        map[string][]domain.Task
	taskErr      map[string]error
	entries      []domain.TimeLogEntry
	entriesErr   error
	companies    []domain.Company
	companiesErr error
	categories   []domain.CategoryDefinition
	tickets      []domain.TicketRow
	ticketsErr   error
}

func (f *fakeData) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return f.projects, f.projectsErr
}

func (f *fakeData) ListTasks(ctx context.Context, key string) ([]domain.Task, error) {
	if err, ok := f.taskErr[key]; ok {
		return nil, err
	}
	return f.tasks[key], nil
}

func (f *fakeData) ListTimeLogs(ctx context.Context, from, to time.Time) ([]domain.TimeLogEntry, error) {
	if f.entriesErr != nil {
		return nil, f.entriesErr
	}
	var out []domain.TimeLogEntry
	for _, e := range f.entries {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeData) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	return f.companies, f.companiesErr
}

func (f *fakeData) ListCategories(ctx context.Context) ([]domain.CategoryDefinition, error) {
	return f.categories, nil
}

func (f *fakeData) ListTicketRows(ctx context.Context, from, to time.Time) ([]domain.TicketRow, error) {
	return f.tickets, f.ticketsErr
}

func newTestEngine(f *fakeData) *Engine {
	return &Engine{
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Projects:   f,
		Tasks:      f,
		TimeLogs:   f,
		Companies:  f,
		Categories: f,
		Tickets:    f,
		Matcher:    match.New(),
	}
}

func acmeFixture() *fakeData {
	return &fakeData{
		projects: []domain.Project{
			{Key: "2026-Acme", Name: "2026 - Acme - Portal"},
			{Key: "2026-Globex", Name: "2026 - Globex - Intranet"},
			{Key: "old", Name: "2020 - Initech - Legacy", Archived: true},
		},
		tasks: map[string][]domain.Task{
			"2026-Acme": {
				{Fields: []domain.CustomField{{Name: "ManHours Estimate", Number: num(40)}}},
				{Fields: []domain.CustomField{{Name: "Mandays Estimate", Number: num(2)}}},
			},
			"2026-Globex": {
				{Fields: []domain.CustomField{{Name: "manhours", Number: num(10)}}},
			},
		},
		entries: []domain.TimeLogEntry{
			{ID: 1, Date: feb2, RefNumber: "2026-Acme", StoredHours: 3, UserID: 1, UserEmail: "ana@example.com", UserName: "Ana", Category: "Development"},
			{ID: 2, Date: feb2, RefNumber: "2026-Acme", StoredHours: 2.5, UserID: 2, UserEmail: "bo@example.com", UserName: "Bo", Category: "7"},
			{
				ID: 3, Date: feb2, RefNumber: "2026-Acme", CompanyID: companyID(7),
				Start:  time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
				End:    time.Date(2026, 2, 2, 11, 30, 0, 0, time.UTC),
				UserID: 1, UserEmail: "ana@example.com", UserName: "Ana",
			},
			{ID: 4, Date: feb2.AddDate(0, 0, -10), RefNumber: "2026-Acme", StoredHours: 4, UserID: 1, UserEmail: "ana@example.com"},
		},
		companies: []domain.Company{{ID: 7, Name: "Acme"}, {ID: 8, Name: "Globex"}},
		categories: []domain.CategoryDefinition{
			{ID: 7, Name: "Support"},
			{ID: 9, Name: "Old", Deleted: true},
		},
		tickets: []domain.TicketRow{
			{Number: "T-1", Category: "Incident", Company: "ACME", EffortHours: 2, TaskDescription: "restart"},
		},
	}
}

func TestEngine_ConfigurationErrors(t *testing.T) {
	en := newTestEngine(acmeFixture())
	ctx := context.Background()

	if _, err := en.ProjectReport(ctx, time.Time{}, feb28); !errors.Is(err, ErrNoDateRange) {
		t.Errorf("expected ErrNoDateRange, got %v", err)
	}
	if _, err := en.ProjectReport(ctx, feb28, feb2); !errors.Is(err, ErrNoDateRange) {
		t.Errorf("expected ErrNoDateRange for inverted range, got %v", err)
	}
	if _, err := en.UserReport(ctx, "", feb2, feb28); !errors.Is(err, ErrNoUser) {
		t.Errorf("expected ErrNoUser, got %v", err)
	}
	if _, err := en.UserReport(ctx, "not-a-user", feb2, feb28); !errors.Is(err, ErrNoUser) {
		t.Errorf("expected ErrNoUser for unparseable user, got %v", err)
	}
	if _, err := en.ProjectDetail(ctx, "", feb2, feb28); !errors.Is(err, ErrNoProjectKey) {
		t.Errorf("expected ErrNoProjectKey, got %v", err)
	}
	if _, err := en.ProjectDetail(ctx, "nope", feb2, feb28); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}

	en.Matcher = nil
	if _, err := en.ProjectReport(ctx, feb2, feb28); !errors.Is(err, ErrNoMatcher) {
		t.Errorf("expected ErrNoMatcher, got %v", err)
	}
}

func TestEngine_ProjectReport(t *testing.T) {
	en := newTestEngine(acmeFixture())
	rep, err := en.ProjectReport(context.Background(), feb2, feb28)
	if err != nil {
		t.Fatalf("ProjectReport: %v", err)
	}

	if len(rep.Records) != 2 {
		t.Fatalf("expected 2 records (archived excluded), got %d", len(rep.Records))
	}
	// Acme: estimate 56, actual 8 tracked + 2 ticket = 10, |variance| 46.
	// Globex: estimate 10, actual 0, |variance| 10. Acme sorts first.
	acme := rep.Records[0]
	if acme.ProjectKey != "2026-Acme" {
		t.Fatalf("expected Acme first by |variance|, got %q", acme.ProjectKey)
	}
	if acme.EstimatedHours != 56 {
		t.Errorf("expected estimate 56, got %v", acme.EstimatedHours)
	}
	if acme.TimeTrackerHours != 8 {
		t.Errorf("expected 8 tracked hours with overlap removed, got %v", acme.TimeTrackerHours)
	}
	if acme.TicketHours != 2 {
		t.Errorf("expected 2 ticket hours, got %v", acme.TicketHours)
	}
	if acme.ActualHours != 10 {
		t.Errorf("expected actual 10, got %v", acme.ActualHours)
	}
	if acme.VarianceHours != 46 || acme.Status != domain.StatusUnderBudget {
		t.Errorf("expected variance 46 under_budget, got %v %q", acme.VarianceHours, acme.Status)
	}
	if acme.ContributorCount != 2 {
		t.Errorf("expected 2 contributors, got %d", acme.ContributorCount)
	}
	// The company-matched entry is fully absorbed by the overlap
	// subtraction, so only the reference strategy contributed net hours.
	if len(acme.MatchedBy) != 1 || acme.MatchedBy[0] != domain.MatchByReference {
		t.Errorf("expected reference-only matched_by, got %v", acme.MatchedBy)
	}

	globex := rep.Records[1]
	if globex.MatchedBy != nil {
		t.Errorf("expected nil matched_by for Globex, got %v", globex.MatchedBy)
	}
	if globex.CompletionPct != 0 {
		t.Errorf("expected completion 0, got %d", globex.CompletionPct)
	}

	if rep.Summary.ProjectCount != 2 || rep.Summary.UnderBudgetCount != 2 {
		t.Errorf("unexpected summary: %+v", rep.Summary)
	}
}

func TestEngine_PreviousPeriodDelta(t *testing.T) {
	en := newTestEngine(acmeFixture())
	// 4h were logged on Jan 23, inside the 27-day window preceding Feb 2.
	rep, err := en.ProjectReport(context.Background(), feb2, feb28)
	if err != nil {
		t.Fatalf("ProjectReport: %v", err)
	}
	acme := rep.Records[0]
	// Previous period also matches the ticket rows (fake has no row dates),
	// so prev = 4h tracked + 2h tickets.
	if acme.PrevActualHours != 6 {
		t.Errorf("expected previous actual 6, got %v", acme.PrevActualHours)
	}
	if acme.DeltaHours != 4 {
		t.Errorf("expected delta 4, got %v", acme.DeltaHours)
	}
	if acme.DeltaPct == nil {
		t.Fatal("expected delta pct with non-zero previous period")
	}
}

func TestEngine_PreviousWindowFloor(t *testing.T) {
	en := newTestEngine(acmeFixture())
	en.MinReportDate = feb2
	rep, err := en.ProjectReport(context.Background(), feb2, feb28)
	if err != nil {
		t.Fatalf("ProjectReport: %v", err)
	}
	if !rep.PrevFrom.IsZero() || !rep.PrevTo.IsZero() {
		t.Errorf("window before the floor must collapse, got %v..%v", rep.PrevFrom, rep.PrevTo)
	}
	acme := rep.Records[0]
	if acme.PrevActualHours != 0 {
		t.Errorf("expected no previous hours past the floor, got %v", acme.PrevActualHours)
	}
	if acme.DeltaPct != nil {
		t.Errorf("expected nil delta pct, got %v", *acme.DeltaPct)
	}
}

func TestEngine_UserReport(t *testing.T) {
	en := newTestEngine(acmeFixture())
	rep, err := en.UserReport(context.Background(), "bo@example.com", feb2, feb28)
	if err != nil {
		t.Fatalf("UserReport: %v", err)
	}
	if len(rep.Records) != 2 {
		t.Fatalf("expected Acme (activity) and Globex (estimate), got %d records", len(rep.Records))
	}
	acme := findRecord(t, rep.Records, "2026-Acme")
	if acme.TimeTrackerHours != 2.5 {
		t.Errorf("expected only Bo's 2.5h, got %v", acme.TimeTrackerHours)
	}
	if acme.TicketHours != 0 {
		t.Errorf("per-user reports must exclude unattributable ticket effort, got %v", acme.TicketHours)
	}

	// A user with no hours anywhere still sees estimated projects only.
	rep, err = en.UserReport(context.Background(), "999", feb2, feb28)
	if err != nil {
		t.Fatalf("UserReport: %v", err)
	}
	for _, rec := range rep.Records {
		if rec.EstimatedHours == 0 && rec.ActualHours == 0 {
			t.Errorf("record %q has neither estimate nor actuals", rec.ProjectKey)
		}
	}
}

func TestEngine_DegradedUpstreams(t *testing.T) {
	ctx := context.Background()

	f := acmeFixture()
	f.projectsErr = errors.New("pm tool down")
	rep, err := newTestEngine(f).ProjectReport(ctx, feb2, feb28)
	if err != nil {
		t.Fatalf("dead project source must degrade, not fail: %v", err)
	}
	if len(rep.Records) != 0 || len(rep.Warnings) == 0 {
		t.Errorf("expected empty degraded report with warning, got %d records %v", len(rep.Records), rep.Warnings)
	}

	f = acmeFixture()
	f.taskErr = map[string]error{"2026-Acme": errors.New("timeout")}
	rep, err = newTestEngine(f).ProjectReport(ctx, feb2, feb28)
	if err != nil {
		t.Fatalf("single task failure must degrade, not fail: %v", err)
	}
	if len(rep.Records) != 2 {
		t.Fatalf("other projects must still report, got %d", len(rep.Records))
	}
	if rec := findRecord(t, rep.Records, "2026-Acme"); rec.EstimatedHours != 0 {
		t.Errorf("failed task fetch must zero the estimate, got %v", rec.EstimatedHours)
	}
	if rec := findRecord(t, rep.Records, "2026-Globex"); rec.EstimatedHours != 10 {
		t.Errorf("unaffected project must keep its estimate, got %v", rec.EstimatedHours)
	}
	if !hasWarning(rep.Warnings, "2026-Acme") {
		t.Errorf("expected per-project warning, got %v", rep.Warnings)
	}

	f = acmeFixture()
	f.entriesErr = errors.New("db down")
	rep, err = newTestEngine(f).ProjectReport(ctx, feb2, feb28)
	if err != nil {
		t.Fatalf("dead time log source must degrade, not fail: %v", err)
	}
	if rec := findRecord(t, rep.Records, "2026-Acme"); rec.TimeTrackerHours != 0 {
		t.Errorf("expected zero tracked hours, got %v", rec.TimeTrackerHours)
	}
	if len(rep.Warnings) == 0 {
		t.Error("expected a warning for the dead time log source")
	}

	f = acmeFixture()
	f.ticketsErr = errors.New("itsm down")
	rep, err = newTestEngine(f).ProjectReport(ctx, feb2, feb28)
	if err != nil {
		t.Fatalf("dead ticket source must degrade, not fail: %v", err)
	}
	if rec := findRecord(t, rep.Records, "2026-Acme"); rec.TicketHours != 0 {
		t.Errorf("expected zero ticket hours, got %v", rec.TicketHours)
	}
}

func TestEngine_NilTicketSource(t *testing.T) {
	en := newTestEngine(acmeFixture())
	en.Tickets = nil
	rep, err := en.ProjectReport(context.Background(), feb2, feb28)
	if err != nil {
		t.Fatalf("ProjectReport: %v", err)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("unconfigured ticket source is not a degradation, got %v", rep.Warnings)
	}
	if rec := findRecord(t, rep.Records, "2026-Acme"); rec.TicketHours != 0 {
		t.Errorf("expected zero ticket hours, got %v", rec.TicketHours)
	}
}

func TestEngine_ProjectDetail(t *testing.T) {
	en := newTestEngine(acmeFixture())
	detail, err := en.ProjectDetail(context.Background(), "2026-Acme", feb2, feb28)
	if err != nil {
		t.Fatalf("ProjectDetail: %v", err)
	}

	if detail.Record.ActualHours != 10 {
		t.Errorf("expected actual 10, got %v", detail.Record.ActualHours)
	}
	if len(detail.Entries) != 3 {
		t.Fatalf("expected 3 entry rows, got %d", len(detail.Entries))
	}
	// Entry 2 carries a numeric category reference that resolves via the
	// definition set; deleted definitions must not resolve.
	var bo domain.EntryDetail
	for _, e := range detail.Entries {
		if e.UserEmail == "bo@example.com" {
			bo = e
		}
	}
	if bo.Category != "Support" {
		t.Errorf("expected numeric category to resolve to Support, got %q", bo.Category)
	}

	if len(detail.Users) != 2 {
		t.Fatalf("expected 2 contributors, got %d", len(detail.Users))
	}
	var ana domain.UserHours
	for _, u := range detail.Users {
		if u.UserEmail == "ana@example.com" {
			ana = u
		}
	}
	if ana.Hours != 5.5 || ana.EntryCount != 2 {
		t.Errorf("expected Ana with 5.5h over 2 entries, got %+v", ana)
	}

	if len(detail.Tickets) != 1 || detail.Tickets[0].Number != "T-1" {
		t.Errorf("expected the Acme ticket attached, got %+v", detail.Tickets)
	}
}

func findRecord(t *testing.T, recs []domain.VarianceRecord, key string) domain.VarianceRecord {
	t.Helper()
	for _, r := range recs {
		if r.ProjectKey == key {
			return r
		}
	}
	t.Fatalf("record %q not found", key)
	return domain.VarianceRecord{}
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
