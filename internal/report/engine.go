package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"effort-dashboard/internal/domain"
	"effort-dashboard/internal/ports"
)

// Configuration errors are caller contract violations and fail before any
// data is fetched. Everything else degrades into report warnings.
var (
	ErrNoDateRange     = errors.New("report: date range is required")
	ErrNoMatcher       = errors.New("report: company matcher is required")
	ErrNoUser          = errors.New("report: user is required")
	ErrNoProjectKey    = errors.New("report: project key is required")
	ErrProjectNotFound = errors.New("report: project not found")
)

const defaultTaskFetchWorkers = 4

// Engine reconciles estimated effort from the project-management tool
// against logged effort from the time tracker and ticket effort from the
// ITSM tool. One engine serves all three report scopes; the legacy
// dashboard carried three drifting copies of this logic.
type Engine struct {
	Log        *slog.Logger
	Projects   ports.ProjectSource
	Tasks      ports.TaskSource
	TimeLogs   ports.TimeLogSource
	Companies  ports.CompanySource
	Categories ports.CategorySource
	Tickets    ports.TicketSource // optional; nil means no ticket effort
	Matcher    ports.CompanyMatcher

	// MinReportDate floors the previous-period window. History before it is
	// unreliable in the source systems.
	MinReportDate time.Time
	// TaskFetchWorkers bounds the per-project task fan-out. Zero means 4.
	TaskFetchWorkers int
}

// snapshot holds all cross-project inputs, fetched once per request and
// immutable afterwards.
type snapshot struct {
	entries     []domain.TimeLogEntry
	prevEntries []domain.TimeLogEntry
	companies   []domain.Company
	categories  map[int64]string
	tickets     []domain.SupportTicket
	prevTickets []domain.SupportTicket
	warnings    []string
}

// ProjectReport builds the all-projects variance report for [from, to].
// Archived projects are excluded.
func (en *Engine) ProjectReport(ctx context.Context, from, to time.Time) (*domain.Report, error) {
	if err := en.validate(from, to); err != nil {
		return nil, err
	}
	return en.buildReport(ctx, from, to, Scope{}, false)
}

// UserReport builds the report scoped to one user. The user may be given as
// a numeric id or an email address. Only projects where the user has
// non-zero estimated-or-actual hours are listed.
func (en *Engine) UserReport(ctx context.Context, user string, from, to time.Time) (*domain.Report, error) {
	if err := en.validate(from, to); err != nil {
		return nil, err
	}
	scope, err := userScope(user)
	if err != nil {
		return nil, err
	}
	return en.buildReport(ctx, from, to, scope, true)
}

// ProjectDetail builds the single-project report with per-entry and
// per-user breakdowns.
func (en *Engine) ProjectDetail(ctx context.Context, key string, from, to time.Time) (*domain.ProjectDetail, error) {
	if err := en.validate(from, to); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrNoProjectKey
	}
	from, to = day(from), day(to)

	projects, err := en.Projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: listing projects: %w", err)
	}
	var project *domain.Project
	for i := range projects {
		if projects[i].Key == key {
			project = &projects[i]
			break
		}
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %q", ErrProjectNotFound, key)
	}

	prevFrom, prevTo := en.previousWindow(from, to)
	snap := en.loadSnapshot(ctx, from, to, prevFrom, prevTo)
	detail := &domain.ProjectDetail{Warnings: snap.warnings}

	estimated := 0.0
	tasks, err := en.Tasks.ListTasks(ctx, key)
	if err != nil {
		detail.Warnings = append(detail.Warnings, taskWarning(key, err))
	} else {
		estimated = ProjectEstimateHours(tasks)
	}

	scope := Scope{From: from, To: to}
	actual := MatchProjectEntries(*project, snap.entries, snap.companies, en.Matcher, scope)
	ticketHours, ticketCount := ProjectTicketEffort(project.Name, snap.tickets, snap.companies, en.Matcher)
	detail.Record = BuildVariance(*project, estimated, actual, ticketHours, ticketCount)

	prevActual := MatchProjectEntries(*project, snap.prevEntries, snap.companies, en.Matcher, Scope{From: prevFrom, To: prevTo})
	prevTicketHours, _ := ProjectTicketEffort(project.Name, snap.prevTickets, snap.companies, en.Matcher)
	ApplyPeriodDelta(&detail.Record, prevActual.TotalHours+prevTicketHours)

	detail.Entries, detail.Users = en.entryBreakdown(*project, snap, scope)
	detail.Tickets = MatchingTickets(project.Name, snap.tickets, snap.companies, en.Matcher)
	return detail, nil
}

func (en *Engine) buildReport(ctx context.Context, from, to time.Time, scope Scope, requireActivity bool) (*domain.Report, error) {
	from, to = day(from), day(to)
	prevFrom, prevTo := en.previousWindow(from, to)
	scope.From, scope.To = from, to

	rep := &domain.Report{From: from, To: to, PrevFrom: prevFrom, PrevTo: prevTo}

	projects, err := en.Projects.ListProjects(ctx)
	if err != nil {
		// One dead upstream must not kill the whole report.
		en.warn(rep, fmt.Sprintf("project source unavailable: %v", err))
		rep.Summary = Summarize(nil, 0)
		return rep, nil
	}
	active := make([]domain.Project, 0, len(projects))
	for _, p := range projects {
		if !p.Archived {
			active = append(active, p)
		}
	}
	projects = active

	snap := en.loadSnapshot(ctx, from, to, prevFrom, prevTo)
	rep.Warnings = append(rep.Warnings, snap.warnings...)

	estimates := en.fetchEstimates(ctx, projects, rep)

	anomalous := 0
	prevScope := Scope{From: prevFrom, To: prevTo, UserID: scope.UserID, UserEmail: scope.UserEmail}
	for _, p := range projects {
		actual := MatchProjectEntries(p, snap.entries, snap.companies, en.Matcher, scope)
		anomalous += actual.AnomalousRows

		ticketHours, ticketCount := 0.0, 0
		prevTicketHours := 0.0
		if !requireActivity {
			// Ticket effort carries no user attribution, so per-user reports
			// reconcile time-tracker hours only.
			ticketHours, ticketCount = ProjectTicketEffort(p.Name, snap.tickets, snap.companies, en.Matcher)
			prevTicketHours, _ = ProjectTicketEffort(p.Name, snap.prevTickets, snap.companies, en.Matcher)
		}

		rec := BuildVariance(p, estimates[p.Key], actual, ticketHours, ticketCount)
		if requireActivity && rec.EstimatedHours == 0 && rec.ActualHours == 0 {
			continue
		}
		prevActual := MatchProjectEntries(p, snap.prevEntries, snap.companies, en.Matcher, prevScope)
		ApplyPeriodDelta(&rec, prevActual.TotalHours+prevTicketHours)
		rep.Records = append(rep.Records, rec)
	}

	SortByVariance(rep.Records)
	rep.Summary = Summarize(rep.Records, anomalous)
	return rep, nil
}

// loadSnapshot fetches every cross-project input once. Any unavailable
// source degrades its contribution to empty and leaves a warning.
func (en *Engine) loadSnapshot(ctx context.Context, from, to, prevFrom, prevTo time.Time) snapshot {
	var snap snapshot

	entries, err := en.TimeLogs.ListTimeLogs(ctx, from, to)
	if err != nil {
		snap.warnings = append(snap.warnings, fmt.Sprintf("time log source unavailable: %v", err))
	} else {
		snap.entries = entries
	}
	if !prevFrom.IsZero() {
		prev, err := en.TimeLogs.ListTimeLogs(ctx, prevFrom, prevTo)
		if err != nil {
			snap.warnings = append(snap.warnings, fmt.Sprintf("time log source unavailable for previous period: %v", err))
		} else {
			snap.prevEntries = prev
		}
	}

	companies, err := en.Companies.ListCompanies(ctx)
	if err != nil {
		snap.warnings = append(snap.warnings, fmt.Sprintf("company source unavailable: %v", err))
	} else {
		snap.companies = companies
	}

	defs, err := en.Categories.ListCategories(ctx)
	if err != nil {
		snap.warnings = append(snap.warnings, fmt.Sprintf("category source unavailable: %v", err))
		snap.categories = map[int64]string{}
	} else {
		snap.categories = CategoryNames(defs)
	}

	if en.Tickets != nil {
		rows, err := en.Tickets.ListTicketRows(ctx, from, to)
		if err != nil {
			snap.warnings = append(snap.warnings, fmt.Sprintf("ticket source unavailable: %v", err))
		} else {
			snap.tickets = MergeTickets(rows)
		}
		if !prevFrom.IsZero() {
			prevRows, err := en.Tickets.ListTicketRows(ctx, prevFrom, prevTo)
			if err != nil {
				snap.warnings = append(snap.warnings, fmt.Sprintf("ticket source unavailable for previous period: %v", err))
			} else {
				snap.prevTickets = MergeTickets(prevRows)
			}
		}
	}
	return snap
}

// fetchEstimates fans out per-project task fetches with a bounded worker
// pool. Projects are independent, so failures degrade that project's
// estimate to zero without touching the others. Warnings are sorted so the
// output stays deterministic regardless of completion order.
func (en *Engine) fetchEstimates(ctx context.Context, projects []domain.Project, rep *domain.Report) map[string]float64 {
	workers := en.TaskFetchWorkers
	if workers <= 0 {
		workers = defaultTaskFetchWorkers
	}
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, workers)
		warnings []string
	)
	out := make(map[string]float64, len(projects))
	for _, p := range projects {
		wg.Add(1)
		sem <- struct{}{}
		go func(p domain.Project) {
			defer wg.Done()
			defer func() { <-sem }()
			tasks, err := en.Tasks.ListTasks(ctx, p.Key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warnings = append(warnings, taskWarning(p.Key, err))
				out[p.Key] = 0
				return
			}
			out[p.Key] = ProjectEstimateHours(tasks)
		}(p)
	}
	wg.Wait()
	sort.Strings(warnings)
	rep.Warnings = append(rep.Warnings, warnings...)
	return out
}

// entryBreakdown lists each matched entry with its resolved category and
// rolls hours up per contributor. Entries qualifying under both strategies
// are listed once, attributed to the reference match.
func (en *Engine) entryBreakdown(p domain.Project, snap snapshot, scope Scope) ([]domain.EntryDetail, []domain.UserHours) {
	companyIDs := make(map[int64]bool)
	if segment := CompanySegment(p.Name); segment != "" {
		for _, c := range en.Matcher.FindMatchingCompanies(segment, snap.companies) {
			companyIDs[c.ID] = true
		}
	}

	var entries []domain.EntryDetail
	userIdx := make(map[string]int)
	var users []domain.UserHours

	for _, e := range snap.entries {
		if !scope.includes(e) {
			continue
		}
		byRef := e.RefNumber != "" && e.RefNumber == p.Key
		byCompany := e.CompanyID != nil && companyIDs[*e.CompanyID]
		if !byRef && !byCompany {
			continue
		}
		h, _ := EntryHours(e)
		strategy := domain.MatchByCompany
		if byRef {
			strategy = domain.MatchByReference
		}
		entries = append(entries, domain.EntryDetail{
			Date:      e.Date,
			UserName:  e.UserName,
			UserEmail: e.UserEmail,
			Category:  ResolveCategory(e, snap.categories),
			Hours:     h,
			MatchedBy: strategy,
		})

		key := contributorKey(e)
		i, ok := userIdx[key]
		if !ok {
			i = len(users)
			userIdx[key] = i
			users = append(users, domain.UserHours{UserID: e.UserID, UserName: e.UserName, UserEmail: e.UserEmail})
		}
		users[i].Hours += h
		users[i].EntryCount++
	}
	return entries, users
}

// previousWindow returns the same-length window immediately preceding
// [from, to], floored at MinReportDate. A window entirely before the floor
// collapses to zero times.
func (en *Engine) previousWindow(from, to time.Time) (time.Time, time.Time) {
	days := int(to.Sub(from).Hours() / 24)
	prevTo := from.AddDate(0, 0, -1)
	prevFrom := prevTo.AddDate(0, 0, -days)
	if !en.MinReportDate.IsZero() && prevFrom.Before(en.MinReportDate) {
		prevFrom = day(en.MinReportDate)
	}
	if prevTo.Before(prevFrom) {
		return time.Time{}, time.Time{}
	}
	return prevFrom, prevTo
}

func (en *Engine) validate(from, to time.Time) error {
	if en.Matcher == nil {
		return ErrNoMatcher
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return ErrNoDateRange
	}
	return nil
}

func (en *Engine) warn(rep *domain.Report, msg string) {
	if en.Log != nil {
		en.Log.Warn("report degraded", slog.String("reason", msg))
	}
	rep.Warnings = append(rep.Warnings, msg)
}

func userScope(user string) (Scope, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return Scope{}, ErrNoUser
	}
	if strings.Contains(user, "@") {
		return Scope{UserEmail: user}, nil
	}
	id, err := strconv.ParseInt(user, 10, 64)
	if err != nil {
		return Scope{}, fmt.Errorf("%w: %q is neither an id nor an email", ErrNoUser, user)
	}
	return Scope{UserID: id}, nil
}

// day normalizes a timestamp to midnight UTC; all report math is
// day-granular.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func taskWarning(key string, err error) string {
	return fmt.Sprintf("tasks unavailable for project %s: %v", key, err)
}
