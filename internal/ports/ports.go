package ports

import (
	"context"
	"time"

	"effort-dashboard/internal/domain"
)

// ProjectSource lists projects from the project-management tool.
type ProjectSource interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// TaskSource lists a project's tasks with their custom fields.
type TaskSource interface {
	ListTasks(ctx context.Context, projectKey string) ([]domain.Task, error)
}

// TimeLogSource lists time log entries whose date falls in [from, to].
type TimeLogSource interface {
	ListTimeLogs(ctx context.Context, from, to time.Time) ([]domain.TimeLogEntry, error)
}

// CompanySource lists the canonical company records.
type CompanySource interface {
	ListCompanies(ctx context.Context) ([]domain.Company, error)
}

// CategorySource lists category definitions. Soft-deleted definitions are
// excluded by the implementation.
type CategorySource interface {
	ListCategories(ctx context.Context) ([]domain.CategoryDefinition, error)
}

// TicketSource lists raw task-level ticket rows from the ITSM tool for the
// given date range.
type TicketSource interface {
	ListTicketRows(ctx context.Context, from, to time.Time) ([]domain.TicketRow, error)
}

// CompanyMatcher fuzzy-matches a free-text client label against the company
// list. Implementations must be pure and deterministic: the same inputs
// always produce the same result, and unrelated names must not match.
type CompanyMatcher interface {
	// FindMatchingCompany returns the best single match, or nil.
	FindMatchingCompany(text string, companies []domain.Company) *domain.Company
	// FindMatchingCompanies returns every company above the match threshold.
	FindMatchingCompanies(text string, companies []domain.Company) []domain.Company
}
