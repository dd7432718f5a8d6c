package report

import (
	"strings"

	"effort-dashboard/internal/domain"
)

// HoursPerManDay converts day-based estimates to hours.
const HoursPerManDay = 8.0

var (
	manHourNames = []string{"manhours estimate", "manhours", "man-hours"}
	manDayNames  = []string{"mandays estimate", "mandays", "man-days"}
)

// TaskEstimateHours derives the estimated hours recorded on one task.
// Hour-denominated fields outrank day-denominated ones; within a tier the
// first populated field wins and later candidates are ignored.
func TaskEstimateHours(t domain.Task) float64 {
	if v, ok := firstNumericField(t.Fields, manHourNames, "manhour"); ok {
		return v
	}
	if v, ok := firstNumericField(t.Fields, manDayNames, "manday"); ok {
		return v * HoursPerManDay
	}
	return 0
}

// ProjectEstimateHours sums the per-task estimates of a project's task set.
func ProjectEstimateHours(tasks []domain.Task) float64 {
	var total float64
	for _, t := range tasks {
		total += TaskEstimateHours(t)
	}
	return total
}

func firstNumericField(fields []domain.CustomField, exact []string, substr string) (float64, bool) {
	for _, f := range fields {
		if f.Number == nil {
			continue
		}
		if matchesFieldName(strings.ToLower(strings.TrimSpace(f.Name)), exact, substr) {
			return *f.Number, true
		}
	}
	return 0, false
}

func matchesFieldName(name string, exact []string, substr string) bool {
	for _, e := range exact {
		if name == e {
			return true
		}
	}
	return strings.Contains(name, substr)
}
