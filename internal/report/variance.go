package report

import (
	"math"
	"sort"

	"effort-dashboard/internal/domain"
)

// CompletionPct reports how much of the estimate has been consumed, clamped
// to [0, 100]. A project without an estimate reports zero rather than
// dividing by it.
func CompletionPct(estimated, actual float64) int {
	if estimated <= 0 {
		return 0
	}
	pct := int(math.Round(actual / estimated * 100))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func varianceStatus(variance float64) string {
	switch {
	case variance > 0:
		return domain.StatusUnderBudget
	case variance < 0:
		return domain.StatusOverBudget
	default:
		return domain.StatusOnTrack
	}
}

// BuildVariance assembles the per-project record from its component totals.
// Previous-period fields are filled in separately by ApplyPeriodDelta.
func BuildVariance(p domain.Project, estimated float64, actual ActualHours, ticketHours float64, ticketCount int) domain.VarianceRecord {
	total := actual.TotalHours + ticketHours
	variance := estimated - total
	return domain.VarianceRecord{
		ProjectKey:       p.Key,
		ProjectName:      p.Name,
		EstimatedHours:   estimated,
		TimeTrackerHours: actual.TotalHours,
		TicketHours:      ticketHours,
		ActualHours:      total,
		EntryCount:       actual.EntryCount,
		ContributorCount: actual.Contributors,
		TicketCount:      ticketCount,
		VarianceHours:    variance,
		CompletionPct:    CompletionPct(estimated, total),
		Status:           varianceStatus(variance),
		MatchedBy:        actual.MatchedBy,
	}
}

// ApplyPeriodDelta fills the period-over-period fields. A previous period
// with zero hours leaves DeltaPct nil so no division by zero can leak out
// as Inf or NaN.
func ApplyPeriodDelta(rec *domain.VarianceRecord, prevActual float64) {
	rec.PrevActualHours = prevActual
	rec.DeltaHours = rec.ActualHours - prevActual
	if prevActual != 0 {
		pct := rec.DeltaHours / prevActual * 100
		rec.DeltaPct = &pct
	}
}

// SortByVariance orders records by the size of their discrepancy, largest
// first. The sort is stable: ties keep input order.
func SortByVariance(recs []domain.VarianceRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return math.Abs(recs[i].VarianceHours) > math.Abs(recs[j].VarianceHours)
	})
}

// Summarize aggregates a sorted record set.
func Summarize(recs []domain.VarianceRecord, anomalous int) domain.ReportSummary {
	s := domain.ReportSummary{
		ProjectCount:      len(recs),
		AnomalousRowCount: anomalous,
	}
	for _, r := range recs {
		s.TotalEstimatedHours += r.EstimatedHours
		s.TotalActualHours += r.ActualHours
		s.TotalVarianceHours += r.VarianceHours
		switch r.Status {
		case domain.StatusUnderBudget:
			s.UnderBudgetCount++
		case domain.StatusOverBudget:
			s.OverBudgetCount++
		default:
			s.OnTrackCount++
		}
	}
	return s
}

// Round2 rounds an hours figure for presentation. Intermediate sums stay at
// full precision; only values leaving the system get rounded.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
