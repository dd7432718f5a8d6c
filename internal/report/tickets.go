package report

import (
	"effort-dashboard/internal/domain"
	"effort-dashboard/internal/ports"
)

type ticketKey struct {
	number   string
	category string
}

// MergeTickets folds raw per-task ticket rows into one record per
// (ticket number, category) pair. Effort sums across rows and task
// descriptions accumulate; the remaining scalars keep their first-seen
// values. Output order is first-seen order.
func MergeTickets(rows []domain.TicketRow) []domain.SupportTicket {
	idx := make(map[ticketKey]int, len(rows))
	out := make([]domain.SupportTicket, 0, len(rows))
	for _, r := range rows {
		k := ticketKey{number: r.Number, category: r.Category}
		if i, ok := idx[k]; ok {
			out[i].EffortHours += r.EffortHours
			out[i].TaskCount++
			if r.TaskDescription != "" {
				out[i].Tasks = append(out[i].Tasks, r.TaskDescription)
			}
			continue
		}
		t := domain.SupportTicket{
			Number:      r.Number,
			Category:    r.Category,
			Company:     r.Company,
			Status:      r.Status,
			EffortHours: r.EffortHours,
			TaskCount:   1,
		}
		if r.TaskDescription != "" {
			t.Tasks = []string{r.TaskDescription}
		}
		idx[k] = len(out)
		out = append(out, t)
	}
	return out
}

// ProjectTicketEffort totals merged ticket hours attributable to one project
// through its client-name segment. A project without a client segment, or
// whose segment matches no company, contributes zero ticket effort.
func ProjectTicketEffort(projectName string, tickets []domain.SupportTicket, companies []domain.Company, matcher ports.CompanyMatcher) (hours float64, count int) {
	segment := CompanySegment(projectName)
	if segment == "" {
		return 0, 0
	}
	target := matcher.FindMatchingCompany(segment, companies)
	if target == nil {
		return 0, 0
	}
	for _, t := range tickets {
		c := matcher.FindMatchingCompany(t.Company, companies)
		if c != nil && c.ID == target.ID {
			hours += t.EffortHours
			count++
		}
	}
	return hours, count
}

// MatchingTickets returns the merged tickets attributed to a project, for
// the single-project detail view. Same matching rule as ProjectTicketEffort.
func MatchingTickets(projectName string, tickets []domain.SupportTicket, companies []domain.Company, matcher ports.CompanyMatcher) []domain.SupportTicket {
	segment := CompanySegment(projectName)
	if segment == "" {
		return nil
	}
	target := matcher.FindMatchingCompany(segment, companies)
	if target == nil {
		return nil
	}
	var out []domain.SupportTicket
	for _, t := range tickets {
		c := matcher.FindMatchingCompany(t.Company, companies)
		if c != nil && c.ID == target.ID {
			out = append(out, t)
		}
	}
	return out
}
