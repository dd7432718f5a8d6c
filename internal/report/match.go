package report

import (
	"strconv"
	"strings"
	"time"

	"effort-dashboard/internal/domain"
	"effort-dashboard/internal/ports"
)

// CompanySegment extracts the client name from a project display name of
// the form "<Year> - <Company> - <Product>". A name with fewer than two
// "-"-separated segments has no client component.
func CompanySegment(projectName string) string {
	parts := strings.Split(projectName, "-")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Scope restricts matching to a date range and, optionally, one user.
// Dates are day-granular and inclusive on both ends.
type Scope struct {
	From time.Time
	To   time.Time
	// UserID of 0 and empty UserEmail match every user. When both are set,
	// both must match.
	UserID    int64
	UserEmail string
}

func (s Scope) includes(e domain.TimeLogEntry) bool {
	if e.Date.Before(s.From) || e.Date.After(s.To) {
		return false
	}
	if s.UserEmail != "" && !strings.EqualFold(e.UserEmail, s.UserEmail) {
		return false
	}
	if s.UserID != 0 && e.UserID != s.UserID {
		return false
	}
	return true
}

// ActualHours is the de-duplicated actual effort matched to one project
// from the time-tracking snapshot.
type ActualHours struct {
	TotalHours     float64
	ReferenceHours float64 // strategy A: entries whose reference equals the project key
	CompanyHours   float64 // strategy B after overlap subtraction
	OverlapHours   float64 // entries qualifying under both strategies
	EntryCount     int
	Contributors   int
	AnomalousRows  int
	MatchedBy      []domain.MatchStrategy
}

// MatchProjectEntries computes actual hours for one project from a time log
// snapshot.
//
// Projects are referenced inconsistently in the time tracker: some entries
// carry the project key in their reference field, others only carry the
// client company. Both strategies are evaluated and the overlap (entries
// qualifying both ways) is subtracted from the company side, so a single
// entry is never counted twice.
func MatchProjectEntries(p domain.Project, entries []domain.TimeLogEntry, companies []domain.Company, matcher ports.CompanyMatcher, scope Scope) ActualHours {
	companyIDs := make(map[int64]bool)
	if segment := CompanySegment(p.Name); segment != "" {
		for _, c := range matcher.FindMatchingCompanies(segment, companies) {
			companyIDs[c.ID] = true
		}
	}

	var (
		res          ActualHours
		companyHours float64
		companyCount int
		overlapCount int
	)
	users := make(map[string]bool)

	for _, e := range entries {
		if !scope.includes(e) {
			continue
		}
		byRef := e.RefNumber != "" && e.RefNumber == p.Key
		byCompany := e.CompanyID != nil && companyIDs[*e.CompanyID]
		if !byRef && !byCompany {
			continue
		}
		h, anomalous := EntryHours(e)
		if anomalous {
			res.AnomalousRows++
		}
		users[contributorKey(e)] = true
		if byRef {
			res.ReferenceHours += h
			res.EntryCount++
		}
		if byCompany {
			companyHours += h
			companyCount++
		}
		if byRef && byCompany {
			res.OverlapHours += h
			overlapCount++
		}
	}

	res.CompanyHours = companyHours - res.OverlapHours
	if res.CompanyHours < 0 {
		res.CompanyHours = 0
	}
	if extra := companyCount - overlapCount; extra > 0 {
		res.EntryCount += extra
	}
	res.TotalHours = res.ReferenceHours + res.CompanyHours
	res.Contributors = len(users)
	if res.ReferenceHours > 0 {
		res.MatchedBy = append(res.MatchedBy, domain.MatchByReference)
	}
	if res.CompanyHours > 0 {
		res.MatchedBy = append(res.MatchedBy, domain.MatchByCompany)
	}
	return res
}

func contributorKey(e domain.TimeLogEntry) string {
	if e.UserEmail != "" {
		return strings.ToLower(e.UserEmail)
	}
	return strconv.FormatInt(e.UserID, 10)
}
