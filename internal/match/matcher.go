// Package match provides the default company name matcher. Matching is
// tolerant of case, punctuation and partial containment but guarded against
// matching unrelated names, since a false positive silently corrupts
// variance numbers downstream.
package match

import (
	"strings"

	"effort-dashboard/internal/domain"
)

const defaultMinLength = 3

// Matcher implements ports.CompanyMatcher with normalized containment
// matching. It is pure and deterministic.
type Matcher struct {
	// MinLength is the minimum normalized length before containment is
	// considered, so fragments like "IT" or "AS" never match. Zero means 3.
	MinLength int
}

// New returns a Matcher with default settings.
func New() *Matcher { return &Matcher{} }

// FindMatchingCompany returns the best single match for a free-text label.
// Exact normalized equality wins outright; otherwise the longest matching
// canonical name wins, as longer names are more specific. Ties keep the
// earliest company in the input slice.
func (m *Matcher) FindMatchingCompany(text string, companies []domain.Company) *domain.Company {
	norm := normalize(text)
	if norm == "" {
		return nil
	}
	var best *domain.Company
	bestScore := 0
	for i := range companies {
		n := normalize(companies[i].Name)
		if n == "" {
			continue
		}
		var score int
		switch {
		case n == norm:
			score = 1 << 20
		case m.contains(norm, n):
			score = len(n)
		default:
			continue
		}
		if score > bestScore {
			best, bestScore = &companies[i], score
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// FindMatchingCompanies returns every company above the match threshold, in
// input order. A label may legitimately map to several records when minor
// name variants exist side by side.
func (m *Matcher) FindMatchingCompanies(text string, companies []domain.Company) []domain.Company {
	norm := normalize(text)
	if norm == "" {
		return nil
	}
	var out []domain.Company
	for _, c := range companies {
		n := normalize(c.Name)
		if n == "" {
			continue
		}
		if n == norm || m.contains(norm, n) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Matcher) contains(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	min := m.MinLength
	if min <= 0 {
		min = defaultMinLength
	}
	if len(short) < min {
		return false
	}
	return strings.Contains(long, short)
}

// normalize lowercases and strips everything but letters and digits.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
