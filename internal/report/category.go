package report

import (
	"strconv"
	"strings"

	"effort-dashboard/internal/domain"
)

// UncategorizedLabel is returned when no category field on an entry resolves.
const UncategorizedLabel = "Uncategorized"

// CategoryNames builds the id-to-name lookup from the definition set,
// dropping soft-deleted entries.
func CategoryNames(defs []domain.CategoryDefinition) map[int64]string {
	m := make(map[int64]string, len(defs))
	for _, d := range defs {
		if d.Deleted {
			continue
		}
		m[d.ID] = d.Name
	}
	return m
}

// ResolveCategory maps an entry's category reference to a display name.
//
// The schema grew several category columns over the years and different
// writers populate different ones, so resolution degrades through them in a
// fixed order: a usable text label, the label as a numeric id, then each
// alias id in turn. It never fails; the worst case is UncategorizedLabel.
func ResolveCategory(e domain.TimeLogEntry, names map[int64]string) string {
	raw := strings.TrimSpace(e.Category)
	if raw != "" && !strings.EqualFold(raw, "null") {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return raw
		}
		if name, ok := names[id]; ok {
			return name
		}
	}
	for _, id := range e.CategoryAliases {
		if name, ok := names[id]; ok {
			return name
		}
	}
	return UncategorizedLabel
}
