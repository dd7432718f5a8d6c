package report

import (
	"math"

	"effort-dashboard/internal/domain"
)

// EntryHours returns the hours of actual work an entry represents.
//
// A positive stored duration is authoritative and used verbatim. Otherwise
// the hours are computed from the start and end times; the source system
// occasionally fails to persist a duration but always records both
// timestamps. A negative or non-finite result means the row is broken:
// hours degrade to zero and the second return value reports the anomaly.
func EntryHours(e domain.TimeLogEntry) (float64, bool) {
	if d := e.StoredHours; d > 0 && !math.IsInf(d, 1) {
		return d, false
	}
	h := e.End.Sub(e.Start).Minutes() / 60
	if h < 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, true
	}
	return h, false
}
