package report

import (
	"math"
	"testing"
	"time"

	"effort-dashboard/internal/domain"
)

func TestEntryHours_StoredDurationWinsExactly(t *testing.T) {
	e := domain.TimeLogEntry{
		StoredHours: 3.25,
		Start:       time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC), // would be 1h, must be ignored
	}
	h, anomalous := EntryHours(e)
	if h != 3.25 {
		t.Errorf("expected stored duration 3.25 to win, got %v", h)
	}
	if anomalous {
		t.Error("stored duration must not be flagged anomalous")
	}
}

func TestEntryHours_FallbackFromStartEnd(t *testing.T) {
	e := domain.TimeLogEntry{
		Start: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 2, 11, 30, 0, 0, time.UTC),
	}
	h, anomalous := EntryHours(e)
	if h != 2.5 {
		t.Errorf("expected 2.5h from 09:00-11:30, got %v", h)
	}
	if anomalous {
		t.Error("valid fallback must not be flagged anomalous")
	}
}

func TestEntryHours_NegativeWindowIsZeroAndAnomalous(t *testing.T) {
	e := domain.TimeLogEntry{
		Start: time.Date(2026, 2, 2, 11, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
	}
	h, anomalous := EntryHours(e)
	if h != 0 {
		t.Errorf("expected 0 for negative window, got %v", h)
	}
	if !anomalous {
		t.Error("negative window must be flagged anomalous")
	}
}

func TestEntryHours_NeverNegative(t *testing.T) {
	cases := []domain.TimeLogEntry{
		{},
		{StoredHours: -4},
		{StoredHours: math.Inf(1)},
		{StoredHours: math.NaN()},
		{Start: time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)},
	}
	for i, e := range cases {
		h, _ := EntryHours(e)
		if h < 0 || math.IsNaN(h) || math.IsInf(h, 0) {
			t.Errorf("case %d: expected finite non-negative hours, got %v", i, h)
		}
	}
}
