package domain

import "time"

// TimeLogEntry is one row of actually logged work from the internal
// time-tracking database. Nullable columns are pointers; the legacy numeric
// category columns are flattened into CategoryAliases by the adapter so the
// engine never inspects raw row shapes.
type TimeLogEntry struct {
	ID          int64
	Date        time.Time // day granularity, midnight UTC
	Start       time.Time
	End         time.Time
	StoredHours float64 // persisted duration in hours; zero or negative means absent/invalid

	UserID    int64
	UserEmail string
	UserName  string

	// Category holds the raw category reference: sometimes a usable label,
	// sometimes a numeric definition id, sometimes garbage.
	Category string
	// CategoryAliases lists the legacy numeric category columns in probe
	// order. Only positive ids are kept.
	CategoryAliases []int64

	CompanyID *int64
	// RefNumber is expected to equal a project key but may be blank or stale.
	RefNumber string
}

// Company is a canonical client record from the time-tracking database.
type Company struct {
	ID   int64
	Name string
}

// CategoryDefinition resolves a numeric category id to a display name.
type CategoryDefinition struct {
	ID      int64
	Name    string
	Deleted bool
}
