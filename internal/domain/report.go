package domain

import "time"

// MatchStrategy names a way a time log entry was attributed to a project.
type MatchStrategy string

const (
	MatchByReference MatchStrategy = "reference_number"
	MatchByCompany   MatchStrategy = "company_id"
)

// Status tags for a project's budget position.
const (
	StatusUnderBudget = "under_budget"
	StatusOverBudget  = "over_budget"
	StatusOnTrack     = "on_track"
)

// VarianceRecord is the per-project reconciliation result. It is built fresh
// for every report request and never persisted.
type VarianceRecord struct {
	ProjectKey  string
	ProjectName string

	EstimatedHours   float64
	TimeTrackerHours float64
	TicketHours      float64
	ActualHours      float64 // TimeTrackerHours + TicketHours

	EntryCount       int
	ContributorCount int
	TicketCount      int

	VarianceHours float64 // estimated - actual; positive is under budget
	CompletionPct int     // always within [0, 100]
	Status        string
	MatchedBy     []MatchStrategy // nil when no strategy contributed hours

	PrevActualHours float64
	DeltaHours      float64
	DeltaPct        *float64 // nil when the previous period had no hours
}

// ReportSummary aggregates a record set.
type ReportSummary struct {
	ProjectCount        int
	TotalEstimatedHours float64
	TotalActualHours    float64
	TotalVarianceHours  float64
	UnderBudgetCount    int
	OverBudgetCount     int
	OnTrackCount        int
	AnomalousRowCount   int
}

// Report is the engine's output for one request. Warnings carry per-input
// degradation notices; a report with warnings is still structurally valid.
type Report struct {
	From     time.Time
	To       time.Time
	PrevFrom time.Time
	PrevTo   time.Time
	Records  []VarianceRecord
	Summary  ReportSummary
	Warnings []string
}

// EntryDetail is one matched time log row in a single-project report, with
// its category already resolved to a display name.
type EntryDetail struct {
	Date      time.Time
	UserName  string
	UserEmail string
	Category  string
	Hours     float64
	MatchedBy MatchStrategy
}

// UserHours rolls up matched hours per contributor.
type UserHours struct {
	UserID     int64
	UserName   string
	UserEmail  string
	Hours      float64
	EntryCount int
}

// ProjectDetail is the single-project report variant.
type ProjectDetail struct {
	Record   VarianceRecord
	Entries  []EntryDetail
	Users    []UserHours
	Tickets  []SupportTicket
	Warnings []string
}
