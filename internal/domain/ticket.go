package domain

// TicketRow is one raw task-level row from the ITSM tool. Several rows may
// describe the same ticket.
type TicketRow struct {
	Number          string // "ticket_number" in the source
	Category        string // open enum, two kinds known today
	Company         string // free-text client label
	Status          string
	TaskDescription string
	EffortHours     float64
}

// SupportTicket is a merged ticket. Identity is (Number, Category): the same
// number under a different category is a different ticket.
type SupportTicket struct {
	Number      string
	Category    string
	Company     string
	Status      string
	EffortHours float64
	TaskCount   int
	Tasks       []string
}
