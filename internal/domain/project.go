package domain

import "time"

// Project represents a project record owned by the external
// project-management tool. Read-only to the engine.
type Project struct {
	Key       string // opaque external identifier, join key for everything else
	Name      string
	Archived  bool
	Owner     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task belongs to exactly one project. Estimated hours are derived from its
// custom fields, never stored on the task itself.
type Task struct {
	ProjectKey string
	Name       string
	Completed  bool
	Fields     []CustomField
}

// CustomField is one name/value entry on a task. Number is nil when the
// source field holds no numeric value.
type CustomField struct {
	Name   string
	Number *float64
	Text   string
}
