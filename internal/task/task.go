// Package task defines the Task record, its dependency edges, the ordered
// Store that owns a project's tasks, and the ingestion boundary that turns
// loosely shaped records into normalized tasks.
package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/papapumpkin/gantry/internal/calendar"
)

// DependencyType is the scheduling relation carried by a dependency edge.
// Only finish-to-start is modeled.
type DependencyType string

// FinishToStart means the dependent may not start until the target finishes.
const FinishToStart DependencyType = "FS"

// Dependency is a directed edge "owner depends on TaskID".
type Dependency struct {
	TaskID string         `json:"taskId" yaml:"taskId" toml:"taskId"`
	Type   DependencyType `json:"type" yaml:"type" toml:"type"`
	Lag    int            `json:"lag" yaml:"lag" toml:"lag"`
}

// Task is a single schedulable item. Summary tasks aggregate their
// children and never hold dependency edges of their own.
type Task struct {
	ID           string
	Name         string
	Start        time.Time
	End          time.Time
	Duration     int
	DurationType calendar.DurationType
	Progress     int
	Milestone    bool
	Summary      bool
	ParentID     string
	Children     []string
	OutlineLevel int
	Dependencies []Dependency
	Collapsed    bool
}

// DependsOn reports whether t has a direct edge to id.
func (t *Task) DependsOn(id string) bool {
	for _, d := range t.Dependencies {
		if d.TaskID == id {
			return true
		}
	}
	return false
}

// DependencyIDs returns the target ids of t's edges in declaration order.
func (t *Task) DependencyIDs() []string {
	ids := make([]string, len(t.Dependencies))
	for i, d := range t.Dependencies {
		ids[i] = d.TaskID
	}
	return ids
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	if t.Children != nil {
		c.Children = append([]string(nil), t.Children...)
	}
	if t.Dependencies != nil {
		c.Dependencies = append([]Dependency(nil), t.Dependencies...)
	}
	return &c
}

// NewID returns a fresh opaque task identifier.
func NewID() string {
	return uuid.NewString()
}
