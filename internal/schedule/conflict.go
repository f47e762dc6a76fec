// Package schedule finds finish-to-start violations in a task.Store and
// rewrites task dates to resolve them.
//
// Detection is a pure scan. AutoFixConflicts mutates the store in a single
// pass in dependency order; Resolve pairs it with a re-scan so anything a
// cycle left unresolved is reported rather than retried.
package schedule

import (
	"fmt"
	"time"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/task"
)

// Kind classifies a Conflict.
type Kind string

const (
	// MissingDependency means a dependency names a task that does not exist.
	MissingDependency Kind = "missing-dependency"
	// TimeConflict means a task starts before its dependency (plus lag) allows.
	TimeConflict Kind = "time-conflict"
)

// Conflict is one violated dependency edge. For MissingDependency only
// TaskID and DependencyID are set.
type Conflict struct {
	Kind         Kind
	TaskID       string
	DependencyID string

	Start         time.Time // the task's current start
	DependencyEnd time.Time
	Lag           int
	OverlapDays   int // days the task would have to move
	CorrectStart  time.Time
}

// String renders the conflict as a one-line message.
func (c Conflict) String() string {
	if c.Kind == MissingDependency {
		return fmt.Sprintf("%s depends on missing task %s", c.TaskID, c.DependencyID)
	}
	msg := fmt.Sprintf("%s starts %s but %s ends %s",
		c.TaskID, calendar.FormatDate(c.Start), c.DependencyID, calendar.FormatDate(c.DependencyEnd))
	if c.Lag != 0 {
		msg += fmt.Sprintf(" (lag %d)", c.Lag)
	}
	return msg + fmt.Sprintf("; overlap %d day(s), earliest start %s",
		c.OverlapDays, calendar.FormatDate(c.CorrectStart))
}

// Report is the result of DetectAllConflicts.
type Report struct {
	Conflicts []Conflict
	// TaskIDs lists each task with at least one conflict once, in
	// collection order.
	TaskIDs []string
}

// Empty reports whether no conflicts were found.
func (r Report) Empty() bool {
	return len(r.Conflicts) == 0
}

// EarliestStart returns the first day a task may start after dependency
// end depEnd with the given lag.
func EarliestStart(depEnd time.Time, lag int) time.Time {
	return calendar.AddDays(depEnd, 1+lag)
}

// DetectConflicts checks every dependency edge of the task id. A task
// starting on or before its dependency's end day (shifted by lag) is in
// conflict. An unknown id yields nil.
func DetectConflicts(store *task.Store, id string) []Conflict {
	t := store.Get(id)
	if t == nil {
		return nil
	}
	var out []Conflict
	for _, dep := range t.Dependencies {
		target := store.Get(dep.TaskID)
		if target == nil {
			out = append(out, Conflict{
				Kind:         MissingDependency,
				TaskID:       t.ID,
				DependencyID: dep.TaskID,
			})
			continue
		}
		correct := EarliestStart(target.End, dep.Lag)
		if !t.Start.Before(correct) {
			continue
		}
		out = append(out, Conflict{
			Kind:          TimeConflict,
			TaskID:        t.ID,
			DependencyID:  target.ID,
			Start:         t.Start,
			DependencyEnd: target.End,
			Lag:           dep.Lag,
			OverlapDays:   calendar.DaysBetween(t.Start, correct),
			CorrectStart:  correct,
		})
	}
	return out
}

// DetectAllConflicts runs DetectConflicts over every task in collection
// order.
func DetectAllConflicts(store *task.Store) Report {
	var r Report
	for _, t := range store.Tasks() {
		found := DetectConflicts(store, t.ID)
		if len(found) == 0 {
			continue
		}
		r.Conflicts = append(r.Conflicts, found...)
		r.TaskIDs = append(r.TaskIDs, t.ID)
	}
	return r
}
