package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gammazero/toposort"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/task"
)

// Fix records one date rewrite made by AutoFixConflicts.
type Fix struct {
	TaskID       string
	DependencyID string // the dependency that set the new start
	OldStart     time.Time
	OldEnd       time.Time
	NewStart     time.Time
	NewEnd       time.Time
}

// String renders the fix as a one-line message.
func (f Fix) String() string {
	return fmt.Sprintf("%s moved %s..%s → %s..%s (after %s)",
		f.TaskID,
		calendar.FormatDate(f.OldStart), calendar.FormatDate(f.OldEnd),
		calendar.FormatDate(f.NewStart), calendar.FormatDate(f.NewEnd),
		f.DependencyID)
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Fixes []Fix
	// Residual holds conflicts still present after the fix pass, such as
	// those on a dependency cycle or edges to missing tasks.
	Residual Report
}

// Option configures AutoFixConflicts and Resolve.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for fix and ordering messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// AutoFixConflicts moves every non-summary, non-milestone task that starts
// too early to the day after its latest dependency end (plus lag), keeping
// its duration. Tasks are visited in dependency order so a chain settles in
// one pass; a cyclic graph falls back to collection order. It never loops:
// run DetectAllConflicts afterwards, or use Resolve, to see what remains.
func AutoFixConflicts(store *task.Store, opts ...Option) []Fix {
	o := buildOptions(opts)
	var fixes []Fix
	for _, id := range fixOrder(store, o.logger) {
		t := store.Get(id)
		if t == nil || t.Summary || t.Milestone || len(t.Dependencies) == 0 {
			continue
		}

		var required time.Time
		var cause string
		for _, dep := range t.Dependencies {
			target := store.Get(dep.TaskID)
			if target == nil {
				continue
			}
			if earliest := EarliestStart(target.End, dep.Lag); earliest.After(required) {
				required, cause = earliest, target.ID
			}
		}
		if cause == "" || !t.Start.Before(required) {
			continue
		}

		fix := Fix{
			TaskID:       t.ID,
			DependencyID: cause,
			OldStart:     t.Start,
			OldEnd:       t.End,
			NewStart:     required,
			NewEnd:       calendar.ComputeEndDate(required, t.Duration, t.DurationType),
		}
		if err := store.SetDates(t.ID, fix.NewStart, fix.NewEnd); err != nil {
			o.logger.Error("applying fix", "task", t.ID, "error", err)
			continue
		}
		o.logger.Debug("conflict fixed", "task", t.ID, "after", cause,
			"start", calendar.FormatDate(fix.NewStart), "end", calendar.FormatDate(fix.NewEnd))
		fixes = append(fixes, fix)
	}
	return fixes
}

// Resolve runs one AutoFixConflicts pass and re-scans the store.
func Resolve(store *task.Store, opts ...Option) Resolution {
	fixes := AutoFixConflicts(store, opts...)
	return Resolution{Fixes: fixes, Residual: DetectAllConflicts(store)}
}

// fixOrder returns every task id with dependencies ahead of dependents.
// Tasks without edges follow in collection order. On a cycle the plain
// collection order is used.
func fixOrder(store *task.Store, logger *slog.Logger) []string {
	ids := store.IDs()
	var edges []toposort.Edge
	for _, t := range store.Tasks() {
		for _, dep := range t.Dependencies {
			if store.Has(dep.TaskID) {
				edges = append(edges, toposort.Edge{dep.TaskID, t.ID})
			}
		}
	}
	if len(edges) == 0 {
		return ids
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		logger.Warn("dependency cycle; fixing in collection order", "error", err)
		return ids
	}

	order := make([]string, 0, len(ids))
	placed := make(map[string]bool, len(ids))
	for _, node := range sorted {
		id := node.(string)
		order = append(order, id)
		placed[id] = true
	}
	for _, id := range ids {
		if !placed[id] {
			order = append(order, id)
		}
	}
	return order
}
