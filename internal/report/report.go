// Package report renders engine results as terminal text. Each Strategy
// produces one view of a View snapshot; the CLI picks the strategy that
// matches the command.
package report

import (
	"fmt"
	"strings"

	"github.com/papapumpkin/gantry/internal/graph"
	"github.com/papapumpkin/gantry/internal/schedule"
	"github.com/papapumpkin/gantry/internal/task"
)

// Edge strokes. Derived edges are inferred, so they must never look like
// edges a user authored.
const (
	StrokeNative  = "──▶"
	StrokeDerived = "┄┄▶"
)

// View is everything a Strategy may draw from. Strategies read only the
// fields they need.
type View struct {
	Tasks      *task.Store
	Layout     graph.Layout
	Edges      []graph.TaskEdges
	Conflicts  schedule.Report
	Resolution schedule.Resolution
}

// Strategy renders one view of the project.
type Strategy interface {
	Render(v View) string
}

// LevelsStrategy renders the PERT layout: one line per level, followed by
// the independent tracks and any cycle warning.
type LevelsStrategy struct {
	Styles Styles
}

// Render produces the leveled task listing.
func (s LevelsStrategy) Render(v View) string {
	if len(v.Layout.Levels) == 0 {
		return "No tasks to lay out.\n"
	}

	critical := make(map[string]bool, len(v.Layout.CriticalPath))
	for _, id := range v.Layout.CriticalPath {
		critical[id] = true
	}

	var b strings.Builder
	total := 0
	for _, lv := range v.Layout.Levels {
		total += len(lv.NodeIDs)
	}
	b.WriteString(s.Styles.Heading.Render(fmt.Sprintf("PERT levels (%d levels, %d tasks)", len(v.Layout.Levels), total)))
	b.WriteByte('\n')

	for _, lv := range v.Layout.Levels {
		labels := make([]string, len(lv.NodeIDs))
		for i, id := range lv.NodeIDs {
			label := taskLabel(v.Tasks, id)
			if critical[id] {
				label = s.Styles.Critical.Render(label + " *")
			} else {
				label = s.Styles.Task.Render(label)
			}
			labels[i] = label
		}
		fmt.Fprintf(&b, "  L%d  %s\n", lv.Number, strings.Join(labels, ", "))
	}

	if len(v.Layout.Tracks) > 1 {
		b.WriteByte('\n')
		b.WriteString(s.Styles.Heading.Render(fmt.Sprintf("Tracks (%d independent)", len(v.Layout.Tracks))))
		b.WriteByte('\n')
		for _, tr := range v.Layout.Tracks {
			fmt.Fprintf(&b, "  #%d  %s %s\n", tr.ID, strings.Join(tr.NodeIDs, ", "),
				s.Styles.Muted.Render(fmt.Sprintf("(%d tasks, %d days)", len(tr.NodeIDs), tr.Weight)))
		}
	}

	if len(v.Layout.CriticalPath) > 0 {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "%s %s\n",
			s.Styles.Critical.Render(fmt.Sprintf("Critical path (%d days):", v.Layout.CriticalDays)),
			strings.Join(v.Layout.CriticalPath, " → "))
	}

	if len(v.Layout.Cyclic) > 0 {
		b.WriteByte('\n')
		b.WriteString(s.Styles.Danger.Render("⚠ dependency cycle:"))
		fmt.Fprintf(&b, " %s placed in level %d\n",
			strings.Join(v.Layout.Cyclic, ", "), len(v.Layout.Levels)-1)
	}
	return b.String()
}

// ConflictStrategy lists schedule conflicts, one per line.
type ConflictStrategy struct {
	Styles Styles
}

// Render produces the conflict listing.
func (s ConflictStrategy) Render(v View) string {
	return s.Styles.renderConflicts(v.Conflicts)
}

// FixStrategy lists the dates an auto-fix pass rewrote and whatever
// conflicts survived it.
type FixStrategy struct {
	Styles Styles
}

// Render produces the fix listing followed by residual conflicts.
func (s FixStrategy) Render(v View) string {
	var b strings.Builder
	fixes := v.Resolution.Fixes
	if len(fixes) == 0 {
		b.WriteString("No changes needed.\n")
	} else {
		b.WriteString(s.Styles.Success.Render(fmt.Sprintf("✓ %d task(s) rescheduled", len(fixes))))
		b.WriteByte('\n')
		for _, f := range fixes {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}
	if !v.Resolution.Residual.Empty() {
		b.WriteByte('\n')
		b.WriteString(s.Styles.renderConflicts(v.Resolution.Residual))
	}
	return b.String()
}

func (st Styles) renderConflicts(r schedule.Report) string {
	if r.Empty() {
		return st.Success.Render("✓ No conflicts.") + "\n"
	}
	var b strings.Builder
	b.WriteString(st.Danger.Render(fmt.Sprintf("✗ %d conflict(s) on %d task(s)", len(r.Conflicts), len(r.TaskIDs))))
	b.WriteByte('\n')
	for _, c := range r.Conflicts {
		marker := "time"
		if c.Kind == schedule.MissingDependency {
			marker = "missing"
		}
		fmt.Fprintf(&b, "  %s %s\n", st.Muted.Render(fmt.Sprintf("[%s]", marker)), c)
	}
	return b.String()
}

// EdgesStrategy draws every visible effective dependency. Native edges are
// solid, derived edges dashed and annotated with the descendant that
// carries them.
type EdgesStrategy struct {
	Styles Styles
}

// Render produces one line per edge.
func (s EdgesStrategy) Render(v View) string {
	var b strings.Builder
	count := 0
	for _, te := range v.Edges {
		for _, e := range te.Edges {
			count++
			lag := ""
			if e.Lag != 0 {
				lag = fmt.Sprintf(" %+dd", e.Lag)
			}
			if e.Kind == graph.EdgeDerived {
				fmt.Fprintf(&b, "  %s %s %s%s %s\n",
					e.From, s.Styles.Muted.Render(StrokeDerived), e.To, lag,
					s.Styles.Muted.Render("(via "+e.Via+")"))
				continue
			}
			fmt.Fprintf(&b, "  %s %s %s%s\n", e.From, StrokeNative, e.To, lag)
		}
	}
	if count == 0 {
		return "No visible dependencies.\n"
	}
	return s.Styles.Heading.Render(fmt.Sprintf("Dependencies (%d)", count)) + "\n" + b.String()
}

// CriticalPathStrategy renders the heaviest duration chain with each step's
// length.
type CriticalPathStrategy struct {
	Styles Styles
}

// Render produces the critical path report.
func (s CriticalPathStrategy) Render(v View) string {
	if len(v.Layout.Cyclic) > 0 {
		return s.Styles.Danger.Render("✗ no critical path: the dependency graph has a cycle") + "\n"
	}
	path := v.Layout.CriticalPath
	if len(path) == 0 {
		return "No tasks in graph.\n"
	}

	var b strings.Builder
	b.WriteString(s.Styles.Heading.Render(fmt.Sprintf("Critical path: %d task(s), %d days", len(path), v.Layout.CriticalDays)))
	b.WriteByte('\n')
	for i, id := range path {
		days := 0
		if t := v.Tasks.Get(id); t != nil {
			days = t.Duration
		}
		fmt.Fprintf(&b, "  %d. %s %s\n", i+1, s.Styles.Critical.Render(taskLabel(v.Tasks, id)),
			s.Styles.Muted.Render(fmt.Sprintf("(%dd)", days)))
	}
	return b.String()
}

// taskLabel is the id, followed by the name when it differs.
func taskLabel(store *task.Store, id string) string {
	if store == nil {
		return id
	}
	t := store.Get(id)
	if t == nil || t.Name == "" || t.Name == id {
		return id
	}
	return fmt.Sprintf("%s %q", id, t.Name)
}
