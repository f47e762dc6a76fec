package graph

import (
	"slices"

	"github.com/papapumpkin/gantry/internal/dag"
	"github.com/papapumpkin/gantry/internal/task"
)

// Filter selects the tasks that take part in a layout. A nil Filter keeps
// every task.
type Filter func(*task.Task) bool

// Layout is a leveled PERT network.
type Layout struct {
	// Levels holds task ids by level, collection order within a level.
	Levels []dag.Level

	// Cyclic lists the tasks placed in the fallback level because their
	// dependencies form a cycle. Empty for a healthy graph.
	Cyclic []string

	// Tracks groups the laid-out tasks into independent sub-networks.
	Tracks []dag.Track

	// CriticalPath is the heaviest duration chain, empty when Cyclic is not.
	CriticalPath []string
	CriticalDays int
}

// Levels lays out the tasks kept by keep. Each task contributes its
// effective dependencies, so a collapsed summary carries the edges of its
// hidden children. An edge to a task outside the layout is drawn to that
// task's nearest kept ancestor, or ignored when none is kept. A cycle
// never fails the layout; it is logged and reported in Layout.Cyclic.
func (e *Engine) Levels(keep Filter) Layout {
	g := e.Network(keep)

	leveling := g.ComputeLevels()
	layout := Layout{
		Levels: leveling.Levels,
		Cyclic: leveling.Cyclic,
		Tracks: g.ComputeTracks(),
	}
	if err := leveling.Err(); err != nil {
		e.logger.Warn("dependency cycle in layout; remaining tasks share the last level",
			"tasks", leveling.Cyclic, "error", err)
		return layout
	}
	if path, days, err := g.CriticalPath(); err == nil {
		layout.CriticalPath, layout.CriticalDays = path, days
	}
	return layout
}

// Network builds the dependency graph over the tasks kept by keep, weighted
// by duration. Stored data may hold cycles, so edges are added unchecked.
func (e *Engine) Network(keep Filter) *dag.DAG {
	g := dag.New()
	var kept []*task.Task
	for _, t := range e.store.Tasks() {
		if keep != nil && !keep(t) {
			continue
		}
		if err := g.AddNode(t.ID, t.Duration); err != nil {
			continue
		}
		kept = append(kept, t)
	}
	for _, t := range kept {
		for _, edge := range e.EffectiveDependencies(t.ID) {
			to := e.layoutTarget(g, t.ID, edge.To)
			if to == "" {
				continue
			}
			// Only self edges fail here; both endpoints exist.
			_ = g.Link(t.ID, to)
		}
	}
	return g
}

// layoutTarget returns the node that stands in for to in g: to itself when
// kept, otherwise its nearest kept ancestor. An empty result means the edge
// has no place in the layout, as when the stand-in is from or one of its
// own ancestors.
func (e *Engine) layoutTarget(g *dag.DAG, from, to string) string {
	if g.Node(to) != nil {
		return to
	}
	for _, a := range e.Ancestors(to) {
		if g.Node(a) == nil {
			continue
		}
		if a == from || slices.Contains(e.Ancestors(from), a) {
			return ""
		}
		return a
	}
	return ""
}

// LeavesOnly keeps tasks without children.
func LeavesOnly(t *task.Task) bool {
	return !t.Summary
}

// Visible returns a Filter keeping tasks that no collapsed ancestor hides.
func (e *Engine) Visible() Filter {
	return func(t *task.Task) bool {
		return !e.IsHidden(t.ID)
	}
}
