package graph

// EdgeKind tells stored edges apart from edges inferred for a collapsed
// summary. Renderers must draw the two differently.
type EdgeKind int

const (
	// EdgeNative is a dependency stored on a leaf task.
	EdgeNative EdgeKind = iota
	// EdgeDerived is inherited by a collapsed summary from a descendant.
	EdgeDerived
)

// String returns "native" or "derived".
func (k EdgeKind) String() string {
	if k == EdgeDerived {
		return "derived"
	}
	return "native"
}

// Edge is an effective dependency: From depends on To.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
	Lag  int

	// Via names the descendant holding the underlying edge. Empty for
	// native edges.
	Via string
}

// TaskEdges pairs a visible task with its effective dependencies.
type TaskEdges struct {
	TaskID string
	Edges  []Edge
}

// EffectiveDependencies returns the edges id carries in the current
// collapse state:
//   - a leaf returns its stored edges unchanged;
//   - an expanded summary returns nothing, its children draw their own;
//   - a collapsed summary returns one derived edge per distinct target of
//     its descendants' edges that lies outside its own subtree.
func (e *Engine) EffectiveDependencies(id string) []Edge {
	t := e.store.Get(id)
	if t == nil {
		return nil
	}
	if !t.Summary {
		edges := make([]Edge, 0, len(t.Dependencies))
		for _, d := range t.Dependencies {
			edges = append(edges, Edge{From: id, To: d.TaskID, Kind: EdgeNative, Lag: d.Lag})
		}
		return edges
	}
	if !t.Collapsed {
		return nil
	}

	below := e.Descendants(id)
	inside := make(map[string]bool, len(below)+1)
	inside[id] = true
	for _, d := range below {
		inside[d] = true
	}

	var edges []Edge
	seen := make(map[string]bool)
	for _, d := range below {
		leaf := e.store.Get(d)
		if leaf == nil || leaf.Summary {
			continue
		}
		for _, dep := range leaf.Dependencies {
			if inside[dep.TaskID] || seen[dep.TaskID] {
				continue
			}
			seen[dep.TaskID] = true
			edges = append(edges, Edge{
				From: id,
				To:   dep.TaskID,
				Kind: EdgeDerived,
				Lag:  dep.Lag,
				Via:  d,
			})
		}
	}
	return edges
}

// VisibleEffectiveDependencies returns, in collection order, every task not
// hidden by a collapsed ancestor together with its effective edges. This is
// exactly the set of arrows a renderer should draw.
func (e *Engine) VisibleEffectiveDependencies() []TaskEdges {
	var out []TaskEdges
	for _, t := range e.store.Tasks() {
		if e.IsHidden(t.ID) {
			continue
		}
		out = append(out, TaskEdges{TaskID: t.ID, Edges: e.EffectiveDependencies(t.ID)})
	}
	return out
}
