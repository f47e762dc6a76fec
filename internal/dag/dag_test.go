package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
)

// nodeSpec describes a node for buildDAG: (id, weight, deps...).
type nodeSpec struct {
	id     string
	weight int
	deps   []string
}

func buildDAG(t *testing.T, specs []nodeSpec) *DAG {
	t.Helper()
	d := New()
	for _, s := range specs {
		if err := d.AddNode(s.id, s.weight); err != nil {
			t.Fatalf("AddNode(%q): %v", s.id, err)
		}
	}
	for _, s := range specs {
		for _, dep := range s.deps {
			if err := d.AddEdge(s.id, dep); err != nil {
				t.Fatalf("AddEdge(%q, %q): %v", s.id, dep, err)
			}
		}
	}
	return d
}

// validTopologicalOrder checks that every dependency appears before
// its dependent in the ordering.
func validTopologicalOrder(d *DAG, order []string) bool {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for id, deps := range d.adjacency {
		for dep := range deps {
			if pos[dep] >= pos[id] {
				return false
			}
		}
	}
	return true
}

func TestNew(t *testing.T) {
	t.Parallel()
	d := New()
	if d.Len() != 0 {
		t.Errorf("new DAG has %d nodes, want 0", d.Len())
	}
	if nodes := d.Nodes(); len(nodes) != 0 {
		t.Errorf("new DAG Nodes() = %v, want empty", nodes)
	}
}

func TestAddNode(t *testing.T) {
	t.Parallel()

	t.Run("basic add", func(t *testing.T) {
		t.Parallel()
		d := New()
		if err := d.AddNode("a", 3); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
		n := d.Node("a")
		if n == nil {
			t.Fatal("Node(a) returned nil")
		}
		if n.Weight != 3 || n.Index != 0 {
			t.Errorf("node = %+v, want weight 3 index 0", n)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		d := New()
		_ = d.AddNode("a", 1)
		err := d.AddNode("a", 2)
		if !errors.Is(err, ErrDuplicateNode) {
			t.Errorf("got %v, want ErrDuplicateNode", err)
		}
	})

	t.Run("index survives removal", func(t *testing.T) {
		t.Parallel()
		d := New()
		_ = d.AddNode("a", 1)
		_ = d.AddNode("b", 1)
		_ = d.Remove("a")
		_ = d.AddNode("c", 1)
		if got := d.Nodes(); !slices.Equal(got, []string{"b", "c"}) {
			t.Errorf("Nodes() = %v, want [b c]", got)
		}
	})
}

func TestAddEdge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		from  string
		to    string
		want  error
	}{
		{"basic edge", []string{"a", "b"}, nil, "a", "b", nil},
		{"self edge", []string{"a"}, nil, "a", "a", ErrSelfEdge},
		{"missing from node", []string{"b"}, nil, "a", "b", ErrNodeNotFound},
		{"missing to node", []string{"a"}, nil, "a", "b", ErrNodeNotFound},
		{"duplicate edge is no-op", []string{"a", "b"}, [][2]string{{"a", "b"}}, "a", "b", nil},
		{"direct cycle", []string{"a", "b"}, [][2]string{{"a", "b"}}, "b", "a", ErrCycle},
		{"transitive cycle", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}}, "c", "a", ErrCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := New()
			for _, n := range tt.nodes {
				_ = d.AddNode(n, 1)
			}
			for _, e := range tt.edges {
				if err := d.AddEdge(e[0], e[1]); err != nil {
					t.Fatalf("setup AddEdge(%s, %s): %v", e[0], e[1], err)
				}
			}
			err := d.AddEdge(tt.from, tt.to)
			if tt.want == nil && err != nil {
				t.Fatalf("AddEdge: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	d := buildDAG(t, []nodeSpec{
		{"b", 1, nil},
		{"a", 1, []string{"b"}},
	})
	err := d.AddEdge("b", "a")
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Error(), "b → a") {
		t.Errorf("error %q does not name the rejected edge", err)
	}
}

func TestLink_AllowsCycle(t *testing.T) {
	t.Parallel()
	d := buildDAG(t, []nodeSpec{
		{"b", 1, nil},
		{"a", 1, []string{"b"}},
	})
	if err := d.Link("b", "a"); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if !d.HasPath("b", "a") || !d.HasPath("a", "b") {
		t.Error("expected paths in both directions after Link")
	}
	if err := d.Link("a", "a"); !errors.Is(err, ErrSelfEdge) {
		t.Errorf("Link self = %v, want ErrSelfEdge", err)
	}
	if _, err := d.TopologicalSort(); !errors.Is(err, ErrCycle) {
		t.Errorf("TopologicalSort = %v, want ErrCycle", err)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	t.Run("remove middle node", func(t *testing.T) {
		t.Parallel()
		// a → b → c
		d := buildDAG(t, []nodeSpec{
			{"c", 1, nil},
			{"b", 1, []string{"c"}},
			{"a", 1, []string{"b"}},
		})
		if err := d.Remove("b"); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if d.Len() != 2 {
			t.Errorf("Len() = %d, want 2", d.Len())
		}
		if len(d.adjacency["a"]) != 0 {
			t.Errorf("node a still has deps: %v", d.adjacency["a"])
		}
		if len(d.reverse["c"]) != 0 {
			t.Errorf("node c still has dependents: %v", d.reverse["c"])
		}
	})

	t.Run("remove nonexistent", func(t *testing.T) {
		t.Parallel()
		d := New()
		err := d.Remove("x")
		if !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("got %v, want ErrNodeNotFound", err)
		}
	})
}

func TestRemoveEdge(t *testing.T) {
	t.Parallel()
	d := buildDAG(t, []nodeSpec{
		{"b", 1, nil},
		{"a", 1, []string{"b"}},
	})
	d.RemoveEdge("a", "b")
	if d.HasPath("a", "b") {
		t.Error("edge a → b survived RemoveEdge")
	}
	d.RemoveEdge("missing", "b") // no panic
}

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	t.Run("linear", func(t *testing.T) {
		t.Parallel()
		d := buildDAG(t, []nodeSpec{
			{"a", 1, []string{"b"}},
			{"b", 1, []string{"c"}},
			{"c", 1, nil},
		})
		order, err := d.TopologicalSort()
		if err != nil {
			t.Fatalf("TopologicalSort: %v", err)
		}
		if !slices.Equal(order, []string{"c", "b", "a"}) {
			t.Errorf("order = %v, want [c b a]", order)
		}
	})

	t.Run("ties follow insertion order", func(t *testing.T) {
		t.Parallel()
		d := buildDAG(t, []nodeSpec{
			{"z", 1, nil},
			{"m", 1, nil},
			{"a", 1, nil},
		})
		order, _ := d.TopologicalSort()
		if !slices.Equal(order, []string{"z", "m", "a"}) {
			t.Errorf("order = %v, want insertion order", order)
		}
	})

	t.Run("diamond", func(t *testing.T) {
		t.Parallel()
		d := buildDAG(t, []nodeSpec{
			{"d", 1, nil},
			{"b", 1, []string{"d"}},
			{"c", 1, []string{"d"}},
			{"a", 1, []string{"b", "c"}},
		})
		order, err := d.TopologicalSort()
		if err != nil {
			t.Fatalf("TopologicalSort: %v", err)
		}
		if !validTopologicalOrder(d, order) {
			t.Errorf("invalid topological order: %v", order)
		}
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		order, err := New().TopologicalSort()
		if err != nil || len(order) != 0 {
			t.Errorf("TopologicalSort on empty = %v, %v", order, err)
		}
	})
}

func TestDependenciesAndDependents(t *testing.T) {
	t.Parallel()
	//   a → b → d
	//   a → c → d
	//   e (isolated)
	d := buildDAG(t, []nodeSpec{
		{"a", 1, []string{"b", "c"}},
		{"b", 1, []string{"d"}},
		{"c", 1, []string{"d"}},
		{"d", 1, nil},
		{"e", 1, nil},
	})

	if got := d.Dependencies("a"); !slices.Equal(got, []string{"b", "c", "d"}) {
		t.Errorf("Dependencies(a) = %v", got)
	}
	if got := d.Dependents("d"); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Dependents(d) = %v", got)
	}
	if got := d.Dependencies("e"); len(got) != 0 {
		t.Errorf("Dependencies(e) = %v, want empty", got)
	}
	if got := d.Dependencies("nope"); got != nil {
		t.Errorf("Dependencies(unknown) = %v, want nil", got)
	}
	if got := d.DirectDependencies("a"); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("DirectDependencies(a) = %v", got)
	}
	if got := d.DirectDependents("d"); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("DirectDependents(d) = %v", got)
	}
}

func TestDependencies_CycleExcludesSelf(t *testing.T) {
	t.Parallel()
	d := buildDAG(t, []nodeSpec{
		{"a", 1, []string{"b"}},
		{"b", 1, nil},
	})
	_ = d.Link("b", "a")
	if got := d.Dependencies("a"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Dependencies(a) on cycle = %v, want [b]", got)
	}
}

func TestHasPath(t *testing.T) {
	t.Parallel()
	d := buildDAG(t, []nodeSpec{
		{"a", 1, []string{"b"}},
		{"b", 1, []string{"c"}},
		{"c", 1, nil},
		{"x", 1, nil},
	})
	tests := []struct {
		src, dst string
		want     bool
	}{
		{"a", "c", true},
		{"a", "b", true},
		{"c", "a", false},
		{"a", "x", false},
		{"a", "a", false},
	}
	for _, tt := range tests {
		if got := d.HasPath(tt.src, tt.dst); got != tt.want {
			t.Errorf("HasPath(%s, %s) = %v, want %v", tt.src, tt.dst, got, tt.want)
		}
	}
}

// TestAcceptedEdgesStayAcyclic adds every possible edge in a fixed order
// and checks that the edges AddEdge accepts never form a cycle.
func TestAcceptedEdgesStayAcyclic(t *testing.T) {
	t.Parallel()
	d := New()
	const n = 12
	for i := 0; i < n; i++ {
		_ = d.AddNode(fmt.Sprintf("n%02d", i), 1)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			// Alternate direction so half the candidates would close loops.
			from, to := fmt.Sprintf("n%02d", (i*7+j)%n), fmt.Sprintf("n%02d", (j*5+i)%n)
			_ = d.AddEdge(from, to)
		}
	}
	if _, err := d.TopologicalSort(); err != nil {
		t.Fatalf("accepted edges formed a cycle: %v", err)
	}
	if lv := d.ComputeLevels(); len(lv.Cyclic) != 0 {
		t.Fatalf("leveling found a cycle: %v", lv.Cyclic)
	}
}
