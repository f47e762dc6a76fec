// Package dag provides the directed dependency graph behind the PERT view:
// checked edge insertion, transitive closure queries, Kahn leveling with a
// cycle fallback, independent track partitioning, and a duration-weighted
// critical path.
package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when the graph contains a dependency cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// Node represents a task in the graph.
type Node struct {
	ID     string
	Index  int // insertion position; orders nodes within a level
	Weight int // duration in days, used by CriticalPath

	// TrackID is populated by ComputeTracks.
	TrackID int
}

// DAG is a dependency graph. Edges point from a node to its dependencies:
// if A depends on B, there is an edge from A to B. AddEdge keeps the graph
// acyclic; Link does not, so graphs loaded from persisted data may contain
// cycles and every traversal tolerates them.
type DAG struct {
	nodes map[string]*Node
	// adjacency maps nodeID → set of dependency IDs (forward edges).
	adjacency map[string]map[string]bool
	// reverse maps nodeID → set of dependent IDs (backward edges).
	reverse map[string]map[string]bool
	seq     int
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:     make(map[string]*Node),
		adjacency: make(map[string]map[string]bool),
		reverse:   make(map[string]map[string]bool),
	}
}

// AddNode adds a node with the given ID and weight. Returns
// ErrDuplicateNode if a node with that ID already exists.
func (d *DAG) AddNode(id string, weight int) error {
	if _, exists := d.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.nodes[id] = &Node{
		ID:     id,
		Index:  d.seq,
		Weight: weight,
	}
	d.seq++
	d.adjacency[id] = make(map[string]bool)
	d.reverse[id] = make(map[string]bool)
	return nil
}

// AddEdge adds a dependency edge: from depends on to. Both nodes must
// already exist. Returns an error if either node is missing, the edge
// would create a self-loop, or the edge would introduce a cycle.
func (d *DAG) AddEdge(from, to string) error {
	if err := d.checkEndpoints(from, to); err != nil {
		return err
	}
	if d.adjacency[from][to] {
		return nil
	}
	// If to already reaches from, the new edge closes a loop.
	if d.HasPath(to, from) {
		return fmt.Errorf("%w: edge %s → %s would create a cycle", ErrCycle, from, to)
	}
	d.link(from, to)
	return nil
}

// Link adds the edge from → to without the cycle check. It is meant for
// rebuilding a graph from stored data, where a cycle must be reported by
// ComputeLevels rather than rejected on load.
func (d *DAG) Link(from, to string) error {
	if err := d.checkEndpoints(from, to); err != nil {
		return err
	}
	d.link(from, to)
	return nil
}

// RemoveEdge deletes the edge from → to if present.
func (d *DAG) RemoveEdge(from, to string) {
	if deps, ok := d.adjacency[from]; ok {
		delete(deps, to)
	}
	if deps, ok := d.reverse[to]; ok {
		delete(deps, from)
	}
}

// Remove removes a node and all its associated edges from the DAG.
// Returns ErrNodeNotFound if the node does not exist.
func (d *DAG) Remove(id string) error {
	if _, ok := d.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	for dep := range d.adjacency[id] {
		delete(d.reverse[dep], id)
	}
	delete(d.adjacency, id)
	for dependent := range d.reverse[id] {
		delete(d.adjacency[dependent], id)
	}
	delete(d.reverse, id)
	delete(d.nodes, id)
	return nil
}

// Node returns the node with the given ID, or nil if not found.
func (d *DAG) Node(id string) *Node {
	return d.nodes[id]
}

// Nodes returns all node IDs in insertion order.
func (d *DAG) Nodes() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	return d.inOrder(ids)
}

// Len returns the number of nodes in the DAG.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// DirectDependencies returns the IDs id points at, in insertion order.
func (d *DAG) DirectDependencies(id string) []string {
	return d.inOrder(keys(d.adjacency[id]))
}

// DirectDependents returns the IDs pointing at id, in insertion order.
func (d *DAG) DirectDependents(id string) []string {
	return d.inOrder(keys(d.reverse[id]))
}

// HasPath reports whether there is a directed path from src to dst
// through the dependency graph (forward edges).
func (d *DAG) HasPath(src, dst string) bool {
	if src == dst {
		return false
	}
	visited := map[string]bool{src: true}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range d.adjacency[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// Dependencies returns everything id transitively depends on, excluding id
// itself even when a cycle leads back to it. The result is in insertion
// order. Returns nil for an unknown node.
func (d *DAG) Dependencies(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	return d.inOrder(d.closure(id, d.adjacency))
}

// Dependents returns everything that transitively depends on id, in
// insertion order. Returns nil for an unknown node.
func (d *DAG) Dependents(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	return d.inOrder(d.closure(id, d.reverse))
}

// TopologicalSort returns node IDs in a valid topological order
// (dependencies come before dependents), breaking ties by insertion order.
// Returns ErrCycle if the graph contains a cycle.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.adjacency[id])
	}

	queue := d.inOrder(zeroDegreeNodes(inDegree))
	sorted := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		var freed []string
		for dependent := range d.reverse[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		queue = append(queue, d.inOrder(freed)...)
	}

	if len(sorted) != len(d.nodes) {
		return nil, fmt.Errorf("%w: not all nodes could be ordered (%d of %d)",
			ErrCycle, len(sorted), len(d.nodes))
	}
	return sorted, nil
}

func (d *DAG) checkEndpoints(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if _, ok := d.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := d.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	return nil
}

func (d *DAG) link(from, to string) {
	d.adjacency[from][to] = true
	d.reverse[to][from] = true
}

// closure performs a BFS over edges from id and returns every reachable
// node other than id.
func (d *DAG) closure(id string, edges map[string]map[string]bool) []string {
	visited := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range edges[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

// inOrder sorts ids in place by insertion index and returns them.
func (d *DAG) inOrder(ids []string) []string {
	sort.Slice(ids, func(i, j int) bool {
		return d.nodes[ids[i]].Index < d.nodes[ids[j]].Index
	})
	return ids
}

// zeroDegreeNodes returns IDs from the in-degree map that have zero value.
func zeroDegreeNodes(inDegree map[string]int) []string {
	var result []string
	for id, deg := range inDegree {
		if deg == 0 {
			result = append(result, id)
		}
	}
	return result
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
