package dag

import "fmt"

// Level is one layer of a leveled graph. Level 0 holds nodes without
// dependencies; every other node sits one past its deepest dependency.
type Level struct {
	Number  int
	NodeIDs []string // insertion order
}

// Leveling is the result of ComputeLevels. When the graph has a cycle the
// nodes that could not be ordered are gathered into a final level and
// listed in Cyclic, so a layout is always available.
type Leveling struct {
	Levels []Level
	Cyclic []string
}

// Err returns an error wrapping ErrCycle when the fallback level was used.
func (l Leveling) Err() error {
	if len(l.Cyclic) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d node(s) placed in fallback level %d",
		ErrCycle, len(l.Cyclic), len(l.Levels)-1)
}

// LevelOf maps every node ID to its level number.
func (l Leveling) LevelOf() map[string]int {
	out := make(map[string]int)
	for _, lv := range l.Levels {
		for _, id := range lv.NodeIDs {
			out[id] = lv.Number
		}
	}
	return out
}

// ComputeLevels groups nodes into layers with Kahn's algorithm: each
// round places every unplaced node whose dependencies are all placed.
// If a round finds nothing to place while nodes remain, those nodes form
// a single terminal level and are reported in Leveling.Cyclic.
func (d *DAG) ComputeLevels() Leveling {
	if len(d.nodes) == 0 {
		return Leveling{}
	}

	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.adjacency[id])
	}
	order := d.Nodes()
	placed := make(map[string]bool, len(d.nodes))

	var result Leveling
	for len(placed) < len(order) {
		var ready []string
		for _, id := range order {
			if !placed[id] && inDegree[id] == 0 {
				ready = append(ready, id)
			}
		}

		if len(ready) == 0 {
			for _, id := range order {
				if !placed[id] {
					ready = append(ready, id)
				}
			}
			result.Cyclic = append([]string(nil), ready...)
		}

		for _, id := range ready {
			placed[id] = true
		}
		for _, id := range ready {
			for dependent := range d.reverse[id] {
				inDegree[dependent]--
			}
		}
		result.Levels = append(result.Levels, Level{
			Number:  len(result.Levels),
			NodeIDs: ready,
		})
	}
	return result
}
