package dag

import "sort"

// Track is a weakly connected component of the graph: a set of nodes
// linked to each other through edges in either direction and to nothing
// outside. Independent tracks are drawn as separate PERT sub-networks.
type Track struct {
	// ID is assigned after sorting, starting at 0 for the largest track.
	ID int

	// NodeIDs lists the member nodes ordered by level, then insertion.
	NodeIDs []string

	// Weight is the summed node weight of the track.
	Weight int
}

// ComputeTracks partitions the graph with a disjoint-set union over its
// edges, assigns Node.TrackID, and returns tracks sorted by size (largest
// first) with the earliest inserted member as tiebreaker. It tolerates
// cycles; members are ordered by ComputeLevels.
func (d *DAG) ComputeTracks() []Track {
	if len(d.nodes) == 0 {
		return nil
	}

	order := d.Nodes()
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	sets := newDisjointSet(len(order))
	for from, deps := range d.adjacency {
		for to := range deps {
			sets.union(pos[from], pos[to])
		}
	}

	level := d.ComputeLevels().LevelOf()
	groups := make(map[int][]string)
	for i, id := range order {
		root := sets.find(i)
		groups[root] = append(groups[root], id)
	}

	tracks := make([]Track, 0, len(groups))
	for _, members := range groups {
		sort.SliceStable(members, func(i, j int) bool {
			return level[members[i]] < level[members[j]]
		})
		weight := 0
		for _, id := range members {
			weight += d.nodes[id].Weight
		}
		tracks = append(tracks, Track{NodeIDs: members, Weight: weight})
	}

	sort.Slice(tracks, func(i, j int) bool {
		if len(tracks[i].NodeIDs) != len(tracks[j].NodeIDs) {
			return len(tracks[i].NodeIDs) > len(tracks[j].NodeIDs)
		}
		return firstIndex(d, tracks[i]) < firstIndex(d, tracks[j])
	})

	for i := range tracks {
		tracks[i].ID = i
		for _, id := range tracks[i].NodeIDs {
			d.nodes[id].TrackID = i
		}
	}
	return tracks
}

func firstIndex(d *DAG, tr Track) int {
	lowest := -1
	for _, id := range tr.NodeIDs {
		if idx := d.nodes[id].Index; lowest < 0 || idx < lowest {
			lowest = idx
		}
	}
	return lowest
}

// disjointSet is a union-find over dense integer ids with path halving
// and union by size.
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), size: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
		ds.size[i] = 1
	}
	return ds
}

func (ds *disjointSet) find(x int) int {
	for ds.parent[x] != x {
		ds.parent[x] = ds.parent[ds.parent[x]]
		x = ds.parent[x]
	}
	return x
}

func (ds *disjointSet) union(a, b int) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	if ds.size[ra] < ds.size[rb] {
		ra, rb = rb, ra
	}
	ds.parent[rb] = ra
	ds.size[ra] += ds.size[rb]
}
