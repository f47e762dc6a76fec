package dag

// CriticalPath returns the chain of nodes with the greatest summed weight,
// in dependency-first order, together with that weight. Ties keep the
// earliest inserted end node. Returns ErrCycle if the graph has a cycle.
func (d *DAG) CriticalPath() ([]string, int, error) {
	order, err := d.TopologicalSort()
	if err != nil {
		return nil, 0, err
	}
	if len(order) == 0 {
		return nil, 0, nil
	}

	// dist[v] is the heaviest chain ending at v, v included.
	dist := make(map[string]int, len(order))
	prev := make(map[string]string, len(order))
	for _, id := range order {
		dist[id] = d.nodes[id].Weight
	}
	for _, v := range order {
		for _, w := range d.DirectDependents(v) {
			if candidate := dist[v] + d.nodes[w].Weight; candidate > dist[w] {
				dist[w] = candidate
				prev[w] = v
			}
		}
	}

	end := order[0]
	for _, id := range order {
		if dist[id] > dist[end] || (dist[id] == dist[end] && d.nodes[id].Index < d.nodes[end].Index) {
			end = id
		}
	}

	var path []string
	for cur := end; cur != ""; cur = prev[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, dist[end], nil
}
