package validate

import "sort"

// findCycles returns one path per cycle in succ, each starting and ending
// at the same runtime id. Components are found with Tarjan's algorithm;
// single nodes only count when they feed themselves.
func findCycles(succ map[string][]string) [][]string {
	var cycles [][]string
	for _, scc := range tarjanSCC(succ) {
		if len(scc) > 1 || hasSelfLoop(scc[0], succ) {
			cycles = append(cycles, cyclePath(scc, succ))
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func hasSelfLoop(node string, succ map[string][]string) bool {
	for _, next := range succ[node] {
		if next == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components. Nodes are visited in
// sorted order so the result is stable for a fixed graph.
func tarjanSCC(succ map[string][]string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range succ[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(succ))
	for id := range succ {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	for _, id := range nodes {
		if _, visited := indices[id]; !visited {
			strongConnect(id)
		}
	}
	return sccs
}

// cyclePath walks the component from its smallest id, following edges to
// unvisited members until it returns to the start.
func cyclePath(scc []string, succ map[string][]string) []string {
	members := make(map[string]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}
	sorted := append([]string(nil), scc...)
	sort.Strings(sorted)

	start := sorted[0]
	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, w := range succ[current] {
			if w == start {
				next = w
				break
			}
			if members[w] && !visited[w] && (next == "" || w < next) {
				next = w
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}
	return path
}
