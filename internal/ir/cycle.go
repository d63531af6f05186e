package ir

import (
	"sort"
	"strings"
)

// findCycle detects a same-step dependency cycle among the nodes using
// Tarjan's strongly-connected-components algorithm. It returns the ids
// of one offending SCC (or a self-loop), or nil when the graph is a DAG.
//
// Identifier cycles are always errors here, unlike time-lagged
// self-reference (x[t] = f(x[t-1])), which never produces an edge.
func findCycle(nodes []*Node) []string {
	graph := make(map[string][]string, len(nodes))
	exists := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		exists[n.ID] = true
	}
	for _, n := range nodes {
		for _, d := range n.Deps {
			if exists[d] {
				graph[n.ID] = append(graph[n.ID], d)
			}
		}
	}

	var (
		counter int
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		found   []string
	)

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
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
			if found == nil && (len(scc) > 1 || hasSelfLoop(scc[0], graph)) {
				found = scc
			}
		}
	}

	for _, n := range nodes {
		if _, seen := indices[n.ID]; !seen && found == nil {
			strongconnect(n.ID)
		}
	}
	return found
}

func hasSelfLoop(id string, graph map[string][]string) bool {
	for _, w := range graph[id] {
		if w == id {
			return true
		}
	}
	return false
}

// cyclePath renders an SCC as "a -> b -> a", starting from the earliest
// declared member so the message is stable.
func cyclePath(scc []string, decl map[string]int) string {
	sorted := append([]string(nil), scc...)
	sort.Slice(sorted, func(i, j int) bool { return decl[sorted[i]] < decl[sorted[j]] })
	return strings.Join(append(sorted, sorted[0]), " -> ")
}
