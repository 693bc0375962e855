package netlist

import (
	"fmt"
	"sort"
)

// addEdge records a combinational dependency u -> v (v reads u this cycle).
func addEdge(fwd, rev [][]WireID, u, v WireID) {
	fwd[u] = append(fwd[u], v)
	rev[v] = append(rev[v], u)
}

// topoSort computes a topological order of the module's combinational DAG
// via Kahn's algorithm. On failure it returns an error naming one wire on
// the offending cycle.
func topoSort(m *Module) ([]WireID, error) {
	n := m.NumWires
	indeg := make([]int, n)
	for v := 0; v < n; v++ {
		indeg[v] = len(m.revEdges[v])
	}

	queue := make([]WireID, 0, n)
	for w := 0; w < n; w++ {
		if indeg[w] == 0 {
			queue = append(queue, WireID(w))
		}
	}
	// Deterministic order, so re-runs produce identical orderings.
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	order := make([]WireID, 0, n)
	indegLeft := append([]int(nil), indeg...)

	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		order = append(order, w)

		next := append([]WireID(nil), m.fwdEdges[w]...)
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, v := range next {
			indegLeft[v]--
			if indegLeft[v] == 0 {
				queue = append(queue, v)
				sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })
			}
		}
	}

	if len(order) == n {
		return order, nil
	}

	// Residual nodes with indegLeft > 0 are on (or feed into) a cycle. Find
	// one concrete cycle via DFS for a useful error message.
	residual := make(map[WireID]bool)
	for w := 0; w < n; w++ {
		if indegLeft[w] > 0 {
			residual[WireID(w)] = true
		}
	}
	cycle := findCycle(m, residual)
	name := wireLabel(m, cycle[0])
	return nil, fmt.Errorf("module %q contains combinational loop involving wire %s", m.Name, name)
}

// findCycle DFS-walks the residual (not-fully-ordered) subgraph to extract
// one concrete cycle, starting from the lowest-numbered residual wire for
// determinism.
func findCycle(m *Module, residual map[WireID]bool) []WireID {
	var start WireID = -1
	for w := range residual {
		if start == -1 || w < start {
			start = w
		}
	}

	visiting := make(map[WireID]int) // 0=unvisited,1=on-stack,2=done
	var path []WireID

	var dfs func(w WireID) []WireID
	dfs = func(w WireID) []WireID {
		visiting[w] = 1
		path = append(path, w)
		next := append([]WireID(nil), m.fwdEdges[w]...)
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, v := range next {
			if !residual[v] {
				continue
			}
			if visiting[v] == 1 {
				// Found the back-edge closing the cycle.
				return append([]WireID(nil), path...)
			}
			if visiting[v] == 0 {
				if c := dfs(v); c != nil {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		visiting[w] = 2
		return nil
	}

	if c := dfs(start); c != nil {
		return c
	}
	return []WireID{start}
}

func wireLabel(m *Module, w WireID) string {
	return m.WireLabel(w)
}

// WireLabel returns the symbolic name recovered from the netlist's netnames
// for wire w, or a synthetic "w<id>" placeholder if it carries none.
func (m *Module) WireLabel(w WireID) string {
	if name, ok := m.wireNames[w]; ok {
		return name
	}
	return fmt.Sprintf("w%d", w)
}

// computeInputDeps fills m.InputDeps by sweeping m.TopoOrder forward,
// unioning each wire's fanin dependency sets.
func computeInputDeps(m *Module) {
	m.InputDeps = make([]map[PortBit]struct{}, m.NumWires)
	for _, w := range m.TopoOrder {
		src := m.wireSource[w]
		if src.Instance >= 0 && int(src.Instance) < len(m.Instances) && m.Instances[src.Instance].Kind == InstInput {
			pb, ok := m.inputPortBit[w]
			if ok {
				m.InputDeps[w] = map[PortBit]struct{}{pb: {}}
				continue
			}
		}
		deps := make(map[PortBit]struct{})
		for _, u := range m.revEdges[w] {
			for pb := range m.InputDeps[u] {
				deps[pb] = struct{}{}
			}
		}
		m.InputDeps[w] = deps
	}
}
