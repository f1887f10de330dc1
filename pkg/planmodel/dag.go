package planmodel

import (
	"fmt"
	"strings"
)

// OperationDAG is the derived dependency-graph view of a QueryPlan
// (spec.md §3, §4.1). It is built once from a plan's operations and
// does not track mutation of operation state afterward.
type OperationDAG struct {
	forward map[string][]string // dep -> dependents
	reverse map[string][]string // op -> its depends_on
	nodes   []string
}

// BuildDAG constructs the forward/reverse adjacency lists from a
// plan's operations, ported from `plans/dag.py`'s `_build_graph` /
// `_build_nx_graph` without NetworkX.
func BuildDAG(plan *QueryPlan) *OperationDAG {
	d := &OperationDAG{
		forward: make(map[string][]string, len(plan.Operations)),
		reverse: make(map[string][]string, len(plan.Operations)),
		nodes:   make([]string, 0, len(plan.Operations)),
	}
	for _, op := range plan.Operations {
		d.nodes = append(d.nodes, op.ID)
		if _, ok := d.forward[op.ID]; !ok {
			d.forward[op.ID] = nil
		}
		if _, ok := d.reverse[op.ID]; !ok {
			d.reverse[op.ID] = nil
		}
	}
	for _, op := range plan.Operations {
		for _, dep := range op.DependsOn {
			d.forward[dep] = append(d.forward[dep], op.ID)
			d.reverse[op.ID] = append(d.reverse[op.ID], dep)
		}
	}
	return d
}

// color marks DFS node state for cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// HasCycle runs a three-color DFS (spec.md §4.1) and, if a cycle
// exists, returns the offending path for error reporting (ported from
// `has_cycles`, replacing NetworkX's `find_cycle` with a recursive
// walk that records each node's DFS parent).
func (d *OperationDAG) HasCycle() (bool, []string) {
	colors := make(map[string]color, len(d.nodes))
	parent := make(map[string]string, len(d.nodes))

	var cyclePath []string
	var visit func(node string) bool
	visit = func(node string) bool {
		colors[node] = gray
		for _, next := range d.forward[node] {
			switch colors[next] {
			case white:
				parent[next] = node
				if visit(next) {
					return true
				}
			case gray:
				// Found a back-edge: reconstruct the cycle path by
				// walking parents from node back to next.
				var path []string
				cur := node
				for cur != next {
					path = append(path, cur)
					p, ok := parent[cur]
					if !ok {
						break
					}
					cur = p
				}
				path = append(path, next)
				// Reverse into dependency order and close the loop.
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				cyclePath = append(path, next)
				return true
			case black:
				// already fully explored, no cycle through here
			}
		}
		colors[node] = black
		return false
	}

	for _, n := range d.nodes {
		if colors[n] == white {
			if visit(n) {
				return true, cyclePath
			}
		}
	}
	return false, nil
}

// CyclePathString renders a cycle path the way spec.md §8 scenario S1
// reports it: "A->B->C->A".
func CyclePathString(path []string) string {
	return strings.Join(path, "->")
}

// TopologicalOrder runs Kahn's algorithm over the dependency graph,
// returning operation IDs in an order that respects every depends_on
// edge. Callers must check HasCycle first; TopologicalOrder returns
// an error if the graph turns out to be cyclic.
func (d *OperationDAG) TopologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for _, n := range d.nodes {
		inDegree[n] = len(d.reverse[n])
	}

	queue := make([]string, 0, len(d.nodes))
	for _, n := range d.nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, dependent := range d.forward[n] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(d.nodes) {
		return nil, fmt.Errorf("planmodel: cannot compute topological order, graph has a cycle")
	}
	return order, nil
}

// Leaves returns every operation ID with no dependents — a terminal
// node of the dependency graph, in the sense spec.md §4.5's "every
// leaf node" and §4.7 step 5's "merge over all leaf successes" use the
// term: an operation nothing else in the plan depends on, so its
// result is not folded into any other operation downstream. Order
// matches the plan's own operation order.
func (d *OperationDAG) Leaves() []string {
	var leaves []string
	for _, n := range d.nodes {
		if len(d.forward[n]) == 0 {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// ParallelLayers repeatedly emits the set of nodes with in-degree
// zero, removes them, and recomputes — yielding layers of operations
// that could run concurrently. The executor does not require layer
// boundaries; this schedule is advisory only (spec.md §4.1).
func (d *OperationDAG) ParallelLayers() ([][]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	remaining := make(map[string]bool, len(d.nodes))
	for _, n := range d.nodes {
		inDegree[n] = len(d.reverse[n])
		remaining[n] = true
	}

	var layers [][]string
	for len(remaining) > 0 {
		var layer []string
		for _, n := range d.nodes {
			if remaining[n] && inDegree[n] == 0 {
				layer = append(layer, n)
			}
		}
		if len(layer) == 0 {
			return nil, fmt.Errorf("planmodel: cannot compute parallel layers, graph has a cycle")
		}
		for _, n := range layer {
			delete(remaining, n)
			for _, dependent := range d.forward[n] {
				inDegree[dependent]--
			}
		}
		layers = append(layers, layer)
	}
	return layers, nil
}
