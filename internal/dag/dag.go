package dag

import (
	"cmp"
	"container/heap"
	"fmt"
)

// New creates and returns an initialized, empty Graph.
func New[K cmp.Ordered]() *Graph[K] {
	return &Graph[K]{
		nodes: make(map[K]*node[K]),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph[K]) AddNode(id K) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node[K]{
		id:           id,
		depSet:       make(map[K]struct{}),
		dependentSet: make(map[K]struct{}),
	}
	g.order = append(g.order, id)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is
// returned if either node does not exist. Adding an existing edge is a no-op.
// A self edge is allowed and shows up as a cycle.
func (g *Graph[K]) AddEdge(fromID, toID K) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %v", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %v", toID)
	}

	if _, ok := toNode.depSet[fromID]; ok {
		return nil
	}
	toNode.depSet[fromID] = struct{}{}
	toNode.deps = append(toNode.deps, fromID)
	fromNode.dependentSet[toID] = struct{}{}
	fromNode.dependents = append(fromNode.dependents, toID)

	return nil
}

// Has reports whether the node exists.
func (g *Graph[K]) Has(id K) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph[K]) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// Nodes returns every node ID in insertion order.
func (g *Graph[K]) Nodes() []K {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]K(nil), g.order...)
}

// Dependencies returns the IDs the given node depends on, in the order the
// edges were added.
func (g *Graph[K]) Dependencies(id K) ([]K, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %v", id)
	}
	return append([]K(nil), n.deps...), nil
}

// Dependents returns the IDs that depend on the given node, in the order the
// edges were added.
func (g *Graph[K]) Dependents(id K) ([]K, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %v", id)
	}
	return append([]K(nil), n.dependents...), nil
}

// DetectCycles walks the graph depth-first from every node in insertion
// order, following dependencies, and returns each cycle it closes. A cycle is
// reported in discovery order with its first node repeated at the end, e.g.
// [x y x] when x depends on y and y depends on x.
func (g *Graph[K]) DetectCycles() [][]K {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	const (
		unvisited = iota
		inProgress
		done
	)
	color := make(map[K]int, len(g.nodes))
	var stack []K
	var cycles [][]K

	var visit func(n *node[K])
	visit = func(n *node[K]) {
		color[n.id] = inProgress
		stack = append(stack, n.id)

		for _, depID := range n.deps {
			switch color[depID] {
			case inProgress:
				start := len(stack) - 1
				for stack[start] != depID {
					start--
				}
				cycle := append([]K(nil), stack[start:]...)
				cycles = append(cycles, append(cycle, depID))
			case unvisited:
				visit(g.nodes[depID])
			}
		}

		stack = stack[:len(stack)-1]
		color[n.id] = done
	}

	for _, id := range g.order {
		if color[id] == unvisited {
			visit(g.nodes[id])
		}
	}
	return cycles
}

// TopologicalSort returns the nodes ordered so that every node comes after
// all of its dependencies. Among nodes that are ready at the same time the
// smallest ID goes first. An error is returned if the graph has a cycle.
func (g *Graph[K]) TopologicalSort() ([]K, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	pending := make(map[K]int, len(g.nodes))
	ready := &minHeap[K]{}
	for _, id := range g.order {
		pending[id] = len(g.nodes[id].deps)
		if pending[id] == 0 {
			heap.Push(ready, id)
		}
	}

	out := make([]K, 0, len(g.nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(K)
		out = append(out, id)
		for _, dependent := range g.nodes[id].dependents {
			pending[dependent]--
			if pending[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}

	if len(out) != len(g.nodes) {
		return nil, fmt.Errorf("cycle detected: %d of %d nodes could not be ordered", len(g.nodes)-len(out), len(g.nodes))
	}
	return out, nil
}

type minHeap[K cmp.Ordered] []K

func (h minHeap[K]) Len() int           { return len(h) }
func (h minHeap[K]) Less(i, j int) bool { return h[i] < h[j] }
func (h minHeap[K]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap[K]) Push(x any)        { *h = append(*h, x.(K)) }
func (h *minHeap[K]) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
