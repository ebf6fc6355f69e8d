package dag

import (
	"cmp"
	"sync"
)

// Graph is a collection of nodes and their dependencies.
// All operations on the graph are concurrency-safe.
type Graph[K cmp.Ordered] struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[K]*node[K]
	// order records node IDs in insertion order.
	order []K
}

// node represents a single vertex in the graph. Edge lists keep insertion
// order; the sets reject duplicate edges.
type node[K cmp.Ordered] struct {
	id           K
	deps         []K
	depSet       map[K]struct{}
	dependents   []K
	dependentSet map[K]struct{}
}
