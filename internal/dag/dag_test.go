package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New[string]()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAddNode(t *testing.T) {
	g := New[string]()

	g.AddNode("b")
	assert.Len(t, g.nodes, 1)
	nodeB, ok := g.nodes["b"]
	require.True(t, ok)
	assert.Equal(t, "b", nodeB.id)

	g.AddNode("b") // Test idempotency
	assert.Len(t, g.nodes, 1)

	g.AddNode("a")
	assert.Equal(t, []string{"b", "a"}, g.Nodes())
	assert.True(t, g.Has("a"))
	assert.False(t, g.Has("c"))
	assert.Equal(t, 2, g.Len())
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New[string]()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")

		require.NoError(t, g.AddEdge("c", "a")) // a depends on c
		require.NoError(t, g.AddEdge("b", "a")) // a depends on b
		require.NoError(t, g.AddEdge("c", "a")) // duplicate is ignored

		deps, err := g.Dependencies("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, deps)

		dependents, err := g.Dependents("c")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New[string]()
		g.AddNode("a")

		err := g.AddEdge("dne", "a")
		assert.ErrorContains(t, err, "source node not found")

		err = g.AddEdge("a", "dne")
		assert.ErrorContains(t, err, "destination node not found")

		_, err = g.Dependencies("dne")
		assert.ErrorContains(t, err, "node not found")
		_, err = g.Dependents("dne")
		assert.ErrorContains(t, err, "node not found")
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.Empty(t, New[int]().DetectCycles())
	})

	t.Run("diamond has no cycles", func(t *testing.T) {
		g := New[int]()
		for i := 1; i <= 4; i++ {
			g.AddNode(i)
		}
		require.NoError(t, g.AddEdge(2, 1))
		require.NoError(t, g.AddEdge(3, 1))
		require.NoError(t, g.AddEdge(4, 2))
		require.NoError(t, g.AddEdge(4, 3))
		assert.Empty(t, g.DetectCycles())
	})

	t.Run("two node cycle in discovery order", func(t *testing.T) {
		g := New[string]()
		g.AddNode("h")
		g.AddNode("x")
		g.AddNode("y")
		require.NoError(t, g.AddEdge("x", "h")) // h depends on x
		require.NoError(t, g.AddEdge("y", "x")) // x depends on y
		require.NoError(t, g.AddEdge("x", "y")) // y depends on x

		assert.Equal(t, [][]string{{"x", "y", "x"}}, g.DetectCycles())
	})

	t.Run("self loop", func(t *testing.T) {
		g := New[int]()
		g.AddNode(7)
		require.NoError(t, g.AddEdge(7, 7))
		assert.Equal(t, [][]int{{7, 7}}, g.DetectCycles())
	})

	t.Run("independent cycles are all reported", func(t *testing.T) {
		g := New[int]()
		for i := 1; i <= 4; i++ {
			g.AddNode(i)
		}
		require.NoError(t, g.AddEdge(2, 1))
		require.NoError(t, g.AddEdge(1, 2))
		require.NoError(t, g.AddEdge(4, 3))
		require.NoError(t, g.AddEdge(3, 4))
		assert.Equal(t, [][]int{{1, 2, 1}, {3, 4, 3}}, g.DetectCycles())
	})
}

func TestTopologicalSort(t *testing.T) {
	t.Run("dependencies first, smallest id breaks ties", func(t *testing.T) {
		g := New[int]()
		for _, id := range []int{5, 3, 4, 1, 2} {
			g.AddNode(id)
		}
		// 5 depends on 3 and 4, 3 depends on 2.
		require.NoError(t, g.AddEdge(3, 5))
		require.NoError(t, g.AddEdge(4, 5))
		require.NoError(t, g.AddEdge(2, 3))

		order, err := g.TopologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
	})

	t.Run("ready set is a priority queue", func(t *testing.T) {
		g := New[int]()
		for _, id := range []int{1, 2, 3} {
			g.AddNode(id)
		}
		// 1 depends on 3: 2 is ready before 1.
		require.NoError(t, g.AddEdge(3, 1))

		order, err := g.TopologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3, 1}, order)
	})

	t.Run("cycle", func(t *testing.T) {
		g := New[int]()
		g.AddNode(1)
		g.AddNode(2)
		require.NoError(t, g.AddEdge(1, 2))
		require.NoError(t, g.AddEdge(2, 1))
		_, err := g.TopologicalSort()
		assert.ErrorContains(t, err, "cycle detected")
	})
}
