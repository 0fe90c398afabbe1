package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphOf(t *testing.T, nodes []string, edges ...[2]string) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestAddNode(t *testing.T) {
	g := New()
	assert.Zero(t, g.Len())

	g.AddNode("a")
	g.AddNode("a") // idempotent
	g.AddNode("b")

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"a", "b"}, g.order)
	assert.Equal(t, 1, g.nodes["b"].index)
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := graphOf(t, []string{"a", "b"}, [2]string{"a", "b"})

		nodeA := g.nodes["a"]
		nodeB := g.nodes["b"]
		assert.Equal(t, nodeB, nodeA.dependents["b"])
		assert.Equal(t, nodeA, nodeB.deps["a"])

		require.NoError(t, g.AddEdge("a", "b"), "repeated edges are accepted")
		assert.Len(t, nodeB.deps, 1)
	})

	t.Run("error cases", func(t *testing.T) {
		g := graphOf(t, []string{"a", "b"})

		assert.ErrorContains(t, g.AddEdge("dne", "a"), "source node not found")
		assert.ErrorContains(t, g.AddEdge("a", "dne"), "destination node not found")
		assert.ErrorContains(t, g.AddEdge("a", "a"), "self-referential edge")
	})
}

func TestDependenciesAndDependents(t *testing.T) {
	g := graphOf(t, []string{"c", "a", "b", "d"},
		[2]string{"b", "d"}, [2]string{"c", "d"}, [2]string{"a", "d"}, [2]string{"c", "a"})

	deps, err := g.Dependencies("d")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, deps, "insertion order, not edge order")

	dependents, err := g.Dependents("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, dependents)

	_, err = g.Dependencies("x")
	assert.Error(t, err)
	_, err = g.Dependents("x")
	assert.Error(t, err)
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := graphOf(t, []string{"a", "b", "c", "d"},
			[2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"a", "c"}, [2]string{"c", "d"})
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("simple direct cycle is detected", func(t *testing.T) {
		g := graphOf(t, []string{"a", "b"}, [2]string{"a", "b"}, [2]string{"b", "a"})

		var cycle *CycleError
		require.True(t, errors.As(g.DetectCycles(), &cycle))
		assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := graphOf(t, []string{"a", "b", "x", "y", "z"},
			[2]string{"a", "b"}, [2]string{"x", "y"}, [2]string{"y", "z"}, [2]string{"z", "y"})

		err := g.DetectCycles()
		var cycle *CycleError
		require.True(t, errors.As(err, &cycle))
		assert.Equal(t, []string{"y", "z", "y"}, cycle.Path)
		assert.EqualError(t, err, "cycle detected: y -> z -> y")
	})
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("chain runs in dependency order regardless of insertion", func(t *testing.T) {
		g := graphOf(t, []string{"C", "A", "B"}, [2]string{"A", "B"}, [2]string{"B", "C"})
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, order)
	})

	t.Run("independent nodes keep insertion order", func(t *testing.T) {
		g := graphOf(t, []string{"z", "y", "x"})
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "y", "x"}, order)
	})

	t.Run("ties broken by insertion index", func(t *testing.T) {
		// root unlocks late and early; early was added first so it goes first.
		g := graphOf(t, []string{"early", "root", "late", "other"},
			[2]string{"root", "late"}, [2]string{"root", "early"})
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"root", "early", "late", "other"}, order)
	})

	t.Run("cycle is an error", func(t *testing.T) {
		g := graphOf(t, []string{"a", "b"}, [2]string{"a", "b"}, [2]string{"b", "a"})
		_, err := g.TopologicalOrder()
		var cycle *CycleError
		assert.True(t, errors.As(err, &cycle))
	})
}
