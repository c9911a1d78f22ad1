package graph

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildExample(t *testing.T) *Graph[string] {
	t.Helper()
	g := New[string]()
	for _, id := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		g.Add(id, id)
	}
	edges := [][2]string{{"A", "B"}, {"B", "D"}, {"B", "E"}, {"A", "C"}, {"C", "F"}, {"B", "C"}}
	for _, e := range edges {
		require.NoError(t, g.Connect(e[0], e[1]))
	}
	return g
}

func TestAddFirstWriterWins(t *testing.T) {
	g := New[string]()
	assert.Equal(t, "v1", g.Add("a", "v1"))
	assert.Equal(t, "v1", g.Add("a", "v2"))

	v, ok := g.Get("a")
	require.True(t, ok)
	assert.Equal(t, "v1", v)
	assert.Equal(t, 1, g.Len())
}

func TestConnectMissingNode(t *testing.T) {
	g := New[int]()
	g.Add("a", 1)

	err := g.Connect("a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingNode))

	err = g.Connect("x", "a")
	assert.True(t, errors.Is(err, ErrMissingNode))

	g.Add("b", 2)
	require.NoError(t, g.Connect("a", "b"))
	assert.Equal(t, []string{"b"}, g.Children("a"))
	assert.Equal(t, []string{"a"}, g.Parents("b"))
}

func TestRootsAndLeaves(t *testing.T) {
	g := buildExample(t)
	assert.Equal(t, []string{"A", "G"}, slices.Collect(g.Roots()))
	assert.Equal(t, []string{"D", "E", "F", "G"}, slices.Collect(g.Leaves()))
}

func TestDescendants(t *testing.T) {
	g := buildExample(t)

	got := slices.Collect(g.Descendants("A"))
	assert.Equal(t, []string{"B", "C", "D", "E", "F"}, got)

	// fresh traversal each call
	assert.Equal(t, got, slices.Collect(g.Descendants("A")))

	assert.Empty(t, slices.Collect(g.Descendants("G")))
	assert.Empty(t, slices.Collect(g.Descendants("missing")))
}

func TestDescendantsCycleExcludesStart(t *testing.T) {
	g := New[string]()
	g.Add("a", "a")
	g.Add("b", "b")
	require.NoError(t, g.Connect("a", "b"))
	require.NoError(t, g.Connect("b", "a"))

	assert.Equal(t, []string{"b"}, slices.Collect(g.Descendants("a")))
}

func TestDescendantsEarlyStop(t *testing.T) {
	g := buildExample(t)
	var got []string
	for v := range g.Descendants("A") {
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"B", "C"}, got)
}

func TestDuplicateEdgeIgnored(t *testing.T) {
	g := New[string]()
	g.Add("a", "a")
	g.Add("b", "b")
	require.NoError(t, g.Connect("a", "b"))
	require.NoError(t, g.Connect("a", "b"))
	assert.Equal(t, []string{"b"}, g.Children("a"))
}
