// Package graph provides a small directed graph keyed by string ids, used to
// model stylesheet import relationships during discovery.
//
// A Graph is built once per discovery pass and never shrinks. It is not safe
// for concurrent mutation; callers assemble it on a single goroutine after all
// per-file work has settled.
package graph

import (
	"errors"
	"fmt"
	"iter"
)

// ErrMissingNode is returned by Connect when an endpoint was never added.
var ErrMissingNode = errors.New("graph: missing node")

// orderedSet is an insertion-ordered set of ids.
type orderedSet struct {
	index map[string]struct{}
	items []string
}

func (s *orderedSet) add(id string) {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.items = append(s.items, id)
}

func (s *orderedSet) len() int {
	return len(s.items)
}

// Graph is a directed graph with parent and child adjacency.
type Graph[T any] struct {
	order    []string
	nodes    map[string]T
	children map[string]*orderedSet
	parents  map[string]*orderedSet
}

// New creates an empty graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{
		nodes:    make(map[string]T),
		children: make(map[string]*orderedSet),
		parents:  make(map[string]*orderedSet),
	}
}

// Add registers value under id and returns the value stored for id. The first
// value registered for an id wins; later calls return it unchanged.
func (g *Graph[T]) Add(id string, value T) T {
	if existing, ok := g.nodes[id]; ok {
		return existing
	}
	g.nodes[id] = value
	g.order = append(g.order, id)
	g.children[id] = &orderedSet{}
	g.parents[id] = &orderedSet{}
	return value
}

// Connect adds an edge from -> to. Both endpoints must already exist.
func (g *Graph[T]) Connect(from, to string) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrMissingNode, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrMissingNode, to)
	}
	g.children[from].add(to)
	g.parents[to].add(from)
	return nil
}

// Get returns the value registered for id.
func (g *Graph[T]) Get(id string) (T, bool) {
	v, ok := g.nodes[id]
	return v, ok
}

// Has reports whether id was added.
func (g *Graph[T]) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int {
	return len(g.order)
}

// Children returns the direct children of id in connection order.
func (g *Graph[T]) Children(id string) []string {
	set, ok := g.children[id]
	if !ok {
		return nil
	}
	return append([]string(nil), set.items...)
}

// Parents returns the direct parents of id in connection order.
func (g *Graph[T]) Parents(id string) []string {
	set, ok := g.parents[id]
	if !ok {
		return nil
	}
	return append([]string(nil), set.items...)
}

// Values yields every node value in insertion order.
func (g *Graph[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, id := range g.order {
			if !yield(g.nodes[id]) {
				return
			}
		}
	}
}

// Descendants yields every node reachable from id, breadth-first in
// connection order. Each node is yielded once and id itself is never yielded.
// Every call starts a fresh traversal.
func (g *Graph[T]) Descendants(id string) iter.Seq[T] {
	return func(yield func(T) bool) {
		if _, ok := g.nodes[id]; !ok {
			return
		}
		seen := map[string]struct{}{id: {}}
		queue := []string{id}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, child := range g.children[current].items {
				if _, ok := seen[child]; ok {
					continue
				}
				seen[child] = struct{}{}
				if !yield(g.nodes[child]) {
					return
				}
				queue = append(queue, child)
			}
		}
	}
}

// Roots yields nodes without parents in insertion order.
func (g *Graph[T]) Roots() iter.Seq[T] {
	return g.filter(func(id string) bool { return g.parents[id].len() == 0 })
}

// Leaves yields nodes without children in insertion order.
func (g *Graph[T]) Leaves() iter.Seq[T] {
	return g.filter(func(id string) bool { return g.children[id].len() == 0 })
}

func (g *Graph[T]) filter(keep func(id string) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, id := range g.order {
			if !keep(id) {
				continue
			}
			if !yield(g.nodes[id]) {
				return
			}
		}
	}
}
