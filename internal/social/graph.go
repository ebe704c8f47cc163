// Package social provides the fixed friendship structure between agents.
// The graph is a Watts–Strogatz small world built once per run and read-only
// afterwards; it defines who counts as a friend when companions are gathered.
package social

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
)

// ErrInvalidGraph is returned for parameters that cannot produce a graph.
var ErrInvalidGraph = errors.New("social: invalid graph parameters")

// Rand is the subset of *rand.Rand used for rewiring.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Graph is an undirected friendship graph over node ids 0..n-1.
type Graph struct {
	g       *simple.UndirectedGraph
	friends map[int64][]int64 // sorted adjacency, built once
}

// NewWattsStrogatz builds a ring of n nodes where each node is joined to its
// k/2 nearest neighbours on each side, then rewires every ring edge (u, u+j)
// with probability p to a uniformly chosen node that is neither u nor already
// adjacent to u. A saturated node keeps its edge.
func NewWattsStrogatz(n, k int, p float64, r Rand) (*Graph, error) {
	switch {
	case n <= 0:
		return nil, fmt.Errorf("%w: node count %d must be positive", ErrInvalidGraph, n)
	case k < 0:
		return nil, fmt.Errorf("%w: degree %d must not be negative", ErrInvalidGraph, k)
	case k >= n:
		return nil, fmt.Errorf("%w: degree %d must be below node count %d", ErrInvalidGraph, k, n)
	case p < 0 || p > 1:
		return nil, fmt.Errorf("%w: rewire probability %v outside [0,1]", ErrInvalidGraph, p)
	}

	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}

	half := k / 2
	for j := 1; j <= half; j++ {
		for u := 0; u < n; u++ {
			setEdge(g, int64(u), int64((u+j)%n))
		}
	}

	for j := 1; j <= half; j++ {
		for u := 0; u < n; u++ {
			if r.Float64() >= p {
				continue
			}
			uid, vid := int64(u), int64((u+j)%n)
			w, ok := rewireTarget(g, uid, n, r)
			if !ok {
				continue
			}
			g.RemoveEdge(uid, vid)
			setEdge(g, uid, w)
		}
	}

	return newGraph(g), nil
}

// rewireTarget draws candidates until one is neither u nor a neighbour of u.
// It gives up once u is adjacent to every other node.
func rewireTarget(g *simple.UndirectedGraph, u int64, n int, r Rand) (int64, bool) {
	w := int64(r.Intn(n))
	for w == u || g.HasEdgeBetween(u, w) {
		if g.From(u).Len() >= n-1 {
			return 0, false
		}
		w = int64(r.Intn(n))
	}
	return w, true
}

func setEdge(g *simple.UndirectedGraph, a, b int64) {
	g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
}

// FromEdges builds a graph over n nodes from an explicit edge list. Self
// loops are rejected.
func FromEdges(n int, edges [][2]int64) (*Graph, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: node count %d must be positive", ErrInvalidGraph, n)
	}
	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range edges {
		if e[0] == e[1] {
			return nil, fmt.Errorf("%w: self loop on node %d", ErrInvalidGraph, e[0])
		}
		if e[0] < 0 || e[1] < 0 || e[0] >= int64(n) || e[1] >= int64(n) {
			return nil, fmt.Errorf("%w: edge %v outside node range", ErrInvalidGraph, e)
		}
		setEdge(g, e[0], e[1])
	}
	return newGraph(g), nil
}

func newGraph(g *simple.UndirectedGraph) *Graph {
	friends := make(map[int64][]int64, g.Nodes().Len())
	nodes := g.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		var adj []int64
		it := g.From(id)
		for it.Next() {
			adj = append(adj, it.Node().ID())
		}
		slices.Sort(adj)
		friends[id] = adj
	}
	return &Graph{g: g, friends: friends}
}

// Len returns the number of nodes.
func (sg *Graph) Len() int {
	return len(sg.friends)
}

// EdgeCount returns the number of undirected edges.
func (sg *Graph) EdgeCount() int {
	return sg.g.Edges().Len()
}

// Friends returns the sorted neighbours of id. The slice is shared and must
// not be modified.
func (sg *Graph) Friends(id int64) []int64 {
	return sg.friends[id]
}

// AreFriends reports whether a and b share an edge. A node is never its own
// friend.
func (sg *Graph) AreFriends(a, b int64) bool {
	if a == b {
		return false
	}
	return sg.g.HasEdgeBetween(a, b)
}

// Degree returns the number of friends of id.
func (sg *Graph) Degree(id int64) int {
	return len(sg.friends[id])
}
