package pcfg

import (
	"math"
	"slices"
)

// Vertex in graph
type Vertex string

// DirectedGraph represents a weighted directed graph. All traversals visit
// vertices in lexical order so that grammar conversion is reproducible.
type DirectedGraph struct {
	Arcs     map[Vertex]map[Vertex]float64
	Vertices map[Vertex]bool
}

// NewDirectedGraph creates a new DirectedGraph
func NewDirectedGraph() *DirectedGraph {
	return &DirectedGraph{
		Arcs:     map[Vertex]map[Vertex]float64{},
		Vertices: map[Vertex]bool{},
	}
}

// Add adds an arc into graph
func (g *DirectedGraph) Add(s, t Vertex, weight float64) {
	if g.Arcs[s] == nil {
		g.Arcs[s] = map[Vertex]float64{}
	}
	g.Arcs[s][t] = weight
	g.Vertices[s] = true
	g.Vertices[t] = true
}

// HasArc returns whether arc (s, t) exists in this graph
func (g *DirectedGraph) HasArc(s, t Vertex) bool {
	_, ok := g.Arcs[s][t]
	return ok
}

// sortedVertices returns all vertices of g in lexical order
func (g *DirectedGraph) sortedVertices() []Vertex {
	vertices := make([]Vertex, 0, len(g.Vertices))
	for v := range g.Vertices {
		vertices = append(vertices, v)
	}
	slices.Sort(vertices)
	return vertices
}

// successors returns the heads of the arcs leaving s in lexical order
func (g *DirectedGraph) successors(s Vertex) []Vertex {
	next := make([]Vertex, 0, len(g.Arcs[s]))
	for t := range g.Arcs[s] {
		next = append(next, t)
	}
	slices.Sort(next)
	return next
}

// DFS runs depth-first search on graph and returns the vertices visited by
// deep-first order.
// It will not visit the vertices where visited[V] == true.
// After finished, it will update the visited map
func (g *DirectedGraph) DFS(s Vertex, visited map[Vertex]bool) []Vertex {
	if visited[s] || !g.Vertices[s] {
		return []Vertex{}
	}
	visited[s] = true

	order := []Vertex{s}
	for _, next := range g.successors(s) {
		order = append(order, g.DFS(next, visited)...)
	}
	return order
}

// postorder appends the vertices reachable from s to order, each one after
// all of its descendants
func (g *DirectedGraph) postorder(s Vertex, visited map[Vertex]bool, order []Vertex) []Vertex {
	visited[s] = true
	for _, next := range g.successors(s) {
		if !visited[next] {
			order = g.postorder(next, visited, order)
		}
	}
	return append(order, s)
}

// TopologicalSort sorts the graph by topological order. On a graph with
// cycles it returns the reversed finishing order used by StrongComponents.
func (g *DirectedGraph) TopologicalSort() []Vertex {
	visited := map[Vertex]bool{}
	order := []Vertex{}
	for _, v := range g.sortedVertices() {
		if !visited[v] {
			order = g.postorder(v, visited, order)
		}
	}
	slices.Reverse(order)
	return order
}

// Transpose returns the reversed graph of g
func (g *DirectedGraph) Transpose() *DirectedGraph {
	reversed := NewDirectedGraph()
	for v := range g.Vertices {
		reversed.Vertices[v] = true
	}
	for s, targets := range g.Arcs {
		for t, weight := range targets {
			reversed.Add(t, s, weight)
		}
	}
	return reversed
}

// StrongComponents find strong connected components with more than one
// vertex using Kosaraju's algorithm
func (g *DirectedGraph) StrongComponents() [][]Vertex {
	visited := map[Vertex]bool{}
	components := [][]Vertex{}
	gt := g.Transpose()
	for _, v := range g.TopologicalSort() {
		if visited[v] {
			continue
		}

		component := gt.DFS(v, visited)
		if len(component) <= 1 {
			continue
		}
		slices.Sort(component)
		components = append(components, component)
	}
	return components
}

// Floyd finds the weight of shortest path between each vertices using
// Floyd–Warshall algorithm
func (g *DirectedGraph) Floyd() map[Vertex]map[Vertex]float64 {
	vertices := g.sortedVertices()
	distance := map[Vertex]map[Vertex]float64{}
	for _, s := range vertices {
		distance[s] = map[Vertex]float64{}
		for _, t := range vertices {
			if s == t {
				distance[s][t] = 0
			} else {
				distance[s][t] = math.Inf(1)
			}
		}
	}

	for s, ts := range g.Arcs {
		for t, w := range ts {
			distance[s][t] = w
		}
	}

	for _, k := range vertices {
		for _, i := range vertices {
			for _, j := range vertices {
				d := distance[i][k] + distance[k][j]
				if distance[i][j] > d {
					distance[i][j] = d
				}
			}
		}
	}

	return distance
}
