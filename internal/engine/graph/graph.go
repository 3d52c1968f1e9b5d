// # internal/engine/graph/graph.go
package graph

import (
	"fmt"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/structure"
)

// Granularity selects what a node stands for.
type Granularity string

const (
	Atomic  Granularity = "atom"
	Residue Granularity = "residue"
)

// Standard feature names written by the builders.
const (
	FeaturePosition = "pos"
	FeatureDistance = "distance"
)

type Node struct {
	ID       string
	Position structure.Vec3
	Atom     *structure.Atom    // set on atomic graphs
	Residue  *structure.Residue // owning residue on atomic graphs
	Features FeatureMap

	index int
}

// Index is the node's zero-based insertion position.
func (n *Node) Index() int { return n.index }

// Atoms returns the atoms the node stands for.
func (n *Node) Atoms() []*structure.Atom {
	if n.Atom != nil {
		return []*structure.Atom{n.Atom}
	}
	return n.Residue.Atoms()
}

// Edge joins nodes I < J. Pairs are unique within a graph.
type Edge struct {
	I, J     int
	Features FeatureMap
}

func (e *Edge) Distance() float64 {
	d, _ := e.Features.Scalar(FeatureDistance)
	return d
}

type pair struct{ i, j int }

// Graph is an undirected graph at a single granularity. A graph is owned by
// one goroutine for its whole life and carries no locking.
type Graph struct {
	Name        string
	Granularity Granularity
	Structure   *structure.Structure
	Variant     *structure.Variant
	Targets     map[string]float64
	Metadata    map[string]string

	nodes  []*Node
	byID   map[string]int
	edges  []*Edge
	byPair map[pair]int
}

func New(name string, granularity Granularity) *Graph {
	return &Graph{
		Name:        name,
		Granularity: granularity,
		Targets:     make(map[string]float64),
		Metadata:    make(map[string]string),
		byID:        make(map[string]int),
		byPair:      make(map[pair]int),
	}
}

func (g *Graph) Nodes() []*Node { return g.nodes }

func (g *Graph) Edges() []*Edge { return g.edges }

func (g *Graph) NumNodes() int { return len(g.nodes) }

func (g *Graph) NumEdges() int { return len(g.edges) }

func (g *Graph) Node(i int) *Node { return g.nodes[i] }

func (g *Graph) NodeByID(id string) (*Node, bool) {
	i, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// AddAtomNode adds a node for a, returning the existing one when present.
func (g *Graph) AddAtomNode(a *structure.Atom) (*Node, error) {
	if g.Granularity != Atomic {
		return nil, errors.Newf(errors.CodeGraphDefect, "atom node added to %s graph %s", g.Granularity, g.Name)
	}
	return g.addNode(&Node{ID: a.Key(), Position: a.Position, Atom: a, Residue: a.Residue()}), nil
}

// AddResidueNode adds a node for r positioned at its atom centroid.
func (g *Graph) AddResidueNode(r *structure.Residue) (*Node, error) {
	if g.Granularity != Residue {
		return nil, errors.Newf(errors.CodeGraphDefect, "residue node added to %s graph %s", g.Granularity, g.Name)
	}
	return g.addNode(&Node{ID: r.Key(), Position: r.Centroid(), Residue: r}), nil
}

func (g *Graph) addNode(n *Node) *Node {
	if i, ok := g.byID[n.ID]; ok {
		return g.nodes[i]
	}
	n.index = len(g.nodes)
	n.Features = FeatureMap{}
	n.Features.SetVector(FeaturePosition, n.Position.Slice())
	g.nodes = append(g.nodes, n)
	g.byID[n.ID] = n.index
	return n
}

// AddEdge joins nodes i and j, returning the existing edge for a known pair.
// A self-loop is a defect in the caller.
func (g *Graph) AddEdge(i, j int) (*Edge, error) {
	if i == j {
		return nil, errors.AddContext(
			errors.Newf(errors.CodeGraphDefect, "self-loop on node %d", i),
			errors.CtxOperation, "AddEdge")
	}
	if i < 0 || j < 0 || i >= len(g.nodes) || j >= len(g.nodes) {
		return nil, errors.Newf(errors.CodeGraphDefect, "edge (%d,%d) references a missing node", i, j)
	}
	if i > j {
		i, j = j, i
	}
	if k, ok := g.byPair[pair{i, j}]; ok {
		return g.edges[k], nil
	}
	e := &Edge{I: i, J: j, Features: FeatureMap{}}
	g.byPair[pair{i, j}] = len(g.edges)
	g.edges = append(g.edges, e)
	return e, nil
}

// Edge looks up the edge between i and j in either order.
func (g *Graph) Edge(i, j int) (*Edge, bool) {
	if i > j {
		i, j = j, i
	}
	k, ok := g.byPair[pair{i, j}]
	if !ok {
		return nil, false
	}
	return g.edges[k], true
}

// HasNaN reports whether any node or edge feature holds NaN or ±Inf.
func (g *Graph) HasNaN() bool {
	for _, n := range g.nodes {
		if _, bad := n.Features.hasNaN(); bad {
			return true
		}
	}
	for _, e := range g.edges {
		if _, bad := e.Features.hasNaN(); bad {
			return true
		}
	}
	return false
}

func (g *Graph) String() string {
	return fmt.Sprintf("%s(%s, %d nodes, %d edges)", g.Name, g.Granularity, len(g.nodes), len(g.edges))
}
