// Package graphstore persists featurized graphs in a single-file SQLite
// container.
//
// Each graph is an entry keyed by its query id. An entry holds one column per
// node feature (group node_data) and per edge feature (group edge_data), the
// undirected edge index with one row per edge, scalar targets and string
// metadata. Scalar columns have width 0 (shape (rows,)); vector columns have
// shape (rows, width).
package graphstore

import (
	"sort"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/query"
)

const (
	GroupNode = "node_data"
	GroupEdge = "edge_data"
)

// Column is one feature table, stored row-major.
type Column struct {
	Name  string
	Rows  int
	Width int
	Data  []float64
}

// Row returns the values of row i (one value for scalar columns).
func (c Column) Row(i int) []float64 {
	w := c.Width
	if w == 0 {
		w = 1
	}
	return c.Data[i*w : (i+1)*w]
}

// RowWidth is the number of values per row.
func (c Column) RowWidth() int {
	if c.Width == 0 {
		return 1
	}
	return c.Width
}

type Entry struct {
	Name        string
	Kind        string
	Fingerprint string
	NumNodes    int
	NodeData    []Column
	EdgeData    []Column
	EdgeIndex   [][2]int64
	Targets     map[string]float64
	Metadata    map[string]string
}

func (e *Entry) NumEdges() int { return len(e.EdgeIndex) }

func (e *Entry) NodeColumn(name string) (Column, bool) { return findColumn(e.NodeData, name) }

func (e *Entry) EdgeColumn(name string) (Column, bool) { return findColumn(e.EdgeData, name) }

func findColumn(cols []Column, name string) (Column, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// FromGraph flattens a fully featurized graph. The graph must pass
// Validate; a partially featurized graph is never written.
func FromGraph(g *graph.Graph) (*Entry, error) {
	nodeSchema, edgeSchema, err := g.Validate()
	if err != nil {
		return nil, err
	}
	if g.Name == "" {
		return nil, errors.New(errors.CodeSerialization, "graph has no name")
	}

	e := &Entry{
		Name:     g.Name,
		NumNodes: g.NumNodes(),
		Targets:  make(map[string]float64, len(g.Targets)),
		Metadata: make(map[string]string, len(g.Metadata)),
	}
	for k, v := range g.Targets {
		e.Targets[k] = v
	}
	for k, v := range g.Metadata {
		e.Metadata[k] = v
	}
	e.Kind = g.Metadata[query.MetaKind]
	e.Fingerprint = g.Metadata[query.MetaFingerprint]

	nodeMaps := make([]graph.FeatureMap, g.NumNodes())
	for i, n := range g.Nodes() {
		nodeMaps[i] = n.Features
	}
	e.NodeData = columns(nodeSchema, nodeMaps)

	edgeMaps := make([]graph.FeatureMap, g.NumEdges())
	e.EdgeIndex = make([][2]int64, g.NumEdges())
	for i, edge := range g.Edges() {
		edgeMaps[i] = edge.Features
		e.EdgeIndex[i] = [2]int64{int64(edge.I), int64(edge.J)}
	}
	e.EdgeData = columns(edgeSchema, edgeMaps)
	return e, nil
}

func columns(schema graph.Schema, maps []graph.FeatureMap) []Column {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c := Column{Name: name, Rows: len(maps), Width: schema[name]}
		c.Data = make([]float64, 0, c.Rows*c.RowWidth())
		for _, m := range maps {
			c.Data = append(c.Data, m[name].Values...)
		}
		cols = append(cols, c)
	}
	return cols
}
