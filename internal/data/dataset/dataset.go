// Package dataset turns stored entries into the directed, dense form a graph
// learning loader consumes.
package dataset

import (
	"context"

	"molgraph/internal/core/errors"
	"molgraph/internal/data/graphstore"
)

// Options selects the columns that make up the attribute matrices. Empty
// lists select every column in stored (sorted) order.
type Options struct {
	NodeFeatures []string
	EdgeFeatures []string
}

// Sample is one graph with every undirected edge expanded into (u,v) and (v,u).
type Sample struct {
	Name string
	// EdgeIndex has shape (2, 2E): the stored edges in order, then the same
	// edges reversed.
	EdgeIndex [2][]int64
	// EdgeAttr has one row per directed edge.
	EdgeAttr [][]float64
	NodeAttr [][]float64
	Targets  map[string]float64

	NodeFeatures []string
	EdgeFeatures []string
}

func (s *Sample) NumDirectedEdges() int { return len(s.EdgeIndex[0]) }

// Expand builds a Sample from e.
func Expand(e *graphstore.Entry, opts Options) (*Sample, error) {
	nodeCols, err := pick(e.Name, e.NodeData, opts.NodeFeatures)
	if err != nil {
		return nil, err
	}
	edgeCols, err := pick(e.Name, e.EdgeData, opts.EdgeFeatures)
	if err != nil {
		return nil, err
	}

	s := &Sample{Name: e.Name, Targets: make(map[string]float64, len(e.Targets))}
	for k, v := range e.Targets {
		s.Targets[k] = v
	}
	for _, c := range nodeCols {
		s.NodeFeatures = append(s.NodeFeatures, c.Name)
	}
	for _, c := range edgeCols {
		s.EdgeFeatures = append(s.EdgeFeatures, c.Name)
	}

	s.NodeAttr = make([][]float64, e.NumNodes)
	for i := range s.NodeAttr {
		s.NodeAttr[i] = concatRow(nodeCols, i)
	}

	n := e.NumEdges()
	src := make([]int64, 2*n)
	dst := make([]int64, 2*n)
	s.EdgeAttr = make([][]float64, 2*n)
	for k, p := range e.EdgeIndex {
		src[k], dst[k] = p[0], p[1]
		src[n+k], dst[n+k] = p[1], p[0]
		row := concatRow(edgeCols, k)
		s.EdgeAttr[k] = row
		s.EdgeAttr[n+k] = append([]float64(nil), row...)
	}
	s.EdgeIndex = [2][]int64{src, dst}
	return s, nil
}

func pick(entry string, cols []graphstore.Column, names []string) ([]graphstore.Column, error) {
	if len(names) == 0 {
		return cols, nil
	}
	out := make([]graphstore.Column, 0, len(names))
	for _, name := range names {
		found := false
		for _, c := range cols {
			if c.Name == name {
				out = append(out, c)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.AddContext(
				errors.Newf(errors.CodeNotFound, "entry %s has no column %q", entry, name),
				errors.CtxFeature, name)
		}
	}
	return out, nil
}

func concatRow(cols []graphstore.Column, i int) []float64 {
	width := 0
	for _, c := range cols {
		width += c.RowWidth()
	}
	row := make([]float64, 0, width)
	for _, c := range cols {
		row = append(row, c.Row(i)...)
	}
	return row
}

// Load expands every entry of the given container files, file by file in
// write order.
func Load(ctx context.Context, paths []string, opts Options) ([]*Sample, error) {
	var out []*Sample
	for _, path := range paths {
		samples, err := loadFile(ctx, path, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, samples...)
	}
	return out, nil
}

func loadFile(ctx context.Context, path string, opts Options) ([]*Sample, error) {
	s, err := graphstore.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Sample, 0, len(keys))
	for _, key := range keys {
		e, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		sample, err := Expand(e, opts)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxPath, path)
		}
		out = append(out, sample)
	}
	return out, nil
}
