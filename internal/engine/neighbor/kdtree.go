package neighbor

import (
	"sort"

	"molgraph/internal/engine/structure"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// point is an atom placed in the k-d tree.
type point struct {
	atom *structure.Atom
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.atom.Position[d] - positionOf(c)[d]
}

func (p point) Dims() int { return 3 }

// Distance returns the squared Euclidean distance, as kdtree keepers expect.
func (p point) Distance(c kdtree.Comparable) float64 {
	return p.atom.Position.Dist2(positionOf(c))
}

// probe is a query location that is not itself an atom.
type probe struct {
	pos structure.Vec3
}

func (q probe) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return q.pos[d] - positionOf(c)[d]
}

func (q probe) Dims() int { return 3 }

func (q probe) Distance(c kdtree.Comparable) float64 {
	return q.pos.Dist2(positionOf(c))
}

func positionOf(c kdtree.Comparable) structure.Vec3 {
	switch v := c.(type) {
	case point:
		return v.atom.Position
	case probe:
		return v.pos
	}
	panic("neighbor: unexpected comparable type")
}

// points implements kdtree.Interface over atoms.
type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }

func (p points) Len() int { return len(p) }

func (p points) Pivot(d kdtree.Dim) int {
	return plane{points: p, dim: d}.pivot()
}

func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one dimension for median selection.
type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.points[i].atom.Position[p.dim] < p.points[j].atom.Position[p.dim]
}

func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], dim: p.dim}
}

func (p plane) pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

var _ sort.Interface = plane{}
