package graph

import (
	"math"
	"sort"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/neighbor"
	"molgraph/internal/engine/structure"
)

// BuildAtomic makes one node per distinct atom and an edge between every pair
// of atoms at most cutoff apart. Node order follows the input order.
func BuildAtomic(name string, atoms []*structure.Atom, cutoff float64) (*Graph, error) {
	if !(cutoff > 0) {
		return nil, errors.Newf(errors.CodeValidationError, "edge cutoff must be positive, got %v", cutoff)
	}
	g := New(name, Atomic)
	for _, a := range atoms {
		if _, err := g.AddAtomNode(a); err != nil {
			return nil, err
		}
	}
	if g.NumNodes() == 0 {
		return g, nil
	}
	g.Structure = g.nodes[0].Atom.Residue().Chain().Structure()

	nodeAtoms := make([]*structure.Atom, len(g.nodes))
	for i, n := range g.nodes {
		nodeAtoms[i] = n.Atom
	}
	ix := neighbor.NewIndex(nodeAtoms)
	for i, n := range g.nodes {
		hits := ix.Within(n.Position, cutoff)
		js := make([]int, 0, len(hits))
		for _, a := range hits {
			j := g.byID[a.Key()]
			if j > i {
				js = append(js, j)
			}
		}
		sort.Ints(js)
		for _, j := range js {
			e, err := g.AddEdge(i, j)
			if err != nil {
				return nil, err
			}
			e.Features.SetScalar(FeatureDistance, n.Position.Dist(g.nodes[j].Position))
		}
	}
	return g, nil
}

// BuildResidue makes one node per distinct residue and an edge between two
// residues when any pair of their atoms is at most cutoff apart. The edge
// distance is the smallest inter-atomic distance.
func BuildResidue(name string, residues []*structure.Residue, cutoff float64) (*Graph, error) {
	if !(cutoff > 0) {
		return nil, errors.Newf(errors.CodeValidationError, "edge cutoff must be positive, got %v", cutoff)
	}
	g := New(name, Residue)
	for _, r := range residues {
		if _, err := g.AddResidueNode(r); err != nil {
			return nil, err
		}
	}
	if g.NumNodes() == 0 {
		return g, nil
	}
	g.Structure = g.nodes[0].Residue.Chain().Structure()

	owner := make(map[*structure.Atom]int)
	var atoms []*structure.Atom
	for i, n := range g.nodes {
		for _, a := range n.Residue.Atoms() {
			owner[a] = i
			atoms = append(atoms, a)
		}
	}

	ix := neighbor.NewIndex(atoms)
	minDist2 := make(map[pair]float64)
	for _, a := range atoms {
		i := owner[a]
		for _, b := range ix.Within(a.Position, cutoff) {
			j := owner[b]
			if j <= i {
				continue
			}
			d2 := a.Position.Dist2(b.Position)
			if cur, ok := minDist2[pair{i, j}]; !ok || d2 < cur {
				minDist2[pair{i, j}] = d2
			}
		}
	}

	pairs := make([]pair, 0, len(minDist2))
	for p := range minDist2 {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].i != pairs[b].i {
			return pairs[a].i < pairs[b].i
		}
		return pairs[a].j < pairs[b].j
	})
	for _, p := range pairs {
		e, err := g.AddEdge(p.i, p.j)
		if err != nil {
			return nil, err
		}
		e.Features.SetScalar(FeatureDistance, math.Sqrt(minDist2[p]))
	}
	return g, nil
}
