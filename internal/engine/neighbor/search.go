// Package neighbor answers radius queries over the atoms of a structure.
//
// Atoms are indexed in a k-d tree; a radius query costs O(log n + k) rather
// than a scan over every atom. Results are sets: callers that need a stable
// order sort them (SortAtoms, SortResidues).
package neighbor

import (
	"sort"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/structure"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Index is an immutable spatial index over a fixed atom set.
type Index struct {
	tree  *kdtree.Tree
	atoms []*structure.Atom
}

// NewIndex builds an index over atoms. The slice is not retained.
func NewIndex(atoms []*structure.Atom) *Index {
	ix := &Index{atoms: append([]*structure.Atom(nil), atoms...)}
	if len(atoms) == 0 {
		return ix
	}
	pts := make(points, len(atoms))
	for i, a := range atoms {
		pts[i] = point{atom: a}
	}
	ix.tree = kdtree.New(pts, false)
	return ix
}

// ForStructure indexes every atom of s.
func ForStructure(s *structure.Structure) *Index {
	return NewIndex(s.Atoms())
}

func (ix *Index) Len() int { return len(ix.atoms) }

// Within returns the indexed atoms whose distance to pos is at most cutoff.
func (ix *Index) Within(pos structure.Vec3, cutoff float64) []*structure.Atom {
	return ix.within(probe{pos: pos}, cutoff)
}

func (ix *Index) within(q kdtree.Comparable, cutoff float64) []*structure.Atom {
	if ix.tree == nil || cutoff < 0 {
		return nil
	}
	keep := kdtree.NewDistKeeper(cutoff * cutoff)
	ix.tree.NearestSet(keep, q)
	out := make([]*structure.Atom, 0, keep.Len())
	for _, c := range keep.Heap {
		// the keeper is seeded with a nil sentinel at the cutoff distance
		if c.Comparable == nil {
			continue
		}
		out = append(out, c.Comparable.(point).atom)
	}
	return out
}

// AtomsNear returns indexed atoms within cutoff of any atom in ref. Atoms in
// ref are excluded unless includeRef is set.
func (ix *Index) AtomsNear(ref []*structure.Atom, cutoff float64, includeRef bool) []*structure.Atom {
	inRef := make(map[*structure.Atom]struct{}, len(ref))
	for _, a := range ref {
		inRef[a] = struct{}{}
	}
	seen := make(map[*structure.Atom]struct{})
	var out []*structure.Atom
	for _, a := range ref {
		for _, hit := range ix.within(point{atom: a}, cutoff) {
			if _, dup := seen[hit]; dup {
				continue
			}
			if _, self := inRef[hit]; self && !includeRef {
				continue
			}
			seen[hit] = struct{}{}
			out = append(out, hit)
		}
	}
	return out
}

// ResiduesNear reduces AtomsNear to owning residues. Residues in ref are
// excluded unless includeRef is set.
func (ix *Index) ResiduesNear(ref []*structure.Residue, cutoff float64, includeRef bool) []*structure.Residue {
	inRef := make(map[*structure.Residue]struct{}, len(ref))
	var atoms []*structure.Atom
	for _, r := range ref {
		inRef[r] = struct{}{}
		atoms = append(atoms, r.Atoms()...)
	}
	seen := make(map[*structure.Residue]struct{})
	var out []*structure.Residue
	for _, a := range ix.AtomsNear(atoms, cutoff, true) {
		r := a.Residue()
		if _, dup := seen[r]; dup {
			continue
		}
		if _, self := inRef[r]; self && !includeRef {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// SurroundingResidues returns center plus every residue of s with an atom
// within radius of one of center's atoms.
func SurroundingResidues(s *structure.Structure, center *structure.Residue, radius float64) []*structure.Residue {
	return ForStructure(s).ResiduesNear([]*structure.Residue{center}, radius, true)
}

// InterfaceResidues returns the residues of chain1 and chain2 that have an
// atom within cutoff of an atom of the other chain.
func InterfaceResidues(s *structure.Structure, chain1, chain2 string, cutoff float64) ([]*structure.Residue, error) {
	c1, ok := s.Chain(chain1)
	if !ok {
		return nil, errors.AddContext(errors.Newf(errors.CodeStructure, "chain %s not in structure %s", chain1, s.ID), errors.CtxChain, chain1)
	}
	c2, ok := s.Chain(chain2)
	if !ok {
		return nil, errors.AddContext(errors.Newf(errors.CodeStructure, "chain %s not in structure %s", chain2, s.ID), errors.CtxChain, chain2)
	}

	ix2 := NewIndex(chainAtoms(c2))
	near2 := ix2.ResiduesNear(c1.Residues(), cutoff, false)
	if len(near2) == 0 {
		return nil, nil
	}
	ix1 := NewIndex(chainAtoms(c1))
	near1 := ix1.ResiduesNear(near2, cutoff, false)
	return append(near1, near2...), nil
}

func chainAtoms(c *structure.Chain) []*structure.Atom {
	var atoms []*structure.Atom
	for _, r := range c.Residues() {
		atoms = append(atoms, r.Atoms()...)
	}
	return atoms
}

// SortResidues orders residues by their position in the structure.
func SortResidues(rs []*structure.Residue) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Index() < rs[j].Index() })
}

// SortAtoms orders atoms by their position in the structure.
func SortAtoms(as []*structure.Atom) {
	sort.Slice(as, func(i, j int) bool { return as[i].Index() < as[j].Index() })
}
