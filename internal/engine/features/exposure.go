package features

import (
	"molgraph/internal/core/errors"
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/neighbor"
	"molgraph/internal/engine/structure"
)

const HSE = "hse"

const hseRadius = 13.0

// addExposure writes the half-sphere exposure [up, down] of each node's
// residue: the number of other CA atoms within 13 Å on the side-chain side
// of the CA→CB vector and on the opposite side.
func addExposure(_ string, g *graph.Graph, _ *structure.Variant) error {
	if g.NumNodes() == 0 {
		return nil
	}
	var cas []*structure.Atom
	for _, r := range g.Structure.Residues() {
		if ca, ok := r.Atom("CA"); ok {
			cas = append(cas, ca)
		}
	}
	ix := neighbor.NewIndex(cas)

	cache := make(map[*structure.Residue][]float64)
	for _, n := range g.Nodes() {
		r := n.Residue
		hse, ok := cache[r]
		if !ok {
			var err error
			if hse, err = halfSphereExposure(ix, r); err != nil {
				return err
			}
			cache[r] = hse
		}
		n.Features.SetVector(HSE, hse)
	}
	return nil
}

func halfSphereExposure(ix *neighbor.Index, r *structure.Residue) ([]float64, error) {
	ca, ok := r.Atom("CA")
	if !ok {
		return nil, errors.AddContext(errors.Newf(errors.CodeFeature, "residue %s has no CA atom", r.Key()), errors.CtxResidue, r.Key())
	}
	cb, err := sideChainDirection(r, ca)
	if err != nil {
		return nil, err
	}
	dir := cb.Sub(ca.Position)

	var up, down float64
	for _, other := range ix.Within(ca.Position, hseRadius) {
		if other == ca {
			continue
		}
		if other.Position.Sub(ca.Position).Dot(dir) > 0 {
			up++
		} else {
			down++
		}
	}
	return []float64{up, down}, nil
}

// sideChainDirection returns CB, or a virtual CB placed from the backbone
// when the residue has none (glycine).
func sideChainDirection(r *structure.Residue, ca *structure.Atom) (structure.Vec3, error) {
	if cb, ok := r.Atom("CB"); ok {
		return cb.Position, nil
	}
	n, okN := r.Atom("N")
	c, okC := r.Atom("C")
	if !okN || !okC {
		return structure.Vec3{}, errors.AddContext(
			errors.Newf(errors.CodeFeature, "residue %s lacks backbone atoms for a virtual CB", r.Key()),
			errors.CtxResidue, r.Key())
	}
	b := ca.Position.Sub(n.Position)
	cc := c.Position.Sub(ca.Position)
	a := b.Cross(cc)
	return a.Scale(-0.58273431).Add(b.Scale(0.56802827)).Add(cc.Scale(-0.54067466)).Add(ca.Position), nil
}
