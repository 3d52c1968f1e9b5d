package features

import (
	"molgraph/internal/core/errors"
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/structure"
)

const (
	PSSM             = "pssm"
	InfoContent      = "info_content"
	Conservation     = "conservation"
	DiffConservation = "diff_conservation"
)

// addConservation copies profile rows onto nodes. Every node's residue must
// carry a profile.
func addConservation(_ string, g *graph.Graph, v *structure.Variant) error {
	for _, n := range g.Nodes() {
		r := n.Residue
		row := r.Profile()
		if row == nil {
			return errors.AddContext(
				errors.Newf(errors.CodeFeature, "residue %s has no conservation profile", r.Key()),
				errors.CtxChain, r.Chain().ID)
		}
		n.Features.SetVector(PSSM, row.Conservation[:])
		n.Features.SetScalar(InfoContent, row.InformationContent)
		n.Features.SetScalar(Conservation, row.Value(r.AminoAcid))
		if v != nil {
			diff := 0.0
			if v.Covers(r) {
				diff = row.Value(v.Variant) - row.Value(v.WildType)
			}
			n.Features.SetScalar(DiffConservation, diff)
		}
	}
	return nil
}
