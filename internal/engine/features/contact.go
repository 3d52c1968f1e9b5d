package features

import (
	"math"

	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/structure"
)

// Edge feature names written by the contact module.
const (
	SameChain     = "same_chain"
	Covalent      = "covalent"
	Electrostatic = "electrostatic"
	VanDerWaals   = "vanderwaals"
)

const (
	coulombConstant  = 332.0636 // kcal·Å/(mol·e²)
	covalentDistance = 2.1      // Å
)

// addContacts scores every edge by summing pairwise energies over the atoms
// of its two endpoints. Covalently bonded pairs contribute no energy.
func addContacts(_ string, g *graph.Graph, _ *structure.Variant) error {
	for _, e := range g.Edges() {
		a, b := g.Node(e.I), g.Node(e.J)

		same := 0.0
		if a.Residue.Chain() == b.Residue.Chain() {
			same = 1
		}

		var coulomb, lj float64
		bonded := false
		for _, x := range a.Atoms() {
			qx := atomCharge(x.Residue().AminoAcid.ThreeLetter, x.Name)
			px := ljFor(x.Element)
			for _, y := range b.Atoms() {
				r := x.Position.Dist(y.Position)
				if r < covalentDistance {
					bonded = true
					continue
				}
				qy := atomCharge(y.Residue().AminoAcid.ThreeLetter, y.Name)
				coulomb += coulombConstant * qx * qy / r
				lj += lennardJones(px, ljFor(y.Element), r)
			}
		}

		covalent := 0.0
		if bonded {
			covalent = 1
		}
		e.Features.SetScalar(SameChain, same)
		e.Features.SetScalar(Covalent, covalent)
		e.Features.SetScalar(Electrostatic, coulomb)
		e.Features.SetScalar(VanDerWaals, lj)
	}
	return nil
}

// lennardJones uses Lorentz-Berthelot mixing of the two atoms' parameters.
func lennardJones(a, b ljParams, r float64) float64 {
	sigma := (a.sigma + b.sigma) / 2
	eps := math.Sqrt(a.epsilon * b.epsilon)
	sr6 := math.Pow(sigma/r, 6)
	return 4 * eps * (sr6*sr6 - sr6)
}
