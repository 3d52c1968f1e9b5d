// Package structuretest builds small synthetic structures for tests.
//
// Residues are laid out along the x axis 3.8 Å apart with a backbone
// (N, CA, C, O) and a straight side chain whose length follows the amino
// acid's side-chain size, so geometry-dependent code sees realistic spacing.
package structuretest

import (
	"fmt"

	"molgraph/internal/engine/structure"
)

// ChainSpec places one chain. Sequence uses one-letter codes.
type ChainSpec struct {
	ID       string
	Sequence string
	Start    int
	Offset   structure.Vec3
}

var sideChainNames = []string{"CB", "CG", "CD", "CE", "CZ", "CH", "CI", "CJ", "CK", "CL"}

// Build assembles a structure and panics on malformed input.
func Build(id string, chains ...ChainSpec) *structure.Structure {
	s := structure.New(id)
	for _, cs := range chains {
		c := s.AddChain(cs.ID)
		start := cs.Start
		if start == 0 {
			start = 1
		}
		for i, code := range cs.Sequence {
			aa, ok := structure.LookupAminoAcid(string(code))
			if !ok {
				panic(fmt.Sprintf("structuretest: unknown residue code %q", code))
			}
			r, err := c.AddResidue(start+i, "", aa)
			if err != nil {
				panic(err)
			}
			ca := cs.Offset.Add(structure.Vec3{3.8 * float64(i), 0, 0})
			must(r.AddAtom("N", "N", ca.Add(structure.Vec3{-1.2, 0.8, 0})))
			must(r.AddAtom("CA", "C", ca))
			must(r.AddAtom("C", "C", ca.Add(structure.Vec3{1.2, 0.6, 0})))
			must(r.AddAtom("O", "O", ca.Add(structure.Vec3{1.2, 1.8, 0})))
			for k := 0; k < aa.Size && k < len(sideChainNames); k++ {
				must(r.AddAtom(sideChainNames[k], "C", ca.Add(structure.Vec3{0, -1.0, 1.2 + 1.5*float64(k)})))
			}
		}
	}
	return s
}

// SingleChain returns a 12-residue chain A.
func SingleChain(id string) *structure.Structure {
	return Build(id, ChainSpec{ID: "A", Sequence: "MKTAYIAKQRGD"})
}

// Dimer returns chains A and B running in parallel about 7 Å apart, so that
// every residue sits at the interface.
func Dimer(id string) *structure.Structure {
	return Build(id,
		ChainSpec{ID: "A", Sequence: "MKTAYIAKQRGD"},
		ChainSpec{ID: "B", Sequence: "GSHMLEDRKVTW", Offset: structure.Vec3{0, 7, 0}},
	)
}

func must(_ *structure.Atom, err error) {
	if err != nil {
		panic(err)
	}
}

// AttachProfiles gives every residue a deterministic conservation row that
// favours its own amino acid.
func AttachProfiles(s *structure.Structure) {
	for _, r := range s.Residues() {
		row := &structure.ProfileRow{InformationContent: 0.1 * float64(1+r.Number%7)}
		for i := range row.Conservation {
			row.Conservation[i] = 0.01 * float64(1+(i+r.Number)%5)
		}
		row.Conservation[r.AminoAcid.Index] = 0.6
		r.SetProfile(row)
	}
}
