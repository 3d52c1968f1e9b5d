package features

import (
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/structure"
)

// Node feature names written by the components module.
const (
	ResType        = "res_type"
	Polarity       = "polarity"
	ResSize        = "res_size"
	ResCharge      = "res_charge"
	ResMass        = "res_mass"
	ResPI          = "res_pI"
	HBDonors       = "hb_donors"
	HBAcceptors    = "hb_acceptors"
	AtomType       = "atom_type"
	AtomCharge     = "atom_charge"
	VariantRes     = "variant_res"
	DiffCharge     = "diff_charge"
	DiffPolarity   = "diff_polarity"
	DiffSize       = "diff_size"
	DiffMass       = "diff_mass"
	DiffPI         = "diff_pI"
	DiffHBDonors   = "diff_hb_donors"
	DiffHBAcceptor = "diff_hb_acceptors"
)

func addComponents(_ string, g *graph.Graph, v *structure.Variant) error {
	for _, n := range g.Nodes() {
		r := n.Residue
		aa := r.AminoAcid
		f := n.Features

		f.SetVector(ResType, aa.OneHot())
		f.SetVector(Polarity, aa.Polarity.OneHot())
		f.SetScalar(ResSize, float64(aa.Size))
		f.SetScalar(ResCharge, aa.Charge)
		f.SetScalar(ResMass, aa.Mass)
		f.SetScalar(ResPI, aa.PI)
		f.SetScalar(HBDonors, float64(aa.HBondDonors))
		f.SetScalar(HBAcceptors, float64(aa.HBondAcceptors))

		if g.Granularity == graph.Atomic {
			f.SetVector(AtomType, atomTypeOneHot(n.Atom.Element))
			f.SetScalar(AtomCharge, atomCharge(aa.ThreeLetter, n.Atom.Name))
		}

		if v != nil {
			setVariantComponents(f, r, v)
		}
	}
	return nil
}

// setVariantComponents writes the substituted residue type and the property
// deltas. Nodes outside the variant residue get their own type and zeros.
func setVariantComponents(f graph.FeatureMap, r *structure.Residue, v *structure.Variant) {
	if !v.Covers(r) {
		f.SetVector(VariantRes, r.AminoAcid.OneHot())
		f.SetScalar(DiffCharge, 0)
		f.SetVector(DiffPolarity, make([]float64, structure.PolarityClasses))
		f.SetScalar(DiffSize, 0)
		f.SetScalar(DiffMass, 0)
		f.SetScalar(DiffPI, 0)
		f.SetScalar(DiffHBDonors, 0)
		f.SetScalar(DiffHBAcceptor, 0)
		return
	}
	wt, mut := v.WildType, v.Variant
	f.SetVector(VariantRes, mut.OneHot())
	f.SetScalar(DiffCharge, mut.Charge-wt.Charge)
	pw, pm := wt.Polarity.OneHot(), mut.Polarity.OneHot()
	diff := make([]float64, len(pw))
	for i := range diff {
		diff[i] = pm[i] - pw[i]
	}
	f.SetVector(DiffPolarity, diff)
	f.SetScalar(DiffSize, float64(mut.Size-wt.Size))
	f.SetScalar(DiffMass, mut.Mass-wt.Mass)
	f.SetScalar(DiffPI, mut.PI-wt.PI)
	f.SetScalar(DiffHBDonors, float64(mut.HBondDonors-wt.HBondDonors))
	f.SetScalar(DiffHBAcceptor, float64(mut.HBondAcceptors-wt.HBondAcceptors))
}
