package features

import (
	"context"
	"reflect"
	"testing"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/structure"
	"molgraph/internal/engine/structure/structuretest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func residueGraph(t *testing.T, s *structure.Structure) *graph.Graph {
	t.Helper()
	g, err := graph.BuildResidue("res", s.Residues(), 8.5)
	require.NoError(t, err)
	return g
}

func atomicGraph(t *testing.T, s *structure.Structure, residues int) *graph.Graph {
	t.Helper()
	var atoms []*structure.Atom
	for _, r := range s.Residues()[:residues] {
		atoms = append(atoms, r.Atoms()...)
	}
	g, err := graph.BuildAtomic("atom", atoms, 4.5)
	require.NoError(t, err)
	return g
}

func testVariant(t *testing.T, s *structure.Structure) *structure.Variant {
	t.Helper()
	r := s.Residues()[3] // A:4 ALA
	phe, _ := structure.LookupAminoAcid("PHE")
	v, err := structure.NewVariant(r, r.AminoAcid, phe)
	require.NoError(t, err)
	return v
}

func snapshot(g *graph.Graph) []graph.FeatureMap {
	var out []graph.FeatureMap
	for _, n := range g.Nodes() {
		cp := graph.FeatureMap{}
		for k, f := range n.Features {
			cp[k] = graph.Feature{Values: append([]float64(nil), f.Values...), Vector: f.Vector}
		}
		out = append(out, cp)
	}
	for _, e := range g.Edges() {
		cp := graph.FeatureMap{}
		for k, f := range e.Features {
			cp[k] = graph.Feature{Values: append([]float64(nil), f.Values...), Vector: f.Vector}
		}
		out = append(out, cp)
	}
	return out
}

func TestAllModulesResidueGraph(t *testing.T) {
	s := structuretest.Dimer("d")
	structuretest.AttachProfiles(s)
	g := residueGraph(t, s)
	v := testVariant(t, s)

	require.NoError(t, Apply(context.Background(), "d.pdb", g, v, All()))
	nodes, edges, err := g.Validate()
	require.NoError(t, err)

	assert.Equal(t, structure.NumAminoAcids, nodes[ResType])
	assert.Equal(t, structure.PolarityClasses, nodes[Polarity])
	assert.Equal(t, structure.NumAminoAcids, nodes[PSSM])
	assert.Equal(t, 2, nodes[HSE])
	assert.Equal(t, 0, nodes[SASA])
	assert.Equal(t, 0, nodes[DiffConservation])
	assert.NotContains(t, nodes, AtomType, "atom features only on atomic graphs")
	for _, name := range []string{SameChain, Covalent, Electrostatic, VanDerWaals, graph.FeatureDistance} {
		assert.Contains(t, edges, name)
	}
	assert.False(t, g.HasNaN())
}

func TestModulesAreIdempotent(t *testing.T) {
	s := structuretest.Dimer("d")
	structuretest.AttachProfiles(s)
	g := residueGraph(t, s)
	v := testVariant(t, s)

	require.NoError(t, Apply(context.Background(), "", g, v, All()))
	first := snapshot(g)
	require.NoError(t, Apply(context.Background(), "", g, v, All()))
	assert.True(t, reflect.DeepEqual(first, snapshot(g)))
}

func TestModuleOrderDoesNotMatter(t *testing.T) {
	s := structuretest.Dimer("d")
	structuretest.AttachProfiles(s)
	v := testVariant(t, s)

	forward := residueGraph(t, s)
	require.NoError(t, Apply(context.Background(), "", forward, v, All()))

	mods := All()
	for i, j := 0, len(mods)-1; i < j; i, j = i+1, j-1 {
		mods[i], mods[j] = mods[j], mods[i]
	}
	reversed := residueGraph(t, s)
	require.NoError(t, Apply(context.Background(), "", reversed, v, mods))
	assert.True(t, reflect.DeepEqual(snapshot(forward), snapshot(reversed)))
}

func TestComponentsVariantDeltas(t *testing.T) {
	s := structuretest.SingleChain("s")
	g := residueGraph(t, s)
	v := testVariant(t, s)
	require.NoError(t, addComponents("", g, v))

	target, ok := g.NodeByID(v.Residue.Key())
	require.True(t, ok)
	mass, _ := target.Features.Scalar(DiffMass)
	assert.InDelta(t, v.Variant.Mass-v.WildType.Mass, mass, 1e-9)
	res, _ := target.Features.Vector(VariantRes)
	assert.Equal(t, 1.0, res[v.Variant.Index])

	other := g.Node(0)
	mass, _ = other.Features.Scalar(DiffMass)
	assert.Zero(t, mass)
	res, _ = other.Features.Vector(VariantRes)
	own, _ := other.Features.Vector(ResType)
	assert.Equal(t, own, res)
}

func TestComponentsWithoutVariant(t *testing.T) {
	g := residueGraph(t, structuretest.SingleChain("s"))
	require.NoError(t, addComponents("", g, nil))
	_, ok := g.Node(0).Features[VariantRes]
	assert.False(t, ok)
}

func TestAtomicFeatures(t *testing.T) {
	s := structuretest.Dimer("d")
	structuretest.AttachProfiles(s)
	g := atomicGraph(t, s, 4)

	require.NoError(t, Apply(context.Background(), "", g, nil, All()))
	nodes, _, err := g.Validate()
	require.NoError(t, err)
	assert.Equal(t, len(atomTypes)+1, nodes[AtomType])
	assert.Equal(t, 0, nodes[AtomCharge])

	ca, ok := g.NodeByID("A:1:MET:CA")
	require.True(t, ok)
	hot, _ := ca.Features.Vector(AtomType)
	assert.Equal(t, []float64{1, 0, 0, 0, 0}, hot)
	q, _ := ca.Features.Scalar(AtomCharge)
	assert.InDelta(t, 0.30, q, 1e-12)
}

func TestConservationRequiresProfile(t *testing.T) {
	s := structuretest.SingleChain("s")
	g := residueGraph(t, s)
	err := Apply(context.Background(), "", g, nil, []Module{{Name: "conservation", Add: addConservation}})
	assert.True(t, errors.IsCode(err, errors.CodeFeature))
}

func TestContactCovalentAndChain(t *testing.T) {
	s := structuretest.Dimer("d")
	g := residueGraph(t, s)
	require.NoError(t, addContacts("", g, nil))

	a1, _ := g.NodeByID("A:1")
	a2, _ := g.NodeByID("A:2")
	e, ok := g.Edge(a1.Index(), a2.Index())
	require.True(t, ok)
	cov, _ := e.Features.Scalar(Covalent)
	same, _ := e.Features.Scalar(SameChain)
	assert.Equal(t, 1.0, cov, "peptide bond")
	assert.Equal(t, 1.0, same)

	b2, _ := g.NodeByID("B:2")
	e, ok = g.Edge(a2.Index(), b2.Index())
	require.True(t, ok)
	same, _ = e.Features.Scalar(SameChain)
	cov, _ = e.Features.Scalar(Covalent)
	assert.Zero(t, same)
	assert.Zero(t, cov)
}

func TestSurfaceAreaBuriedOnInterface(t *testing.T) {
	s := structuretest.Dimer("d")
	g := residueGraph(t, s)
	require.NoError(t, addSurfaceArea("", g, nil))

	buried := 0
	for _, n := range g.Nodes() {
		sasa, _ := n.Features.Scalar(SASA)
		bsa, _ := n.Features.Scalar(BSA)
		assert.Positive(t, sasa, n.ID)
		assert.GreaterOrEqual(t, bsa, 0.0)
		if bsa > 0 {
			buried++
		}
	}
	assert.Positive(t, buried, "chains in contact bury surface")

	mono := residueGraph(t, structuretest.SingleChain("m"))
	require.NoError(t, addSurfaceArea("", mono, nil))
	for _, n := range mono.Nodes() {
		bsa, _ := n.Features.Scalar(BSA)
		assert.Zero(t, bsa)
	}
}

func TestExposureNeedsBackbone(t *testing.T) {
	s := structure.New("x")
	gly, _ := structure.LookupAminoAcid("GLY")
	r, err := s.AddChain("A").AddResidue(1, "", gly)
	require.NoError(t, err)
	_, _ = r.AddAtom("CA", "C", structure.Vec3{})
	g, err := graph.BuildResidue("x", s.Residues(), 4)
	require.NoError(t, err)

	err = addExposure("", g, nil)
	assert.True(t, errors.IsCode(err, errors.CodeFeature))
}

func TestApplyRejectsShapeChanges(t *testing.T) {
	s := structuretest.SingleChain("s")
	g := residueGraph(t, s)
	rogue := Module{Name: "rogue", Add: func(_ string, g *graph.Graph, _ *structure.Variant) error {
		_, err := g.AddEdge(0, g.NumNodes()-1)
		return err
	}}
	err := Apply(context.Background(), "", g, nil, []Module{rogue})
	assert.True(t, errors.IsCode(err, errors.CodeGraphDefect))
}

func TestLookup(t *testing.T) {
	mods, err := Lookup([]string{"contact", "components"})
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "contact", mods[0].Name)

	_, err = Lookup([]string{"dssp"})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	assert.Equal(t, []string{"components", "conservation", "contact", "surfacearea", "exposure"}, Names())
}
