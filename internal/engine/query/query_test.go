package query

import (
	"context"
	"testing"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/features"
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/structure"
	"molgraph/internal/engine/structure/structuretest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syntheticProfiles struct{ calls int }

func (p *syntheticProfiles) Attach(_ context.Context, s *structure.Structure, _ map[string]string) error {
	p.calls++
	structuretest.AttachProfiles(s)
	return nil
}

func testEnv() (Env, *syntheticProfiles) {
	profiles := &syntheticProfiles{}
	return Env{
		Structures: structure.LoaderFunc(func(_ context.Context, path string) (*structure.Structure, error) {
			switch path {
			case "far.pdb":
				return structuretest.Build("far",
					structuretest.ChainSpec{ID: "A", Sequence: "MKTA"},
					structuretest.ChainSpec{ID: "B", Sequence: "GSHM", Offset: structure.Vec3{0, 60, 0}},
				), nil
			case "missing.pdb":
				return nil, errors.New(errors.CodeStructure, "no such file")
			}
			return structuretest.Dimer("3C8P"), nil
		}),
		Profiles: profiles,
	}, profiles
}

func variantOpts() VariantOptions {
	return VariantOptions{
		StructurePath: "data/101M.pdb",
		ChainID:       "A",
		ResidueNumber: 4,
		WildType:      "ALA",
		Variant:       "PHE",
		Radius:        DefaultRadius,
		EdgeCutoff:    DefaultEdgeCutoff,
		Targets:       map[string]float64{"bin_class": 0},
	}
}

func TestVariantQueryID(t *testing.T) {
	q, err := NewVariantResidueQuery(variantOpts())
	require.NoError(t, err)
	assert.Equal(t, "residue-graph-101M:A:4:alanine->phenylalanine", q.ID())
	assert.Equal(t, KindVariantResidue, q.Kind())

	opts := variantOpts()
	opts.InsertionCode = "B"
	atomic, err := NewVariantAtomicQuery(opts)
	require.NoError(t, err)
	assert.Equal(t, "atom-graph-101M:A:4B:alanine->phenylalanine", atomic.ID())
	assert.Equal(t, KindVariantAtomic, atomic.Kind())
	assert.NotEqual(t, q.Fingerprint(), atomic.Fingerprint())
}

func TestFingerprintStable(t *testing.T) {
	a, err := NewVariantResidueQuery(variantOpts())
	require.NoError(t, err)
	b, err := NewVariantResidueQuery(variantOpts())
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	opts := variantOpts()
	opts.Radius = 8
	c, err := NewVariantResidueQuery(opts)
	require.NoError(t, err)
	assert.Equal(t, a.ID(), c.ID())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint(), "radius changes the graph")
}

func TestVariantConstructionErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]func(*VariantOptions){
		"no path":         func(o *VariantOptions) { o.StructurePath = "" },
		"no chain":        func(o *VariantOptions) { o.ChainID = " " },
		"zero radius":     func(o *VariantOptions) { o.Radius = 0 },
		"negative cutoff": func(o *VariantOptions) { o.EdgeCutoff = -1 },
		"unknown wt":      func(o *VariantOptions) { o.WildType = "XAA" },
		"unknown variant": func(o *VariantOptions) { o.Variant = "" },
		"empty profile":   func(o *VariantOptions) { o.ProfilePaths = map[string]string{"A": ""} },
	}
	for name, mutate := range tests {
		opts := variantOpts()
		mutate(&opts)
		_, err := NewVariantResidueQuery(opts)
		assert.True(t, errors.IsCode(err, errors.CodeValidationError), name)
	}
}

func TestInterfaceConstructionErrors(t *testing.T) {
	t.Parallel()
	base := InterfaceOptions{StructurePath: "x.pdb", ChainID1: "A", ChainID2: "B", InterfaceCutoff: 8.5, EdgeCutoff: 8.5}

	same := base
	same.ChainID2 = "A"
	_, err := NewInterfaceResidueQuery(same)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	missing := base
	missing.ChainID1 = ""
	_, err = NewInterfaceAtomicQuery(missing)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	badRadius := base
	badRadius.SurroundingRadius = -2
	_, err = NewInterfaceResidueQuery(badRadius)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	q, err := NewInterfaceResidueQuery(base)
	require.NoError(t, err)
	assert.Equal(t, "residue-ppi-x:A-B", q.ID())
}

func TestVariantResidueGraph(t *testing.T) {
	env, profiles := testEnv()
	opts := variantOpts()
	opts.ProfilePaths = map[string]string{"A": "101M.A.pssm"}
	q, err := NewVariantResidueQuery(opts)
	require.NoError(t, err)

	g, err := q.BuildGraph(context.Background(), env, features.All())
	require.NoError(t, err)
	assert.Equal(t, 1, profiles.calls)

	assert.Equal(t, q.ID(), g.Name)
	assert.Equal(t, graph.Residue, g.Granularity)
	assert.Positive(t, g.NumNodes())
	assert.Positive(t, g.NumEdges())
	for _, n := range g.Nodes() {
		_, ok := n.Features.Vector(graph.FeaturePosition)
		assert.True(t, ok)
	}
	for _, e := range g.Edges() {
		assert.NotEqual(t, e.I, e.J)
		assert.Positive(t, e.Distance())
	}
	assert.False(t, g.HasNaN())

	require.NotNil(t, g.Variant)
	assert.Equal(t, "A:4", g.Variant.Residue.Key())
	assert.Equal(t, 0.0, g.Targets["bin_class"])
	assert.Equal(t, q.Fingerprint(), g.Metadata[MetaFingerprint])
	assert.Equal(t, "101M.A.pssm", g.Metadata[MetaProfilePath+"A"])
	assert.Equal(t, string(KindVariantResidue), g.Metadata[MetaKind])

	_, ok := g.NodeByID("A:4")
	assert.True(t, ok, "the variant residue is a node")
}

func TestVariantAtomicGraph(t *testing.T) {
	env, _ := testEnv()
	opts := variantOpts()
	opts.ProfilePaths = map[string]string{"A": "p", "B": "q"}
	q, err := NewVariantAtomicQuery(opts)
	require.NoError(t, err)

	g, err := q.BuildGraph(context.Background(), env, features.All())
	require.NoError(t, err)
	assert.Equal(t, graph.Atomic, g.Granularity)
	for _, n := range g.Nodes() {
		require.NotNil(t, n.Atom)
	}
	_, _, err = g.Validate()
	require.NoError(t, err)
}

func TestInterfaceGraphs(t *testing.T) {
	env, _ := testEnv()
	for _, newQuery := range []func(InterfaceOptions) (*ProteinProteinInterfaceQuery, error){NewInterfaceResidueQuery, NewInterfaceAtomicQuery} {
		q, err := newQuery(InterfaceOptions{
			StructurePath:   "3C8P.pdb",
			ChainID1:        "A",
			ChainID2:        "B",
			InterfaceCutoff: DefaultInterfaceCutoffAtomic,
			EdgeCutoff:      DefaultEdgeCutoff,
		})
		require.NoError(t, err)
		g, err := q.BuildGraph(context.Background(), env, []features.Module{})
		require.NoError(t, err, q.ID())

		chains := map[string]bool{}
		for _, n := range g.Nodes() {
			chains[n.Residue.Chain().ID] = true
		}
		assert.True(t, chains["A"] && chains["B"], "both sides of the interface")
		assert.Equal(t, "A,B", g.Metadata[MetaChains])
		assert.Nil(t, g.Variant)
	}
}

func TestSurroundingRadiusExpandsSelection(t *testing.T) {
	env, _ := testEnv()
	base := InterfaceOptions{StructurePath: "3C8P.pdb", ChainID1: "A", ChainID2: "B", InterfaceCutoff: 4.6, EdgeCutoff: 4.5}
	q, err := NewInterfaceResidueQuery(base)
	require.NoError(t, err)
	plain, err := q.BuildGraph(context.Background(), env, nil)
	require.NoError(t, err)

	base.SurroundingRadius = 10
	q, err = NewInterfaceResidueQuery(base)
	require.NoError(t, err)
	wide, err := q.BuildGraph(context.Background(), env, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, wide.NumNodes(), plain.NumNodes())
}

func TestBuildFailures(t *testing.T) {
	env, _ := testEnv()
	ctx := context.Background()

	q, err := NewInterfaceResidueQuery(InterfaceOptions{StructurePath: "3C8P.pdb", ChainID1: "A", ChainID2: "C", InterfaceCutoff: 8.5, EdgeCutoff: 8.5})
	require.NoError(t, err)
	_, err = q.BuildGraph(ctx, env, nil)
	assert.True(t, errors.IsCode(err, errors.CodeStructure), "missing chain")

	q, err = NewInterfaceResidueQuery(InterfaceOptions{StructurePath: "far.pdb", ChainID1: "A", ChainID2: "B", InterfaceCutoff: 8.5, EdgeCutoff: 8.5})
	require.NoError(t, err)
	_, err = q.BuildGraph(ctx, env, nil)
	assert.True(t, errors.IsCode(err, errors.CodeDegenerateGraph), "no interface")

	opts := variantOpts()
	opts.ResidueNumber = 999
	vq, err := NewVariantResidueQuery(opts)
	require.NoError(t, err)
	_, err = vq.BuildGraph(ctx, env, nil)
	assert.True(t, errors.IsCode(err, errors.CodeStructure), "missing residue")

	opts = variantOpts()
	opts.StructurePath = "missing.pdb"
	vq, err = NewVariantResidueQuery(opts)
	require.NoError(t, err)
	_, err = vq.BuildGraph(ctx, env, nil)
	assert.True(t, errors.IsCode(err, errors.CodeStructure), "unreadable structure")

	vq, err = NewVariantResidueQuery(variantOpts())
	require.NoError(t, err)
	_, err = vq.BuildGraph(ctx, env, features.All())
	assert.True(t, errors.IsCode(err, errors.CodeFeature), "conservation without profiles")
}
