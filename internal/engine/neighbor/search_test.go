package neighbor

import (
	"fmt"
	"math/rand"
	"testing"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/structure"
	"molgraph/internal/engine/structure/structuretest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomStructure(t *testing.T, n int, seed int64) *structure.Structure {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	s := structure.New("rand")
	c := s.AddChain("A")
	gly, _ := structure.LookupAminoAcid("GLY")
	for i := 0; i < n; i++ {
		r, err := c.AddResidue(i+1, "", gly)
		require.NoError(t, err)
		pos := structure.Vec3{rng.Float64() * 30, rng.Float64() * 30, rng.Float64() * 30}
		_, err = r.AddAtom("CA", "C", pos)
		require.NoError(t, err)
	}
	return s
}

func TestWithinMatchesBruteForce(t *testing.T) {
	s := randomStructure(t, 400, 7)
	ix := ForStructure(s)
	require.Equal(t, 400, ix.Len())

	for _, cutoff := range []float64{3.5, 4.5, 6, 10} {
		t.Run(fmt.Sprintf("cutoff=%.1f", cutoff), func(t *testing.T) {
			for _, center := range s.Atoms()[:25] {
				got := ix.Within(center.Position, cutoff)
				want := map[*structure.Atom]bool{}
				for _, a := range s.Atoms() {
					if a.Position.Dist2(center.Position) <= cutoff*cutoff {
						want[a] = true
					}
				}
				require.Len(t, got, len(want))
				for _, a := range got {
					assert.True(t, want[a])
				}
			}
		})
	}
}

func TestAtomsNearExcludesReference(t *testing.T) {
	s := randomStructure(t, 200, 11)
	ix := ForStructure(s)
	ref := s.Atoms()[:3]

	without := ix.AtomsNear(ref, 6, false)
	for _, a := range without {
		assert.NotContains(t, ref, a)
	}
	with := ix.AtomsNear(ref, 6, true)
	for _, a := range ref {
		assert.Contains(t, with, a)
	}
	assert.Equal(t, len(without)+len(ref), len(with))
}

func TestEmptyIndex(t *testing.T) {
	ix := NewIndex(nil)
	assert.Empty(t, ix.Within(structure.Vec3{}, 10))
}

func TestSurroundingResidues(t *testing.T) {
	s := structuretest.SingleChain("s")
	a, _ := s.Chain("A")
	center, _ := a.Residue(6, "")

	got := SurroundingResidues(s, center, 4.5)
	SortResidues(got)
	require.NotEmpty(t, got)
	assert.Contains(t, got, center)

	// residues 3.8 Å apart along x: immediate neighbours share close backbone atoms
	prev, _ := a.Residue(5, "")
	next, _ := a.Residue(7, "")
	assert.Contains(t, got, prev)
	assert.Contains(t, got, next)
	far, _ := a.Residue(12, "")
	assert.NotContains(t, got, far)

	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Index(), got[i].Index())
	}
}

func TestInterfaceResidues(t *testing.T) {
	s := structuretest.Dimer("d")
	got, err := InterfaceResidues(s, "A", "B", 5.5)
	require.NoError(t, err)
	chains := map[string]int{}
	for _, r := range got {
		chains[r.Chain().ID]++
	}
	assert.Positive(t, chains["A"])
	assert.Positive(t, chains["B"])

	far, err := InterfaceResidues(s, "A", "B", 1.0)
	require.NoError(t, err)
	assert.Empty(t, far)

	_, err = InterfaceResidues(s, "A", "C", 5.5)
	assert.True(t, errors.IsCode(err, errors.CodeStructure))
}
