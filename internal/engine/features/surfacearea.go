package features

import (
	"math"

	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/neighbor"
	"molgraph/internal/engine/structure"
)

const (
	SASA = "sasa"
	BSA  = "bsa"
)

const (
	probeRadius  = 1.4
	spherePoints = 100
)

// unitSphere holds evenly spread points from a golden-section spiral.
var unitSphere = func() []structure.Vec3 {
	pts := make([]structure.Vec3, spherePoints)
	inc := math.Pi * (3 - math.Sqrt(5))
	off := 2.0 / spherePoints
	for k := range pts {
		y := float64(k)*off - 1 + off/2
		r := math.Sqrt(1 - y*y)
		phi := float64(k) * inc
		pts[k] = structure.Vec3{math.Cos(phi) * r, y, math.Sin(phi) * r}
	}
	return pts
}()

// surfaceCalculator computes Shrake-Rupley accessibility against a fixed
// atom context, caching per-atom results.
type surfaceCalculator struct {
	index *neighbor.Index
	cache map[*structure.Atom]float64
}

func newSurfaceCalculator(atoms []*structure.Atom) *surfaceCalculator {
	return &surfaceCalculator{index: neighbor.NewIndex(atoms), cache: make(map[*structure.Atom]float64)}
}

func (c *surfaceCalculator) atom(a *structure.Atom) float64 {
	if v, ok := c.cache[a]; ok {
		return v
	}
	ra := vdwRadius(a.Element) + probeRadius
	var neighbours []*structure.Atom
	for _, b := range c.index.Within(a.Position, ra+maxVdwRadius+probeRadius) {
		if b != a {
			neighbours = append(neighbours, b)
		}
	}

	accessible := 0
	for _, p := range unitSphere {
		pt := a.Position.Add(p.Scale(ra))
		buried := false
		for _, b := range neighbours {
			rb := vdwRadius(b.Element) + probeRadius
			if pt.Dist2(b.Position) < rb*rb {
				buried = true
				break
			}
		}
		if !buried {
			accessible++
		}
	}
	v := 4 * math.Pi * ra * ra * float64(accessible) / float64(len(unitSphere))
	c.cache[a] = v
	return v
}

func (c *surfaceCalculator) sum(atoms []*structure.Atom) float64 {
	total := 0.0
	for _, a := range atoms {
		total += c.atom(a)
	}
	return total
}

// addSurfaceArea writes the solvent-accessible area of each node in the full
// structure and the area it buries on complex formation, i.e. its area with
// only its own chain present minus its area in the complex.
func addSurfaceArea(_ string, g *graph.Graph, _ *structure.Variant) error {
	if g.NumNodes() == 0 {
		return nil
	}
	complexCalc := newSurfaceCalculator(g.Structure.Atoms())
	chainCalc := make(map[*structure.Chain]*surfaceCalculator)

	for _, n := range g.Nodes() {
		atoms := n.Atoms()
		inComplex := complexCalc.sum(atoms)

		chain := n.Residue.Chain()
		calc, ok := chainCalc[chain]
		if !ok {
			var chainAtoms []*structure.Atom
			for _, r := range chain.Residues() {
				chainAtoms = append(chainAtoms, r.Atoms()...)
			}
			calc = newSurfaceCalculator(chainAtoms)
			chainCalc[chain] = calc
		}
		alone := calc.sum(atoms)

		n.Features.SetScalar(SASA, inComplex)
		n.Features.SetScalar(BSA, math.Max(0, alone-inComplex))
	}
	return nil
}
