package features

import "strings"

// Simplified united-atom charges (e). Backbone groups are neutral dipoles;
// ionisable side chains carry their formal charge on the terminal atoms.
var backboneCharges = map[string]float64{
	"N":  -0.30,
	"CA": 0.30,
	"C":  0.50,
	"O":  -0.50,
}

var sideChainCharges = map[string]map[string]float64{
	"ASP": {"OD1": -0.5, "OD2": -0.5},
	"GLU": {"OE1": -0.5, "OE2": -0.5},
	"LYS": {"NZ": 1.0},
	"ARG": {"NE": 1.0 / 3, "NH1": 1.0 / 3, "NH2": 1.0 / 3},
}

func atomCharge(resName, atomName string) float64 {
	if q, ok := backboneCharges[atomName]; ok {
		return q
	}
	return sideChainCharges[resName][atomName]
}

// Lennard-Jones parameters per element: sigma in Å, epsilon in kcal/mol.
type ljParams struct {
	sigma, epsilon float64
}

var elementLJ = map[string]ljParams{
	"C": {3.40, 0.086},
	"N": {3.25, 0.170},
	"O": {2.96, 0.210},
	"S": {3.55, 0.250},
	"H": {1.07, 0.016},
}

func ljFor(element string) ljParams {
	if p, ok := elementLJ[strings.ToUpper(element)]; ok {
		return p
	}
	return elementLJ["C"]
}

// vdwRadius is the Bondi-style radius used for solvent accessibility.
func vdwRadius(element string) float64 {
	switch strings.ToUpper(element) {
	case "C":
		return 1.70
	case "N":
		return 1.55
	case "O":
		return 1.52
	case "S":
		return 1.80
	case "H":
		return 1.10
	}
	return 1.80
}

const maxVdwRadius = 1.80

// atomTypes indexes the atom_type one-hot; anything else maps to the last slot.
var atomTypes = []string{"C", "N", "O", "S"}

func atomTypeOneHot(element string) []float64 {
	v := make([]float64, len(atomTypes)+1)
	for i, t := range atomTypes {
		if strings.EqualFold(element, t) {
			v[i] = 1
			return v
		}
	}
	v[len(atomTypes)] = 1
	return v
}
