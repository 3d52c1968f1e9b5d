package structure

import "strings"

// Polarity is the side-chain class used for one-hot encoding.
type Polarity int

const (
	Nonpolar Polarity = iota
	Polar
	NegativeCharge
	PositiveCharge
)

// PolarityClasses is the width of a polarity one-hot vector.
const PolarityClasses = 4

func (p Polarity) String() string {
	switch p {
	case Nonpolar:
		return "nonpolar"
	case Polar:
		return "polar"
	case NegativeCharge:
		return "negative"
	case PositiveCharge:
		return "positive"
	}
	return "unknown"
}

// OneHot encodes p over PolarityClasses positions.
func (p Polarity) OneHot() []float64 {
	v := make([]float64, PolarityClasses)
	if p >= 0 && int(p) < PolarityClasses {
		v[p] = 1
	}
	return v
}

// AminoAcid holds the per-residue-type properties used by feature modules.
// Size counts side-chain heavy atoms; Mass is the residue mass in Dalton.
type AminoAcid struct {
	Name           string
	ThreeLetter    string
	OneLetter      string
	Index          int
	Charge         float64
	Polarity       Polarity
	Size           int
	Mass           float64
	PI             float64
	HBondDonors    int
	HBondAcceptors int
}

// NumAminoAcids is the width of a residue-type one-hot vector.
const NumAminoAcids = 20

// Ordered so that Index matches the column order of PSI-BLAST profiles
// (A R N D C Q E G H I L K M F P S T W Y V).
var aminoAcids = [NumAminoAcids]AminoAcid{
	{"alanine", "ALA", "A", 0, 0, Nonpolar, 1, 71.08, 6.00, 0, 0},
	{"arginine", "ARG", "R", 1, 1, PositiveCharge, 7, 156.19, 10.76, 5, 0},
	{"asparagine", "ASN", "N", 2, 0, Polar, 4, 114.10, 5.41, 2, 2},
	{"aspartate", "ASP", "D", 3, -1, NegativeCharge, 4, 115.09, 2.77, 0, 4},
	{"cysteine", "CYS", "C", 4, 0, Polar, 2, 103.14, 5.07, 0, 0},
	{"glutamine", "GLN", "Q", 5, 0, Polar, 5, 128.13, 5.65, 2, 2},
	{"glutamate", "GLU", "E", 6, -1, NegativeCharge, 5, 129.12, 3.22, 0, 4},
	{"glycine", "GLY", "G", 7, 0, Nonpolar, 0, 57.05, 5.97, 0, 0},
	{"histidine", "HIS", "H", 8, 0, PositiveCharge, 6, 137.14, 7.59, 1, 1},
	{"isoleucine", "ILE", "I", 9, 0, Nonpolar, 4, 113.16, 6.02, 0, 0},
	{"leucine", "LEU", "L", 10, 0, Nonpolar, 4, 113.16, 5.98, 0, 0},
	{"lysine", "LYS", "K", 11, 1, PositiveCharge, 5, 128.17, 9.74, 3, 0},
	{"methionine", "MET", "M", 12, 0, Nonpolar, 4, 131.19, 5.74, 0, 0},
	{"phenylalanine", "PHE", "F", 13, 0, Nonpolar, 7, 147.18, 5.48, 0, 0},
	{"proline", "PRO", "P", 14, 0, Nonpolar, 3, 97.12, 6.30, 0, 0},
	{"serine", "SER", "S", 15, 0, Polar, 2, 87.08, 5.68, 1, 2},
	{"threonine", "THR", "T", 16, 0, Polar, 3, 101.10, 5.60, 1, 2},
	{"tryptophan", "TRP", "W", 17, 0, Nonpolar, 10, 186.21, 5.89, 1, 0},
	{"tyrosine", "TYR", "Y", 18, 0, Polar, 8, 163.18, 5.66, 1, 1},
	{"valine", "VAL", "V", 19, 0, Nonpolar, 3, 99.13, 5.96, 0, 0},
}

var aminoAcidLookup = func() map[string]*AminoAcid {
	m := make(map[string]*AminoAcid, 3*NumAminoAcids)
	for i := range aminoAcids {
		aa := &aminoAcids[i]
		m[aa.ThreeLetter] = aa
		m[aa.OneLetter] = aa
		m[strings.ToUpper(aa.Name)] = aa
	}
	return m
}()

// LookupAminoAcid resolves a three-letter code, one-letter code or full name,
// case-insensitively.
func LookupAminoAcid(name string) (*AminoAcid, bool) {
	aa, ok := aminoAcidLookup[strings.ToUpper(strings.TrimSpace(name))]
	return aa, ok
}

// AminoAcidByIndex returns the amino acid at a profile column.
func AminoAcidByIndex(i int) *AminoAcid {
	if i < 0 || i >= NumAminoAcids {
		return nil
	}
	return &aminoAcids[i]
}

// OneHot encodes aa over NumAminoAcids positions.
func (aa *AminoAcid) OneHot() []float64 {
	v := make([]float64, NumAminoAcids)
	v[aa.Index] = 1
	return v
}

func (aa *AminoAcid) String() string { return aa.ThreeLetter }
