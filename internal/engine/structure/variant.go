package structure

import (
	"fmt"

	"molgraph/internal/core/errors"
)

// Variant describes a single-residue substitution.
type Variant struct {
	Residue  *Residue
	WildType *AminoAcid
	Variant  *AminoAcid
}

func NewVariant(r *Residue, wildType, variant *AminoAcid) (*Variant, error) {
	if r == nil || wildType == nil || variant == nil {
		return nil, errors.New(errors.CodeValidationError, "variant requires a residue and both amino acids")
	}
	return &Variant{Residue: r, WildType: wildType, Variant: variant}, nil
}

// Covers reports whether r is the substituted residue.
func (v *Variant) Covers(r *Residue) bool {
	return v != nil && v.Residue == r
}

func (v *Variant) String() string {
	return fmt.Sprintf("%s %s->%s", v.Residue.Key(), v.WildType.ThreeLetter, v.Variant.ThreeLetter)
}
