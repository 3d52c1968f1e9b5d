package pdb

import (
	"bufio"
	"fmt"
	"io"

	"molgraph/internal/engine/structure"
)

// Write renders s as ATOM records followed by END. Atom serials are
// renumbered from 1 in structure order.
func Write(w io.Writer, s *structure.Structure) error {
	bw := bufio.NewWriter(w)
	for i, a := range s.Atoms() {
		r := a.Residue()
		icode := r.InsertionCode
		if icode == "" {
			icode = " "
		}
		if _, err := fmt.Fprintf(bw, "ATOM  %5d %-4s %3s %1s%4d%1s   %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
			i+1, atomName(a), r.AminoAcid.ThreeLetter, r.Chain().ID, r.Number, icode,
			a.Position[0], a.Position[1], a.Position[2], a.Occupancy, 0.0, a.Element); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("END\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// atomName applies the PDB alignment rule: names of one-letter elements
// start in column 14.
func atomName(a *structure.Atom) string {
	if len(a.Element) == 1 && len(a.Name) < 4 {
		return " " + a.Name
	}
	return a.Name
}
