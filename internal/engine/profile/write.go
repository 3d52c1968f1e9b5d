package profile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/structure"
)

// FromChain captures the rows currently attached to c.
func FromChain(c *structure.Chain) (*Profile, error) {
	p := &Profile{ChainID: c.ID, rows: make(map[string]*structure.ProfileRow), types: make(map[string]string)}
	for _, r := range c.Residues() {
		row := r.Profile()
		if row == nil {
			return nil, errors.Newf(errors.CodeNotFound, "residue %s has no profile", r.Key())
		}
		p.rows[r.Label()] = row
		p.types[r.Label()] = r.AminoAcid.OneLetter
		p.labels = append(p.labels, r.Label())
	}
	return p, nil
}

// Write renders p in the table layout Parse reads.
func Write(w io.Writer, p *Profile) error {
	bw := bufio.NewWriter(w)
	cols := make([]string, 0, structure.NumAminoAcids)
	for i := 0; i < structure.NumAminoAcids; i++ {
		cols = append(cols, fmt.Sprintf(" %8s", structure.AminoAcidByIndex(i).OneLetter))
	}
	fmt.Fprintf(bw, "%8s %8s%s %8s\n", "pdbresi", "pdbresn", strings.Join(cols, ""), "IC")
	for _, label := range p.labels {
		row := p.rows[label]
		fmt.Fprintf(bw, "%8s %8s", label, p.types[label])
		for _, v := range row.Conservation {
			fmt.Fprintf(bw, " %8.4f", v)
		}
		fmt.Fprintf(bw, " %8.4f\n", row.InformationContent)
	}
	return bw.Flush()
}
