// Package profile reads position-specific scoring matrices and attaches them
// to structure chains as conservation rows.
package profile

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/structure"
)

// Profile holds the rows of one chain's PSSM keyed by residue label ("25",
// "25A").
type Profile struct {
	ChainID string

	rows   map[string]*structure.ProfileRow
	types  map[string]string
	labels []string
}

func (p *Profile) Len() int { return len(p.labels) }

// Row returns the conservation row for a residue label.
func (p *Profile) Row(label string) (*structure.ProfileRow, bool) {
	r, ok := p.rows[label]
	return r, ok
}

// Labels lists residue labels in file order.
func (p *Profile) Labels() []string { return p.labels }

// ReadFile parses a PSSM file for chainID.
func ReadFile(path, chainID string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeStructure, "open profile"), errors.CtxPath, path)
	}
	defer f.Close()
	p, err := Parse(f, chainID)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return p, nil
}

// Parse reads a whitespace-separated PSSM table. The header names the
// columns: pdbresi, pdbresn, the twenty one-letter amino-acid codes and IC.
// Extra columns (seqresi, seqresn) are ignored.
func Parse(r io.Reader, chainID string) (*Profile, error) {
	p := &Profile{ChainID: chainID, rows: make(map[string]*structure.ProfileRow), types: make(map[string]string)}
	scanner := bufio.NewScanner(r)

	var (
		header   map[string]int
		aaColumn [structure.NumAminoAcids]int
		lineNo   int
	)
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if header == nil {
			h, cols, err := parseHeader(fields)
			if err != nil {
				return nil, errors.Wrapf(err, errors.CodeStructure, "profile header line %d", lineNo)
			}
			header, aaColumn = h, cols
			continue
		}
		if len(fields) < len(header) {
			return nil, errors.Newf(errors.CodeStructure, "profile line %d: expected %d columns, got %d", lineNo, len(header), len(fields))
		}

		label := fields[header["pdbresi"]]
		if _, dup := p.rows[label]; dup {
			return nil, errors.Newf(errors.CodeStructure, "profile line %d: duplicate residue %s", lineNo, label)
		}
		row := &structure.ProfileRow{}
		for i, col := range aaColumn {
			v, err := strconv.ParseFloat(fields[col], 64)
			if err != nil {
				return nil, errors.Wrapf(err, errors.CodeStructure, "profile line %d", lineNo)
			}
			row.Conservation[i] = v
		}
		if col, ok := header["ic"]; ok {
			v, err := strconv.ParseFloat(fields[col], 64)
			if err != nil {
				return nil, errors.Wrapf(err, errors.CodeStructure, "profile line %d", lineNo)
			}
			row.InformationContent = v
		}
		p.rows[label] = row
		p.types[label] = fields[header["pdbresn"]]
		p.labels = append(p.labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeStructure, "read profile")
	}
	if header == nil {
		return nil, errors.New(errors.CodeStructure, "profile has no header")
	}
	return p, nil
}

func parseHeader(fields []string) (map[string]int, [structure.NumAminoAcids]int, error) {
	var cols [structure.NumAminoAcids]int
	header := make(map[string]int, len(fields))
	for i, f := range fields {
		header[strings.ToLower(f)] = i
	}
	for _, required := range []string{"pdbresi", "pdbresn"} {
		if _, ok := header[required]; !ok {
			return nil, cols, errors.Newf(errors.CodeStructure, "missing column %s", required)
		}
	}
	for i := 0; i < structure.NumAminoAcids; i++ {
		code := strings.ToLower(structure.AminoAcidByIndex(i).OneLetter)
		col, ok := header[code]
		if !ok {
			return nil, cols, errors.Newf(errors.CodeStructure, "missing amino-acid column %s", strings.ToUpper(code))
		}
		cols[i] = col
	}
	return header, cols, nil
}

// SplitLabel splits "25A" into residue number 25 and insertion code "A".
func SplitLabel(label string) (int, string, error) {
	end := len(label)
	for end > 0 && unicode.IsLetter(rune(label[end-1])) {
		end--
	}
	n, err := strconv.Atoi(label[:end])
	if err != nil {
		return 0, "", err
	}
	return n, label[end:], nil
}

// Attach sets the conservation row of every residue in c. A residue without a
// row, or whose type disagrees with the profile, is a structure error.
func (p *Profile) Attach(c *structure.Chain) error {
	for _, r := range c.Residues() {
		row, ok := p.rows[r.Label()]
		if !ok {
			return errors.AddContext(
				errors.Newf(errors.CodeStructure, "profile for chain %s has no row for residue %s", c.ID, r.Label()),
				errors.CtxResidue, r.Key())
		}
		if t := p.types[r.Label()]; t != "" {
			if aa, known := structure.LookupAminoAcid(t); known && aa != r.AminoAcid {
				return errors.Newf(errors.CodeStructure, "profile residue %s is %s but structure has %s", r.Key(), aa, r.AminoAcid)
			}
		}
		r.SetProfile(row)
	}
	return nil
}
