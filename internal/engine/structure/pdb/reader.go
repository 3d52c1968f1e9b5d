// Package pdb reads and writes coordinate records in the Protein Data Bank
// fixed-column format.
package pdb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/structure"
	"molgraph/internal/shared/logger"

	"go.uber.org/zap"
)

// Options controls which records are kept.
type Options struct {
	// IncludeHetero keeps HETATM records whose residue name is a standard
	// amino acid (e.g. modified termini written as HETATM).
	IncludeHetero bool
}

// Loader implements structure.Loader for PDB files.
type Loader struct {
	Options Options
}

func NewLoader(opts Options) *Loader {
	return &Loader{Options: opts}
}

func (l *Loader) Load(ctx context.Context, path string) (*structure.Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeStructure, "open structure"), errors.CtxPath, path)
	}
	defer f.Close()

	s, err := Read(f, StructureID(path), l.Options)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	s.Path = path
	return s, nil
}

// StructureID derives the structure identifier from a file name: the base
// name without its extension.
func StructureID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Read parses the first model of a PDB stream. Only the first alternate
// location read for each atom is kept, whatever its label, and residues that are not standard amino
// acids are skipped.
func Read(r io.Reader, id string, opts Options) (*structure.Structure, error) {
	s := structure.New(id)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256), 1<<20)

	skipped := make(map[string]int)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		record := field(line, 0, 6)
		switch record {
		case "ENDMDL", "END":
			return finish(s, skipped)
		case "ATOM":
		case "HETATM":
			if !opts.IncludeHetero {
				continue
			}
		default:
			continue
		}

		rec, err := parseAtomRecord(line)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeStructure, "line %d", lineNo)
		}
		aa, ok := structure.LookupAminoAcid(rec.resName)
		if !ok || len(rec.resName) != 3 {
			skipped[rec.resName]++
			continue
		}

		c := s.AddChain(rec.chainID)
		res, ok := c.Residue(rec.resSeq, rec.iCode)
		if !ok {
			res, err = c.AddResidue(rec.resSeq, rec.iCode, aa)
			if err != nil {
				return nil, err
			}
		} else if res.AminoAcid != aa {
			return nil, errors.Newf(errors.CodeStructure, "line %d: residue %s changes type from %s to %s", lineNo, res.Key(), res.AminoAcid, aa)
		}
		if _, dup := res.Atom(rec.name); dup {
			// later alternate location; the first one read wins
			continue
		}
		a, err := res.AddAtom(rec.name, rec.element, rec.pos)
		if err != nil {
			return nil, err
		}
		a.Serial = rec.serial
		a.Occupancy = rec.occupancy
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeStructure, "read structure")
	}
	return finish(s, skipped)
}

func finish(s *structure.Structure, skipped map[string]int) (*structure.Structure, error) {
	if len(skipped) > 0 {
		logger.Debug("skipped non-standard residues", zap.String("structure", s.ID), zap.Any("residues", skipped))
	}
	if len(s.Atoms()) == 0 {
		return nil, errors.Newf(errors.CodeStructure, "structure %s has no amino-acid atoms", s.ID)
	}
	return s, nil
}

type atomRecord struct {
	serial    int
	name      string
	altLoc    string
	resName   string
	chainID   string
	resSeq    int
	iCode     string
	pos       structure.Vec3
	occupancy float64
	element   string
}

func parseAtomRecord(line string) (atomRecord, error) {
	var rec atomRecord
	if len(line) < 54 {
		return rec, fmt.Errorf("coordinate record too short (%d columns)", len(line))
	}
	var err error
	if s := field(line, 6, 11); s != "" {
		// serials overflow into hex-like text in very large files; keep 0 then
		if v, convErr := strconv.Atoi(s); convErr == nil {
			rec.serial = v
		}
	}
	rec.name = field(line, 12, 16)
	rec.altLoc = field(line, 16, 17)
	rec.resName = strings.ToUpper(field(line, 17, 20))
	rec.chainID = field(line, 21, 22)
	if rec.resSeq, err = strconv.Atoi(field(line, 22, 26)); err != nil {
		return rec, fmt.Errorf("residue number: %w", err)
	}
	rec.iCode = field(line, 26, 27)
	for i, span := range [3][2]int{{30, 38}, {38, 46}, {46, 54}} {
		if rec.pos[i], err = strconv.ParseFloat(field(line, span[0], span[1]), 64); err != nil {
			return rec, fmt.Errorf("coordinate: %w", err)
		}
	}
	rec.occupancy = 1
	if s := field(line, 54, 60); s != "" {
		if v, convErr := strconv.ParseFloat(s, 64); convErr == nil {
			rec.occupancy = v
		}
	}
	rec.element = strings.ToUpper(field(line, 76, 78))
	if rec.element == "" {
		rec.element = elementFromName(rec.name)
	}
	return rec, nil
}

// elementFromName takes the first letter of the atom name, skipping the
// leading digit used for some hydrogens ("1HB").
func elementFromName(name string) string {
	for _, r := range name {
		if unicode.IsLetter(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return ""
}

// field returns the trimmed [start,end) column range, tolerating short lines.
func field(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[start:end])
}
