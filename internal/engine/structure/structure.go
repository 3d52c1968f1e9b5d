package structure

import (
	"fmt"
	"strconv"

	"molgraph/internal/core/errors"
)

// Atom is one heavy (or hydrogen) atom of a residue.
type Atom struct {
	Name      string
	Element   string
	Position  Vec3
	Occupancy float64
	Serial    int

	residue *Residue
	index   int
}

func (a *Atom) Residue() *Residue { return a.residue }

// Index is the atom's position in Structure.Atoms order.
func (a *Atom) Index() int { return a.index }

// Key identifies the atom within its structure, e.g. "A:25:ALA:CA".
func (a *Atom) Key() string {
	return fmt.Sprintf("%s:%s:%s", a.residue.Key(), a.residue.AminoAcid.ThreeLetter, a.Name)
}

// ProfileRow is one residue's conservation profile: one probability per amino
// acid (indexed by AminoAcid.Index) and the information content of the column.
type ProfileRow struct {
	Conservation       [NumAminoAcids]float64
	InformationContent float64
}

// Value returns the conservation of aa at this position.
func (p *ProfileRow) Value(aa *AminoAcid) float64 { return p.Conservation[aa.Index] }

type Residue struct {
	Number        int
	InsertionCode string
	AminoAcid     *AminoAcid

	atoms   []*Atom
	byName  map[string]*Atom
	chain   *Chain
	profile *ProfileRow
	index   int
}

func (r *Residue) Chain() *Chain { return r.chain }

func (r *Residue) Atoms() []*Atom { return r.atoms }

// Index is the residue's position in Structure.Residues order.
func (r *Residue) Index() int { return r.index }

// Atom looks up an atom by name.
func (r *Residue) Atom(name string) (*Atom, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Label renders the residue number and insertion code, e.g. "25" or "25A".
func (r *Residue) Label() string {
	return strconv.Itoa(r.Number) + r.InsertionCode
}

// Key identifies the residue within its structure, e.g. "A:25".
func (r *Residue) Key() string {
	return r.chain.ID + ":" + r.Label()
}

// Centroid is the mean position of the residue's atoms.
func (r *Residue) Centroid() Vec3 {
	var c Vec3
	if len(r.atoms) == 0 {
		return c
	}
	for _, a := range r.atoms {
		c = c.Add(a.Position)
	}
	return c.Scale(1 / float64(len(r.atoms)))
}

func (r *Residue) Profile() *ProfileRow { return r.profile }

func (r *Residue) SetProfile(p *ProfileRow) { r.profile = p }

// AddAtom appends an atom. Atom names are unique within a residue.
func (r *Residue) AddAtom(name, element string, pos Vec3) (*Atom, error) {
	if _, exists := r.byName[name]; exists {
		return nil, errors.Newf(errors.CodeStructure, "duplicate atom %s in residue %s", name, r.Key())
	}
	if !pos.IsFinite() {
		return nil, errors.Newf(errors.CodeStructure, "non-finite coordinate for atom %s in residue %s", name, r.Key())
	}
	s := r.chain.structure
	a := &Atom{Name: name, Element: element, Position: pos, Occupancy: 1, residue: r, index: len(s.atoms)}
	r.atoms = append(r.atoms, a)
	r.byName[name] = a
	s.atoms = append(s.atoms, a)
	return a, nil
}

type residueKey struct {
	number int
	icode  string
}

type Chain struct {
	ID string

	residues  []*Residue
	byKey     map[residueKey]*Residue
	structure *Structure
}

func (c *Chain) Structure() *Structure { return c.structure }

// Residues are returned in sequence (insertion) order.
func (c *Chain) Residues() []*Residue { return c.residues }

func (c *Chain) Residue(number int, insertionCode string) (*Residue, bool) {
	r, ok := c.byKey[residueKey{number, insertionCode}]
	return r, ok
}

// AddResidue appends a residue. Numbering is unique within a chain.
func (c *Chain) AddResidue(number int, insertionCode string, aa *AminoAcid) (*Residue, error) {
	if aa == nil {
		return nil, errors.Newf(errors.CodeStructure, "residue %s:%d has no amino acid", c.ID, number)
	}
	k := residueKey{number, insertionCode}
	if _, exists := c.byKey[k]; exists {
		return nil, errors.Newf(errors.CodeStructure, "duplicate residue %s:%d%s", c.ID, number, insertionCode)
	}
	r := &Residue{
		Number:        number,
		InsertionCode: insertionCode,
		AminoAcid:     aa,
		byName:        make(map[string]*Atom),
		chain:         c,
		index:         len(c.structure.residues),
	}
	c.residues = append(c.residues, r)
	c.byKey[k] = r
	c.structure.residues = append(c.structure.residues, r)
	return r, nil
}

// Structure is a parsed macromolecular model.
type Structure struct {
	ID   string
	Path string

	chains   []*Chain
	byID     map[string]*Chain
	residues []*Residue
	atoms    []*Atom
}

func New(id string) *Structure {
	return &Structure{ID: id, byID: make(map[string]*Chain)}
}

// Chains are returned in the order they were added.
func (s *Structure) Chains() []*Chain { return s.chains }

func (s *Structure) Chain(id string) (*Chain, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// AddChain returns the chain with id, creating it when absent.
func (s *Structure) AddChain(id string) *Chain {
	if c, ok := s.byID[id]; ok {
		return c
	}
	c := &Chain{ID: id, byKey: make(map[residueKey]*Residue), structure: s}
	s.chains = append(s.chains, c)
	s.byID[id] = c
	return c
}

// Residues returns every residue across chains in insertion order.
func (s *Structure) Residues() []*Residue { return s.residues }

// Atoms returns every atom across chains in insertion order.
func (s *Structure) Atoms() []*Atom { return s.atoms }

// ResetProfiles clears conservation rows from all residues.
func (s *Structure) ResetProfiles() {
	for _, r := range s.residues {
		r.profile = nil
	}
}
