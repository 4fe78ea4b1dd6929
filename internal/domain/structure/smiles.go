package structure

import (
	"fmt"
	"strings"

	"github.com/turtacn/ChemClassify/pkg/errors"
)

// The engine proper never parses text (spec boundary: structures arrive
// pre-parsed).  ParseSMILES is the in-repo collaborator that callers such as
// the CLI use to produce Mol values from the organic subset of SMILES line
// notation: organic-subset atoms, aromatic lowercase forms, bracket atoms
// with isotope/charge/H-count, branches, ring closures, and explicit bonds.
// Stereo bond marks (/ and \) are recorded; tetrahedral chirality marks are
// accepted and ignored.

// organicSubset are the elements writable without brackets.
var organicSubset = map[string]struct{}{
	"B": {}, "C": {}, "N": {}, "O": {}, "P": {}, "S": {},
	"F": {}, "Cl": {}, "Br": {}, "I": {},
}

// aromaticSymbols are the lowercase aromatic forms of the organic subset.
var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
}

// parsedAtom is the tokenizer's intermediate atom representation.  The
// pattern compiler needs to know whether an atom was a wildcard or written
// in brackets (bracket atoms constrain charge and H count during matching).
type parsedAtom struct {
	atom     Atom
	wildcard bool
	bracket  bool
}

// parsedBond is the tokenizer's intermediate bond representation.
type parsedBond struct {
	bond    Bond
	anyBond bool
}

// pendingBond carries the bond symbol seen before the next atom.
type pendingBond struct {
	explicit bool
	order    int
	aromatic bool
	anyBond  bool
	stereo   BondStereo
}

type smilesParser struct {
	input          string
	pos            int
	allowWildcards bool

	atoms []parsedAtom
	bonds []parsedBond

	prev    int // index of the previous atom, -1 at a fresh component
	stack   []int
	pending pendingBond
	closures map[int]struct {
		atom    int
		pending pendingBond
	}
}

func (p *smilesParser) fail(msg string) error {
	return errors.New(errors.ErrCodeStructureParseFailed, msg).
		WithDetail(fmt.Sprintf("input=%q pos=%d", p.input, p.pos))
}

func (p *smilesParser) addAtom(a parsedAtom) {
	idx := len(p.atoms)
	p.atoms = append(p.atoms, a)
	if p.prev >= 0 {
		p.bonds = append(p.bonds, p.makeBond(p.prev, idx))
	}
	p.pending = pendingBond{}
	p.prev = idx
}

// makeBond resolves the pending bond symbol between two atoms.  Without an
// explicit symbol, a bond between two aromatic atoms is aromatic, otherwise
// single.
func (p *smilesParser) makeBond(from, to int) parsedBond {
	pb := p.pending
	b := Bond{From: from, To: to, Order: 1, Stereo: pb.stereo}
	switch {
	case pb.anyBond:
		return parsedBond{bond: b, anyBond: true}
	case pb.explicit:
		b.Order = pb.order
		b.Aromatic = pb.aromatic
	case p.atoms[from].atom.Aromatic && p.atoms[to].atom.Aromatic:
		b.Aromatic = true
	}
	return parsedBond{bond: b}
}

func (p *smilesParser) parse() error {
	p.prev = -1
	p.closures = make(map[int]struct {
		atom    int
		pending pendingBond
	})

	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail("branch before any atom")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.fail("unmatched closing parenthesis")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '.':
			p.prev = -1
			p.pending = pendingBond{}
			p.pos++
		case c == '-':
			p.pending = pendingBond{explicit: true, order: 1}
			p.pos++
		case c == '=':
			p.pending = pendingBond{explicit: true, order: 2}
			p.pos++
		case c == '#':
			p.pending = pendingBond{explicit: true, order: 3}
			p.pos++
		case c == ':':
			p.pending = pendingBond{explicit: true, order: 1, aromatic: true}
			p.pos++
		case c == '/':
			p.pending = pendingBond{explicit: true, order: 1, stereo: StereoUp}
			p.pos++
		case c == '\\':
			p.pending = pendingBond{explicit: true, order: 1, stereo: StereoDown}
			p.pos++
		case c == '~':
			if !p.allowWildcards {
				return p.fail("any-bond '~' is only valid in patterns")
			}
			p.pending = pendingBond{anyBond: true}
			p.pos++
		case c == '*':
			if !p.allowWildcards {
				return p.fail("wildcard atom '*' is only valid in patterns")
			}
			p.addAtom(parsedAtom{atom: Atom{Element: "C", HCount: -1}, wildcard: true})
			p.pos++
		case c >= '0' && c <= '9':
			if err := p.ringClosure(int(c - '0')); err != nil {
				return err
			}
			p.pos++
		case c == '%':
			if p.pos+2 >= len(p.input) ||
				!isDigit(p.input[p.pos+1]) || !isDigit(p.input[p.pos+2]) {
				return p.fail("'%' must be followed by two digits")
			}
			n := int(p.input[p.pos+1]-'0')*10 + int(p.input[p.pos+2]-'0')
			if err := p.ringClosure(n); err != nil {
				return err
			}
			p.pos += 3
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}

	if len(p.stack) != 0 {
		return p.fail("unclosed branch")
	}
	if len(p.closures) != 0 {
		return p.fail("unclosed ring bond")
	}
	if len(p.atoms) == 0 {
		return p.fail("no atoms")
	}
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// ringClosure opens or closes numbered ring bond n.
func (p *smilesParser) ringClosure(n int) error {
	if p.prev < 0 {
		return p.fail("ring closure before any atom")
	}
	if open, ok := p.closures[n]; ok {
		delete(p.closures, n)
		if open.atom == p.prev {
			return p.fail("ring bond closes on its opening atom")
		}
		// Either side may carry the bond symbol; explicit wins over default.
		if !p.pending.explicit && !p.pending.anyBond {
			p.pending = open.pending
		}
		p.bonds = append(p.bonds, p.makeBond(open.atom, p.prev))
		p.pending = pendingBond{}
		return nil
	}
	p.closures[n] = struct {
		atom    int
		pending pendingBond
	}{p.prev, p.pending}
	p.pending = pendingBond{}
	return nil
}

// organicAtom consumes a bare organic-subset atom at the current position.
func (p *smilesParser) organicAtom() error {
	rest := p.input[p.pos:]

	// Two-character symbols first.
	for _, sym := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, sym) {
			p.addAtom(parsedAtom{atom: Atom{Element: sym, HCount: -1}})
			p.pos += 2
			return nil
		}
	}

	c := rest[0]
	if aromatic, ok := aromaticSymbols[string(c)]; ok {
		p.addAtom(parsedAtom{atom: Atom{Element: aromatic, Aromatic: true, HCount: -1}})
		p.pos++
		return nil
	}
	sym := string(c)
	if _, ok := organicSubset[sym]; ok {
		p.addAtom(parsedAtom{atom: Atom{Element: sym, HCount: -1}})
		p.pos++
		return nil
	}
	return p.fail(fmt.Sprintf("unexpected character %q", c))
}

// bracketAtom consumes a bracket atom: [isotope? symbol chiral? H-count?
// charge? class?].  Hydrogens of bracket atoms are always explicit; an
// unannotated bracket atom carries zero hydrogens, per SMILES semantics.
func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.input[p.pos:], ']')
	if end < 0 {
		return p.fail("unclosed bracket atom")
	}
	body := p.input[p.pos+1 : p.pos+end]
	advance := end + 1

	a := Atom{HCount: 0}
	wildcard := false
	i := 0

	for i < len(body) && isDigit(body[i]) {
		a.Isotope = a.Isotope*10 + int(body[i]-'0')
		i++
	}

	if i >= len(body) {
		return p.fail("bracket atom without element symbol")
	}
	switch {
	case body[i] == '*':
		if !p.allowWildcards {
			return p.fail("wildcard atom '*' is only valid in patterns")
		}
		wildcard = true
		a.Element = "C"
		i++
	case aromaticSymbols[string(body[i])] != "":
		a.Element = aromaticSymbols[string(body[i])]
		a.Aromatic = true
		i++
	case body[i] >= 'A' && body[i] <= 'Z':
		sym := string(body[i])
		i++
		if i < len(body) && body[i] >= 'a' && body[i] <= 'z' {
			two := sym + string(body[i])
			if _, ok := atomicMass[two]; ok {
				sym = two
				i++
			}
		}
		a.Element = sym
	default:
		return p.fail("bracket atom without element symbol")
	}

	// Tetrahedral chirality marks are accepted and dropped.
	for i < len(body) && body[i] == '@' {
		i++
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		if i < len(body) && isDigit(body[i]) {
			a.HCount = int(body[i] - '0')
			i++
		}
	}

	for i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		i++
		if i < len(body) && isDigit(body[i]) {
			a.Charge += sign * int(body[i]-'0')
			i++
		} else {
			a.Charge += sign
		}
	}

	// Atom-class suffix (":n") is irrelevant to classification.
	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && isDigit(body[i]) {
			i++
		}
	}

	if i != len(body) {
		return p.fail(fmt.Sprintf("trailing characters in bracket atom %q", body))
	}

	p.addAtom(parsedAtom{atom: a, wildcard: wildcard, bracket: true})
	p.pos += advance
	return nil
}

// ParseSMILES builds a Mol from an organic-subset SMILES string.  Parse
// failures are STRUCT_002 errors.
func ParseSMILES(smiles string) (*Mol, error) {
	smiles = strings.TrimSpace(smiles)
	if smiles == "" {
		return nil, errors.New(errors.ErrCodeStructureParseFailed, "empty SMILES string")
	}
	p := &smilesParser{input: smiles}
	if err := p.parse(); err != nil {
		return nil, err
	}

	atoms := make([]Atom, len(p.atoms))
	for i, pa := range p.atoms {
		atoms[i] = pa.atom
	}
	bonds := make([]Bond, len(p.bonds))
	for i, pb := range p.bonds {
		bonds[i] = pb.bond
	}
	m, err := NewMol(atoms, bonds)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureParseFailed, "SMILES produced an invalid molecular graph")
	}
	return m, nil
}
