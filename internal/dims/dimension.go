package dims

import (
	"fmt"
	"sort"
	"strings"
)

// Base identifies an atomic dimension kind.
type Base int

const (
	BaseCurrency Base = iota
	BaseDuration
	BaseCount
	BaseCapacity
)

func (b Base) String() string {
	switch b {
	case BaseCurrency:
		return "Currency"
	case BaseDuration:
		return "Duration"
	case BaseCount:
		return "Count"
	case BaseCapacity:
		return "Capacity"
	default:
		return fmt.Sprintf("Base(%d)", int(b))
	}
}

// Atom is a single tagged dimension raised to an integer exponent.
//
// Currency, Count and Capacity atoms are nominal: the Tag participates in
// equality (Currency<USD> != Currency<EUR>). Duration carries no tag.
type Atom struct {
	Base Base   `json:"base"`
	Tag  string `json:"tag,omitempty"`
	Exp  int    `json:"exp"`
}

// Dimension is a product of atoms. The zero value is dimensionless.
//
// INVARIANTS:
//   - atoms are sorted by (Base, Tag) and have non-zero exponents
//   - no atom exponent exceeds 1 in magnitude (Currency^2 is unrepresentable
//     in this algebra and is rejected at composition time)
//
// Dimensions are immutable; Mul and Div return new values.
type Dimension struct {
	atoms []Atom
}

// Dimensionless is the multiplicative identity (the Fraction dimension).
func Dimensionless() Dimension { return Dimension{} }

// Currency returns the dimension of money in the given currency.
func Currency(code string) Dimension {
	return Dimension{atoms: []Atom{{Base: BaseCurrency, Tag: code, Exp: 1}}}
}

// Duration returns the time dimension.
func Duration() Dimension {
	return Dimension{atoms: []Atom{{Base: BaseDuration, Exp: 1}}}
}

// Count returns the dimension of a countable entity type.
func Count(entity string) Dimension {
	return Dimension{atoms: []Atom{{Base: BaseCount, Tag: entity, Exp: 1}}}
}

// Capacity returns the dimension of a resource capacity.
func Capacity(resource string) Dimension {
	return Dimension{atoms: []Atom{{Base: BaseCapacity, Tag: resource, Exp: 1}}}
}

// Rate is shorthand for 1/Duration.
func Rate() Dimension {
	return Dimension{atoms: []Atom{{Base: BaseDuration, Exp: -1}}}
}

// FromAtoms builds a dimension from arbitrary atoms, merging duplicates.
// Returns an error if the result is unrepresentable.
func FromAtoms(atoms []Atom) (Dimension, error) {
	d := Dimension{}
	for _, a := range atoms {
		m, err := d.mulAtom(a)
		if err != nil {
			return Dimension{}, err
		}
		d = m
	}
	return d, nil
}

// IsDimensionless reports whether d is the identity dimension.
func (d Dimension) IsDimensionless() bool { return len(d.atoms) == 0 }

// Atoms returns a copy of the atom list.
func (d Dimension) Atoms() []Atom {
	out := make([]Atom, len(d.atoms))
	copy(out, d.atoms)
	return out
}

// Equal reports structural equality. Tags are compared nominally.
func (d Dimension) Equal(o Dimension) bool {
	if len(d.atoms) != len(o.atoms) {
		return false
	}
	for i, a := range d.atoms {
		if a != o.atoms[i] {
			return false
		}
	}
	return true
}

// Mul composes two dimensions multiplicatively.
// Returns an error if any resulting atom has |exponent| > 1.
func (d Dimension) Mul(o Dimension) (Dimension, error) {
	out := d
	for _, a := range o.atoms {
		m, err := out.mulAtom(a)
		if err != nil {
			return Dimension{}, err
		}
		out = m
	}
	return out, nil
}

// Div composes two dimensions divisively.
func (d Dimension) Div(o Dimension) (Dimension, error) {
	return d.Mul(o.Invert())
}

// Invert negates every exponent. Inversion alone cannot produce an
// unrepresentable dimension, so it never fails.
func (d Dimension) Invert() Dimension {
	atoms := make([]Atom, len(d.atoms))
	for i, a := range d.atoms {
		a.Exp = -a.Exp
		atoms[i] = a
	}
	return Dimension{atoms: atoms}
}

func (d Dimension) mulAtom(a Atom) (Dimension, error) {
	if a.Exp == 0 {
		return d, nil
	}
	atoms := make([]Atom, 0, len(d.atoms)+1)
	merged := false
	for _, cur := range d.atoms {
		if cur.Base == a.Base && cur.Tag == a.Tag {
			exp := cur.Exp + a.Exp
			if exp > 1 || exp < -1 {
				return Dimension{}, fmt.Errorf("unrepresentable dimension: %s^%d", atomName(cur), exp)
			}
			if exp != 0 {
				cur.Exp = exp
				atoms = append(atoms, cur)
			}
			merged = true
			continue
		}
		atoms = append(atoms, cur)
	}
	if !merged {
		if a.Exp > 1 || a.Exp < -1 {
			return Dimension{}, fmt.Errorf("unrepresentable dimension: %s^%d", atomName(a), a.Exp)
		}
		atoms = append(atoms, a)
	}
	sort.Slice(atoms, func(i, j int) bool {
		if atoms[i].Base != atoms[j].Base {
			return atoms[i].Base < atoms[j].Base
		}
		return atoms[i].Tag < atoms[j].Tag
	})
	return Dimension{atoms: atoms}, nil
}

func atomName(a Atom) string {
	if a.Tag == "" {
		return a.Base.String()
	}
	return fmt.Sprintf("%s<%s>", a.Base, a.Tag)
}

// String renders the dimension as numerator/denominator, e.g.
// "Currency<USD>/Count<Customer>". Dimensionless renders as "1".
func (d Dimension) String() string {
	if len(d.atoms) == 0 {
		return "1"
	}
	var num, den []string
	for _, a := range d.atoms {
		if a.Exp > 0 {
			num = append(num, atomName(a))
		} else {
			den = append(den, atomName(a))
		}
	}
	var sb strings.Builder
	if len(num) == 0 {
		sb.WriteString("1")
	} else {
		sb.WriteString(strings.Join(num, "*"))
	}
	if len(den) > 0 {
		sb.WriteString("/")
		sb.WriteString(strings.Join(den, "/"))
	}
	return sb.String()
}

// ParseDimension parses the String() rendering back into a Dimension.
// Used by the IR loader round-trip.
func ParseDimension(s string) (Dimension, error) {
	if s == "" || s == "1" {
		return Dimensionless(), nil
	}
	parts := strings.Split(s, "/")
	var atoms []Atom
	for i, part := range parts {
		if part == "1" && i == 0 {
			continue
		}
		for _, factor := range strings.Split(part, "*") {
			a, err := parseAtom(factor)
			if err != nil {
				return Dimension{}, err
			}
			if i > 0 {
				a.Exp = -a.Exp
			}
			atoms = append(atoms, a)
		}
	}
	return FromAtoms(atoms)
}

func parseAtom(s string) (Atom, error) {
	name := s
	tag := ""
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if !strings.HasSuffix(s, ">") {
			return Atom{}, fmt.Errorf("malformed dimension atom %q", s)
		}
		name = s[:i]
		tag = s[i+1 : len(s)-1]
	}
	switch name {
	case "Currency":
		return Atom{Base: BaseCurrency, Tag: tag, Exp: 1}, nil
	case "Duration":
		return Atom{Base: BaseDuration, Exp: 1}, nil
	case "Count":
		return Atom{Base: BaseCount, Tag: tag, Exp: 1}, nil
	case "Capacity":
		return Atom{Base: BaseCapacity, Tag: tag, Exp: 1}, nil
	default:
		return Atom{}, fmt.Errorf("unknown dimension atom %q", s)
	}
}
