// Package substance defines the chemical entities tracked inside vessels.
//
// A Substance is a comparable value so it can key content maps directly. Its
// Kind decides which storage unit its amounts are kept in: enzymes are
// tracked by activity (U), everything else by moles.
package substance

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// ErrInvalid is returned when a substance is constructed with unusable
// physical properties.
var ErrInvalid = errors.New("invalid substance")

// Kind is the category of a substance.
type Kind int

const (
	Liquid Kind = iota
	Solid
	Enzyme
)

// String returns the singular name of the kind.
func (k Kind) String() string {
	switch k {
	case Liquid:
		return "liquid"
	case Solid:
		return "solid"
	case Enzyme:
		return "enzyme"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Plural returns the label used when a whole category is addressed, e.g.
// "Remove all liquids from 'plate'".
func (k Kind) Plural() string {
	return k.String() + "s"
}

// Matches reports whether s belongs to this kind.
func (k Kind) Matches(s Substance) bool {
	return s.Kind == k
}

// ParseKind converts "liquid", "solid" or "enzyme" (any case, singular or
// plural) into a Kind.
func ParseKind(raw string) (Kind, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "s") {
	case "liquid":
		return Liquid, nil
	case "solid":
		return Solid, nil
	case "enzyme":
		return Enzyme, nil
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalid, raw)
}

// Substance is an identifiable chemical entity.
type Substance struct {
	Name string
	Kind Kind
	// MolarMass in g/mol. Zero for enzymes.
	MolarMass float64
	// Density in g/mL. Zero for enzymes.
	Density float64
}

// NewLiquid creates a liquid substance.
func NewLiquid(name string, molarMass, density float64) (Substance, error) {
	return newMolecular(name, Liquid, molarMass, density)
}

// NewSolid creates a solid substance.
func NewSolid(name string, molarMass, density float64) (Substance, error) {
	return newMolecular(name, Solid, molarMass, density)
}

// NewEnzyme creates an enzyme, tracked by activity units only.
func NewEnzyme(name string) (Substance, error) {
	if strings.TrimSpace(name) == "" {
		return Substance{}, fmt.Errorf("%w: name must not be empty", ErrInvalid)
	}
	return Substance{Name: name, Kind: Enzyme}, nil
}

func newMolecular(name string, kind Kind, molarMass, density float64) (Substance, error) {
	if strings.TrimSpace(name) == "" {
		return Substance{}, fmt.Errorf("%w: name must not be empty", ErrInvalid)
	}
	if !(molarMass > 0) || math.IsInf(molarMass, 0) {
		return Substance{}, fmt.Errorf("%w: %s: molar mass must be positive, got %v", ErrInvalid, name, molarMass)
	}
	if !(density > 0) || math.IsInf(density, 0) {
		return Substance{}, fmt.Errorf("%w: %s: density must be positive, got %v", ErrInvalid, name, density)
	}
	return Substance{Name: name, Kind: kind, MolarMass: molarMass, Density: density}, nil
}

// IsEnzyme reports whether the substance is tracked by activity.
func (s Substance) IsEnzyme() bool { return s.Kind == Enzyme }

// IsLiquid reports whether the substance is a liquid.
func (s Substance) IsLiquid() bool { return s.Kind == Liquid }

// IsSolid reports whether the substance is a solid.
func (s Substance) IsSolid() bool { return s.Kind == Solid }

// Matches reports whether other is this exact substance.
func (s Substance) Matches(other Substance) bool { return s == other }

// String returns the substance name.
func (s Substance) String() string { return s.Name }

// Matcher selects substances, e.g. for removal. Both Substance and Kind
// implement it.
type Matcher interface {
	Matches(Substance) bool
}

// Sort orders substances by name, then kind, so that reports iterate content
// maps deterministically.
func Sort(list []Substance) {
	slices.SortFunc(list, func(a, b Substance) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
}
