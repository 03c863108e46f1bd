package unit

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrSyntax is returned for malformed quantity or unit strings.
	ErrSyntax = errors.New("invalid quantity")
	// ErrDimension is returned when a quantity cannot be expressed in the
	// requested dimension.
	ErrDimension = errors.New("incompatible dimension")
)

// Dimension is the physical dimension of a unit.
type Dimension int

const (
	Volume Dimension = iota + 1
	Mass
	Moles
	Activity
	Molarity
)

// String returns a human name of the dimension.
func (d Dimension) String() string {
	switch d {
	case Volume:
		return "volume"
	case Mass:
		return "mass"
	case Moles:
		return "moles"
	case Activity:
		return "activity"
	case Molarity:
		return "molarity"
	default:
		return fmt.Sprintf("dimension(%d)", int(d))
	}
}

// Base returns the unprefixed symbol of the dimension.
func (d Dimension) Base() string {
	switch d {
	case Volume:
		return "L"
	case Mass:
		return "g"
	case Moles:
		return "mol"
	case Activity:
		return "U"
	case Molarity:
		return "M"
	default:
		return ""
	}
}

// prefixOrder lists the prefixes from largest to smallest.
var prefixOrder = []string{"k", "", "m", "u", "n", "p"}

var prefixes = map[string]float64{
	"k": 1e3,
	"":  1,
	"m": 1e-3,
	"u": 1e-6,
	"µ": 1e-6,
	"n": 1e-9,
	"p": 1e-12,
}

// baseOrder lists the base symbols; "mol" goes first as the only
// multi-letter one.
var baseOrder = []struct {
	symbol string
	dim    Dimension
}{
	{"mol", Moles},
	{"L", Volume},
	{"g", Mass},
	{"U", Activity},
	{"M", Molarity},
}

// Unit is a parsed unit symbol.
type Unit struct {
	Symbol     string
	Prefix     string
	Multiplier float64
	Dimension  Dimension
}

// ParseUnit parses a unit symbol such as "mL" or "umol".
func ParseUnit(symbol string) (Unit, error) {
	symbol = strings.TrimSpace(symbol)
	for _, b := range baseOrder {
		if !strings.HasSuffix(symbol, b.symbol) {
			continue
		}
		prefix := strings.TrimSuffix(symbol, b.symbol)
		mult, ok := prefixes[prefix]
		if !ok {
			continue
		}
		if prefix == "µ" {
			prefix = "u"
		}
		return Unit{Symbol: prefix + b.symbol, Prefix: prefix, Multiplier: mult, Dimension: b.dim}, nil
	}
	return Unit{}, fmt.Errorf("%w: unknown unit %q", ErrSyntax, symbol)
}

// MustParseUnit is ParseUnit for compile-time constants. It panics on error.
func MustParseUnit(symbol string) Unit {
	u, err := ParseUnit(symbol)
	if err != nil {
		panic(err)
	}
	return u
}

// PrefixMultiplier returns the factor of an SI prefix.
func PrefixMultiplier(prefix string) (float64, error) {
	mult, ok := prefixes[prefix]
	if !ok {
		return 0, fmt.Errorf("%w: unknown prefix %q", ErrSyntax, prefix)
	}
	return mult, nil
}

// Quantity is a magnitude with a unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

var quantityRegex = regexp.MustCompile(`^([+-]?(?:inf|Inf|\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?)\s*(\S+)$`)

// Parse parses a quantity string such as "5 mL" or "inf L".
func Parse(raw string) (Quantity, error) {
	matches := quantityRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if matches == nil {
		return Quantity{}, fmt.Errorf("%w: %q is not of the form '<number> <unit>'", ErrSyntax, raw)
	}
	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("%w: %q: %v", ErrSyntax, raw, err)
	}
	u, err := ParseUnit(matches[2])
	if err != nil {
		return Quantity{}, fmt.Errorf("%q: %w", raw, err)
	}
	return Quantity{Value: value, Unit: u}, nil
}

// Base returns the magnitude in the unprefixed unit.
func (q Quantity) Base() float64 {
	return q.Value * q.Unit.Multiplier
}

// Dimension is shorthand for q.Unit.Dimension.
func (q Quantity) Dimension() Dimension {
	return q.Unit.Dimension
}

// String renders the quantity in the input grammar.
func (q Quantity) String() string {
	return FormatNumber(q.Value) + " " + q.Unit.Symbol
}

// Concentration is an amount of solute per amount of solution.
type Concentration struct {
	Numerator   Quantity
	Denominator Quantity
}

// ParseConcentration parses "1 M", "10 mM", "0.1 umol/10 uL" or "5 U/mL".
func ParseConcentration(raw string) (Concentration, error) {
	left, right, isRatio := strings.Cut(raw, "/")
	num, err := Parse(left)
	if err != nil {
		return Concentration{}, err
	}

	if !isRatio {
		if num.Dimension() != Molarity {
			return Concentration{}, fmt.Errorf("%w: %q is not a concentration", ErrDimension, raw)
		}
		return Concentration{
			Numerator:   Quantity{Value: num.Value, Unit: Unit{Symbol: num.Unit.Prefix + "mol", Prefix: num.Unit.Prefix, Multiplier: num.Unit.Multiplier, Dimension: Moles}},
			Denominator: Quantity{Value: 1, Unit: MustParseUnit("L")},
		}, nil
	}

	var den Quantity
	right = strings.TrimSpace(right)
	if d, err := Parse(right); err == nil {
		den = d
	} else {
		u, uerr := ParseUnit(right)
		if uerr != nil {
			return Concentration{}, fmt.Errorf("%q: %w", raw, uerr)
		}
		den = Quantity{Value: 1, Unit: u}
	}

	switch num.Dimension() {
	case Moles, Mass, Activity:
	default:
		return Concentration{}, fmt.Errorf("%w: numerator of %q must be moles, mass or activity", ErrDimension, raw)
	}
	switch den.Dimension() {
	case Volume, Mass, Moles:
	default:
		return Concentration{}, fmt.Errorf("%w: denominator of %q must be volume, mass or moles", ErrDimension, raw)
	}
	if !(den.Value > 0) {
		return Concentration{}, fmt.Errorf("%w: denominator of %q must be positive", ErrSyntax, raw)
	}
	return Concentration{Numerator: num, Denominator: den}, nil
}

// HumanReadable rescales value, expressed in the unprefixed base unit, to
// the prefix that puts its magnitude in [1, 1000).
func HumanReadable(value float64, base string) (float64, string) {
	if value == 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return value, base
	}
	abs := math.Abs(value)
	for _, p := range prefixOrder {
		if abs/prefixes[p] >= 1 {
			return value / prefixes[p], p + base
		}
	}
	last := prefixOrder[len(prefixOrder)-1]
	return value / prefixes[last], last + base
}

// Round rounds v to the given number of decimals.
func Round(v float64, precision int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	scale := math.Pow(10, float64(precision))
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0 // no negative zero
	}
	return r
}

// FormatNumber renders v with the fewest digits that round-trip.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
