package unit

import (
	"fmt"
	"math"

	"github.com/specialistvlad/labrecipe/internal/config"
	"github.com/specialistvlad/labrecipe/internal/substance"
)

// ActivityUnit is the storage unit of enzyme content.
const ActivityUnit = "U"

// Converter converts between quantity strings and storage amounts using the
// storage units of a config.Config.
type Converter struct {
	cfg           *config.Config
	volumeStorage Unit
	molesStorage  Unit
}

// NewConverter validates cfg and returns a Converter bound to it.
func NewConverter(cfg *config.Config) (*Converter, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	vol, err := ParseUnit(cfg.VolumeStorageUnit)
	if err != nil {
		return nil, err
	}
	mol, err := ParseUnit(cfg.MolesStorageUnit)
	if err != nil {
		return nil, err
	}
	return &Converter{cfg: cfg, volumeStorage: vol, molesStorage: mol}, nil
}

// Config returns the configuration the converter was built from.
func (c *Converter) Config() *config.Config {
	return c.cfg
}

// StorageUnit returns the unit a substance's amounts are stored in.
func (c *Converter) StorageUnit(s substance.Substance) string {
	if s.IsEnzyme() {
		return ActivityUnit
	}
	return c.molesStorage.Symbol
}

// VolumeStorageUnit returns the unit volumes (e.g. capacities) are stored in.
func (c *Converter) VolumeStorageUnit() string {
	return c.volumeStorage.Symbol
}

// PerStorage returns how much of dimension d, in the unprefixed base unit,
// one storage unit of s amounts to. Enzymes have no volume, mass or moles;
// other substances have no activity. In both cases the result is zero.
func (c *Converter) PerStorage(s substance.Substance, d Dimension) float64 {
	if s.IsEnzyme() {
		if d == Activity {
			return 1
		}
		return 0
	}
	moles := c.molesStorage.Multiplier
	switch d {
	case Moles:
		return moles
	case Mass:
		return moles * s.MolarMass
	case Volume:
		// g / (g/mL) = mL, then to L.
		return moles * s.MolarMass / s.Density / 1000
	default:
		return 0
	}
}

// ToStorage converts a quantity of s into its storage amount.
func (c *Converter) ToStorage(s substance.Substance, q Quantity) (float64, error) {
	per := c.PerStorage(s, q.Dimension())
	if per == 0 {
		return 0, fmt.Errorf("%w: cannot express %s of %s as %s", ErrDimension, q, s.Name, c.StorageUnit(s))
	}
	return q.Base() / per, nil
}

// ParseToStorage parses raw and converts it into a storage amount of s.
func (c *Converter) ParseToStorage(s substance.Substance, raw string) (float64, error) {
	q, err := Parse(raw)
	if err != nil {
		return 0, err
	}
	return c.ToStorage(s, q)
}

// FromStorage converts a storage amount of s into unit. Dimensions that do
// not apply to s (volume of an enzyme) convert to zero.
func (c *Converter) FromStorage(s substance.Substance, amount float64, unit string) (float64, error) {
	u, err := ParseUnit(unit)
	if err != nil {
		return 0, err
	}
	if u.Dimension == Molarity {
		return 0, fmt.Errorf("%w: cannot express an amount as %s", ErrDimension, unit)
	}
	return amount * c.PerStorage(s, u.Dimension) / u.Multiplier, nil
}

// Convert converts a quantity string of s into unit.
func (c *Converter) Convert(s substance.Substance, raw string, unit string) (float64, error) {
	amount, err := c.ParseToStorage(s, raw)
	if err != nil {
		return 0, err
	}
	return c.FromStorage(s, amount, unit)
}

// Measure returns the amount of dimension d, in the unprefixed base unit,
// that a storage amount of s represents.
func (c *Converter) Measure(s substance.Substance, amount float64, d Dimension) float64 {
	return amount * c.PerStorage(s, d)
}

// VolumeOf returns the volume, in the volume storage unit, occupied by a
// storage amount of s.
func (c *Converter) VolumeOf(s substance.Substance, amount float64) float64 {
	return c.Measure(s, amount, Volume) / c.volumeStorage.Multiplier
}

// StorageVolume parses a volume string (e.g. a capacity) into the volume
// storage unit. "inf L" yields +Inf.
func (c *Converter) StorageVolume(raw string) (float64, error) {
	q, err := Parse(raw)
	if err != nil {
		return 0, err
	}
	if q.Dimension() != Volume {
		return 0, fmt.Errorf("%w: %q is not a volume", ErrDimension, raw)
	}
	if q.Value < 0 {
		return 0, fmt.Errorf("%w: %q must not be negative", ErrSyntax, raw)
	}
	return q.Base() / c.volumeStorage.Multiplier, nil
}

// FormatStorageVolume renders a storage volume as a quantity string that
// StorageVolume parses back.
func (c *Converter) FormatStorageVolume(v float64) string {
	if math.IsInf(v, 1) {
		return "inf " + c.volumeStorage.Symbol
	}
	return FormatNumber(v) + " " + c.volumeStorage.Symbol
}

// ConcentrationRatio computes the ratio of solute storage amount to solvent
// storage amount that realizes concentration, assuming a two-component
// solution. It also returns the solute (numerator) and solvent (denominator)
// storage amounts for the amount of solution named by the concentration's
// denominator. A ratio <= 0 means the concentration cannot be produced, e.g.
// because the solute alone exceeds the requested volume.
func (c *Converter) ConcentrationRatio(solute substance.Substance, concentration string, solvent substance.Substance) (ratio, numerator, denominator float64, err error) {
	conc, err := ParseConcentration(concentration)
	if err != nil {
		return 0, 0, 0, err
	}
	if solvent.IsEnzyme() {
		return 0, 0, 0, fmt.Errorf("%w: solvent %s must not be an enzyme", ErrDimension, solvent.Name)
	}

	numerator, err = c.ToStorage(solute, conc.Numerator)
	if err != nil {
		return 0, 0, 0, err
	}

	d := conc.Denominator.Dimension()
	remaining := conc.Denominator.Base() - c.Measure(solute, numerator, d)
	if remaining <= 0 || numerator <= 0 {
		return -1, numerator, 0, nil
	}
	denominator = remaining / c.PerStorage(solvent, d)
	return numerator / denominator, numerator, denominator, nil
}
