package config

import (
	"errors"
	"fmt"
	"maps"
)

// DefaultPrecisionKey is the Precisions entry used for units without their
// own rounding rule.
const DefaultPrecisionKey = "default"

// Config holds the unit and rounding settings of the engine.
type Config struct {
	VolumeStorageUnit string
	MolesStorageUnit  string
	VolumeDisplayUnit string
	MolesDisplayUnit  string

	// Precisions maps a unit symbol ("mL", "umol") to the number of decimals
	// used when rounding values displayed in it.
	Precisions map[string]int

	// InternalPrecision is the number of decimals used when comparing
	// intermediate amounts, e.g. when grouping wells by added volume.
	InternalPrecision int

	DefaultColormap string
}

var (
	volumeUnits = []string{"L", "mL", "uL", "nL"}
	molesUnits  = []string{"mol", "mmol", "umol", "nmol"}
)

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		VolumeStorageUnit: "uL",
		MolesStorageUnit:  "umol",
		VolumeDisplayUnit: "uL",
		MolesDisplayUnit:  "umol",
		Precisions: map[string]int{
			DefaultPrecisionKey: 3,
			"L":                 3,
			"mL":                3,
			"uL":                1,
			"nL":                1,
			"mol":               3,
			"mmol":              3,
			"umol":              1,
			"nmol":              1,
			"g":                 3,
			"mg":                3,
			"ug":                1,
			"U":                 3,
		},
		InternalPrecision: 10,
		DefaultColormap:   "Blues",
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Precisions = maps.Clone(c.Precisions)
	return &out
}

// Precision returns the rounding precision for unit, falling back to the
// "default" entry.
func (c *Config) Precision(unit string) int {
	if p, ok := c.Precisions[unit]; ok {
		return p
	}
	return c.Precisions[DefaultPrecisionKey]
}

// Validate reports whether the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if !contains(volumeUnits, c.VolumeStorageUnit) {
		errs = append(errs, fmt.Errorf("volume_storage_unit %q must be one of %v", c.VolumeStorageUnit, volumeUnits))
	}
	if !contains(molesUnits, c.MolesStorageUnit) {
		errs = append(errs, fmt.Errorf("moles_storage_unit %q must be one of %v", c.MolesStorageUnit, molesUnits))
	}
	if !contains(volumeUnits, c.VolumeDisplayUnit) {
		errs = append(errs, fmt.Errorf("volume_display_unit %q must be one of %v", c.VolumeDisplayUnit, volumeUnits))
	}
	if !contains(molesUnits, c.MolesDisplayUnit) {
		errs = append(errs, fmt.Errorf("moles_display_unit %q must be one of %v", c.MolesDisplayUnit, molesUnits))
	}
	if _, ok := c.Precisions[DefaultPrecisionKey]; !ok {
		errs = append(errs, errors.New("precisions must define a \"default\" entry"))
	}
	for unit, p := range c.Precisions {
		if p < 0 {
			errs = append(errs, fmt.Errorf("precision for %q must not be negative", unit))
		}
	}
	if c.InternalPrecision < 0 {
		errs = append(errs, errors.New("internal_precision must not be negative"))
	}
	if c.DefaultColormap == "" {
		errs = append(errs, errors.New("default_colormap must not be empty"))
	}
	return errors.Join(errs...)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
