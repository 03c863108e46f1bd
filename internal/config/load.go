package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the TOML layout. Only keys present in the file override
// the defaults.
type fileConfig struct {
	VolumeStorageUnit string         `toml:"volume_storage_unit"`
	MolesStorageUnit  string         `toml:"moles_storage_unit"`
	VolumeDisplayUnit string         `toml:"volume_display_unit"`
	MolesDisplayUnit  string         `toml:"moles_display_unit"`
	InternalPrecision int            `toml:"internal_precision"`
	DefaultColormap   string         `toml:"default_colormap"`
	Precisions        map[string]int `toml:"precisions"`
}

// Load reads a TOML file and applies it on top of Default. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load engine config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load engine config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("volume_storage_unit") {
		cfg.VolumeStorageUnit = strings.TrimSpace(raw.VolumeStorageUnit)
	}
	if meta.IsDefined("moles_storage_unit") {
		cfg.MolesStorageUnit = strings.TrimSpace(raw.MolesStorageUnit)
	}
	if meta.IsDefined("volume_display_unit") {
		cfg.VolumeDisplayUnit = strings.TrimSpace(raw.VolumeDisplayUnit)
	}
	if meta.IsDefined("moles_display_unit") {
		cfg.MolesDisplayUnit = strings.TrimSpace(raw.MolesDisplayUnit)
	}
	if meta.IsDefined("internal_precision") {
		cfg.InternalPrecision = raw.InternalPrecision
	}
	if meta.IsDefined("default_colormap") {
		cfg.DefaultColormap = strings.TrimSpace(raw.DefaultColormap)
	}
	// Individual precision entries merge into the defaults.
	for unit, p := range raw.Precisions {
		cfg.Precisions[unit] = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config %s: %w", path, err)
	}
	return cfg, nil
}
