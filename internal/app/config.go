package app

import (
	"errors"

	"github.com/specialistvlad/labrecipe/internal/recipe"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProtocolPath string // .hcl file or directory
	EngineConfig string // optional TOML file

	LogFormat string
	LogLevel  string

	// AuditDSN enables recording the bake when set.
	AuditDSN string

	// Stage scopes the reported instructions and substance usage.
	Stage string
	// Visualize names a plate to print as a table. VisualizeMode is
	// "final" or "delta".
	Visualize     string
	VisualizeMode string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProtocolPath == "" {
		return nil, errors.New("ProtocolPath is a required configuration field and cannot be empty")
	}
	if cfg.Stage == "" {
		cfg.Stage = recipe.AllStage
	}
	if _, err := recipe.ParseVisualizeMode(cfg.VisualizeMode); err != nil {
		return nil, err
	}
	return &cfg, nil
}
