package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/labrecipe/internal/config"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	engine *config.Config
}

// NewApp is the constructor for the main application. Reports go to outW
// and logs to logW. The engine configuration file, when given, is loaded
// here so that a bad file fails before any protocol is read.
func NewApp(outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	engine, err := config.Load(cfg.EngineConfig)
	if err != nil {
		return nil, err
	}
	logger.Debug("Engine configuration loaded.",
		"path", cfg.EngineConfig,
		"volume_storage_unit", engine.VolumeStorageUnit,
		"moles_storage_unit", engine.MolesStorageUnit)

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		engine: engine,
	}, nil
}

// Engine returns the engine configuration in use.
func (a *App) Engine() *config.Config {
	return a.engine
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.outW, format, args...)
}
