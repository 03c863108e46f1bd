package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/labrecipe/internal/auditstore"
	"github.com/specialistvlad/labrecipe/internal/ctxlog"
	"github.com/specialistvlad/labrecipe/internal/protocol"
	"github.com/specialistvlad/labrecipe/internal/recipe"
)

// Run loads the protocol, bakes it and writes the report. The bake is
// recorded when an audit DSN is configured.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	model, err := protocol.Load(ctx, a.config.ProtocolPath)
	if err != nil {
		return err
	}
	a.logger.Debug("Protocol loaded.", "steps", model.StepCount())

	r, err := protocol.Build(ctx, model, a.engine, recipe.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("failed to build recipe: %w", err)
	}

	a.logger.Info("🧪 Baking recipe...", "steps", len(r.Steps()))
	if _, err := r.Bake(); err != nil {
		return fmt.Errorf("bake failed: %w", err)
	}

	if err := a.report(r); err != nil {
		return err
	}

	if a.config.AuditDSN != "" {
		if err := a.record(ctx, r); err != nil {
			return err
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) record(ctx context.Context, r *recipe.Recipe) error {
	store, err := auditstore.Open(ctx, a.config.AuditDSN)
	if err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("Closing audit store failed.", "error", err)
		}
	}()
	if _, err := store.Record(ctx, a.config.ProtocolPath, r); err != nil {
		return fmt.Errorf("failed to record bake: %w", err)
	}
	return nil
}
