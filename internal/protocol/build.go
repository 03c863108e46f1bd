package protocol

import (
	"context"
	"fmt"

	"github.com/specialistvlad/labrecipe/internal/config"
	"github.com/specialistvlad/labrecipe/internal/ctxlog"
	"github.com/specialistvlad/labrecipe/internal/recipe"
	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/vessel"
	"github.com/specialistvlad/labrecipe/internal/wellid"
)

// builder replays a Model through the recipe declaration API.
type builder struct {
	r          *recipe.Recipe
	substances map[string]substance.Substance
	// vessels holds the handle returned for every declared or created
	// vessel name.
	vessels map[string]vessel.Vessel
}

// Build creates a recipe from m. Every declaration error is returned
// wrapped with the source location of the offending block, so the recipe
// error taxonomy is preserved for errors.Is.
func Build(ctx context.Context, m *Model, cfg *config.Config, opts ...recipe.Option) (*recipe.Recipe, error) {
	logger := ctxlog.FromContext(ctx)
	r, err := recipe.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	b := &builder{
		r:          r,
		substances: make(map[string]substance.Substance, len(m.Substances)),
		vessels:    make(map[string]vessel.Vessel, len(m.Vessels)),
	}

	for _, def := range m.Substances {
		s, err := newSubstance(def)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", def.Source, recipe.ErrArgument, err)
		}
		b.substances[def.Name] = s
	}

	declared := make([]vessel.Vessel, 0, len(m.Vessels))
	for _, def := range m.Vessels {
		v, err := b.newVessel(def)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", def.Source, recipe.ErrArgument, err)
		}
		logger.Debug("Declaring vessel.", "vessel", def.Name, "kind", def.Kind)
		b.vessels[def.Name] = v
		declared = append(declared, v)
	}
	if len(declared) > 0 {
		if err := r.Uses(declared...); err != nil {
			return nil, err
		}
	}

	for _, block := range m.Blocks {
		if block.Stage != "" {
			if err := r.StartStage(block.Stage); err != nil {
				return nil, fmt.Errorf("%s: %w", block.Source, err)
			}
		}
		for _, step := range block.Steps {
			if err := b.apply(step); err != nil {
				return nil, fmt.Errorf("%s: %s step: %w", step.Source, step.Kind, err)
			}
		}
		if block.Stage != "" {
			if err := r.EndStage(block.Stage); err != nil {
				return nil, fmt.Errorf("%s: %w", block.Source, err)
			}
		}
	}
	logger.Debug("Recipe built from protocol.", "steps", len(r.Steps()), "stages", len(r.Stages())-1)
	return r, nil
}

func newSubstance(def SubstanceDef) (substance.Substance, error) {
	kind, err := substance.ParseKind(def.Kind)
	if err != nil {
		return substance.Substance{}, err
	}
	switch kind {
	case substance.Liquid:
		return substance.NewLiquid(def.Name, def.MolarMass, def.Density)
	case substance.Solid:
		return substance.NewSolid(def.Name, def.MolarMass, def.Density)
	default:
		return substance.NewEnzyme(def.Name)
	}
}

func (b *builder) newVessel(def VesselDef) (vessel.Vessel, error) {
	ops := b.r.Ops()
	switch def.Kind {
	case ContainerVessel:
		entries, err := b.entries(def.Contents)
		if err != nil {
			return nil, err
		}
		maxVolume := def.MaxVolume
		if maxVolume == "" {
			maxVolume = recipe.DefaultMaxVolume
		}
		return ops.NewContainer(def.Name, maxVolume, entries...)
	case PlateVessel:
		if len(def.RowNames) > 0 || len(def.ColumnNames) > 0 {
			layout, err := wellid.NewLayout(def.RowNames, def.ColumnNames)
			if err != nil {
				return nil, err
			}
			return ops.NewPlateWithLayout(def.Name, def.MaxVolume, layout)
		}
		return ops.NewPlate(def.Name, def.MaxVolume, def.Rows, def.Columns)
	}
	return nil, fmt.Errorf("unknown vessel kind %q", def.Kind)
}

func (b *builder) entries(contents []Content) ([]vessel.Entry, error) {
	out := make([]vessel.Entry, 0, len(contents))
	for _, c := range contents {
		s, err := b.substance(c.Substance)
		if err != nil {
			return nil, err
		}
		out = append(out, vessel.Entry{Substance: s, Quantity: c.Quantity})
	}
	return out, nil
}

func (b *builder) substance(name string) (substance.Substance, error) {
	s, ok := b.substances[name]
	if !ok {
		return substance.Substance{}, fmt.Errorf("%w: unknown substance %q", recipe.ErrArgument, name)
	}
	return s, nil
}

// endpoint resolves "name" or "name[selection]".
func (b *builder) endpoint(raw string) (vessel.Endpoint, error) {
	name, sel := SplitEndpoint(raw)
	v, ok := b.vessels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not declared", recipe.ErrUsage, name)
	}
	if sel == "" {
		switch ep := v.(type) {
		case vessel.Container:
			return ep, nil
		case vessel.Plate:
			return ep, nil
		}
		return nil, fmt.Errorf("%w: %q cannot be used as an endpoint", recipe.ErrArgument, name)
	}
	plate, ok := v.(vessel.Plate)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a plate and cannot take a well selection", recipe.ErrArgument, name)
	}
	slice, err := plate.Slice(sel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", recipe.ErrArgument, err)
	}
	return slice, nil
}

func (b *builder) container(raw string) (vessel.Container, error) {
	ep, err := b.endpoint(raw)
	if err != nil {
		return vessel.Container{}, err
	}
	c, ok := ep.(vessel.Container)
	if !ok {
		return vessel.Container{}, fmt.Errorf("%w: %q is not a container", recipe.ErrArgument, raw)
	}
	return c, nil
}

// matcher turns the "what" of a remove step into a substance or a kind.
// It defaults to every liquid.
func (b *builder) matcher(raw string) (substance.Matcher, error) {
	if raw == "" {
		return substance.Liquid, nil
	}
	if s, ok := b.substances[raw]; ok {
		return s, nil
	}
	kind, err := substance.ParseKind(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", recipe.ErrArgument, err)
	}
	return kind, nil
}

func (b *builder) apply(step StepDef) error {
	switch step.Kind {
	case CreateContainerStep:
		entries, err := b.entries(step.Contents)
		if err != nil {
			return err
		}
		c, err := b.r.CreateContainer(step.Arg("name"), step.Arg("max_volume"), entries...)
		if err != nil {
			return err
		}
		b.vessels[step.Arg("name")] = c
		return nil

	case CreateSolutionStep:
		solute, solvent, err := b.soluteAndSolvent(step)
		if err != nil {
			return err
		}
		spec := vessel.SolutionSpec{
			Concentration: step.Arg("concentration"),
			Quantity:      step.Arg("quantity"),
			TotalQuantity: step.Arg("total_quantity"),
		}
		c, err := b.r.CreateSolution(solute, solvent, step.Arg("name"), spec)
		if err != nil {
			return err
		}
		b.vessels[c.Name()] = c
		return nil

	case CreateSolutionFromStep:
		source, err := b.container(step.Arg("source"))
		if err != nil {
			return err
		}
		solute, solvent, err := b.soluteAndSolvent(step)
		if err != nil {
			return err
		}
		c, err := b.r.CreateSolutionFrom(source, solute, step.Arg("concentration"), solvent, step.Arg("quantity"), step.Arg("name"))
		if err != nil {
			return err
		}
		b.vessels[c.Name()] = c
		return nil

	case TransferStep:
		src, err := b.endpoint(step.Arg("from"))
		if err != nil {
			return err
		}
		dst, err := b.endpoint(step.Arg("to"))
		if err != nil {
			return err
		}
		return b.r.Transfer(src, dst, step.Arg("quantity"))

	case RemoveStep:
		target, err := b.endpoint(step.Arg("target"))
		if err != nil {
			return err
		}
		what, err := b.matcher(step.Arg("what"))
		if err != nil {
			return err
		}
		return b.r.Remove(target, what)

	case DiluteStep:
		target, err := b.container(step.Arg("target"))
		if err != nil {
			return err
		}
		solute, solvent, err := b.soluteAndSolvent(step)
		if err != nil {
			return err
		}
		return b.r.Dilute(target, solute, step.Arg("concentration"), solvent, step.Arg("new_name"))

	case FillToStep:
		target, err := b.endpoint(step.Arg("target"))
		if err != nil {
			return err
		}
		solvent, err := b.substance(step.Arg("solvent"))
		if err != nil {
			return err
		}
		return b.r.FillTo(target, solvent, step.Arg("quantity"))
	}
	return fmt.Errorf("%w: unknown step kind %q", recipe.ErrArgument, step.Kind)
}

func (b *builder) soluteAndSolvent(step StepDef) (substance.Substance, substance.Substance, error) {
	solute, err := b.substance(step.Arg("solute"))
	if err != nil {
		return substance.Substance{}, substance.Substance{}, err
	}
	solvent, err := b.substance(step.Arg("solvent"))
	if err != nil {
		return substance.Substance{}, substance.Substance{}, err
	}
	return solute, solvent, nil
}
