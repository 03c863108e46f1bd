package recipe

import (
	"fmt"
	"math"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/unit"
	"github.com/specialistvlad/labrecipe/internal/vessel"
)

// UsageOptions tune SubstanceUsed.
type UsageOptions struct {
	Timeframe Timeframe
	// Unit of the result. Defaults to U for enzymes and the configured moles
	// display unit otherwise.
	Unit string
	// Destinations are the vessels whose gain counts as use. Defaults to
	// every plate.
	Destinations []string
}

// SubstanceUsed returns how much of s ended up in the destinations, plus
// whatever was removed from the system, over the selected steps.
func (r *Recipe) SubstanceUsed(s substance.Substance, opts UsageOptions) (float64, error) {
	steps, err := r.StepsIn(opts.Timeframe)
	if err != nil {
		return 0, err
	}
	u := opts.Unit
	if u == "" {
		u = r.cfg.MolesDisplayUnit
		if s.IsEnzyme() {
			u = unit.ActivityUnit
		}
	}
	if _, err := amountUnit(u); err != nil {
		return 0, err
	}

	dests := make(map[string]struct{})
	if opts.Destinations == nil {
		for _, name := range r.order {
			if _, ok := r.results[name].(vessel.Plate); ok {
				dests[name] = struct{}{}
			}
		}
	}
	for _, name := range opts.Destinations {
		if _, ok := r.used[name]; !ok {
			return 0, fmt.Errorf("%w: destination %q was not used in the recipe", ErrUsage, name)
		}
		dests[name] = struct{}{}
	}

	delta, scale := 0.0, 0.0
	for _, step := range steps {
		if !step.UsesSubstance(s) {
			continue
		}
		for _, side := range sides(step) {
			if _, ok := dests[side.Name]; !ok {
				continue
			}
			before, after := amountOf(side.Before, s), amountOf(side.After, s)
			delta += after - before
			scale = max(scale, before, after)
		}
		delta += step.Trash[s]
	}
	if delta < 0 {
		if delta < -1e-9*max(1, scale) {
			return 0, fmt.Errorf("%w: destinations hold %s %s less %s after the timeframe; check the destinations",
				ErrConservation, unit.FormatNumber(-delta), r.ops.Converter().StorageUnit(s), s.Name)
		}
		delta = 0
	}
	amount, err := r.ops.Converter().FromStorage(s, delta, u)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArgument, err)
	}
	return unit.Round(amount, r.cfg.Precision(u)), nil
}

// sides returns the distinct endpoints of a step. Same-plate transfers have
// one.
func sides(step *Step) []Snapshot {
	var out []Snapshot
	if !step.From.Empty() {
		out = append(out, step.From)
	}
	if !step.To.Empty() && step.To.Name != step.From.Name {
		out = append(out, step.To)
	}
	return out
}

// amountOf returns the storage amount of s in a container or a whole plate.
func amountOf(v vessel.Vessel, s substance.Substance) float64 {
	return totals(v)[s]
}

// FlowOptions tune ContainerFlows.
type FlowOptions struct {
	Timeframe Timeframe
	// Unit of the result. Defaults to the configured volume display unit.
	Unit string
}

// Flows is the total moved into and out of a vessel. For plates the
// per-well breakdown is in WellIn and WellOut, indexed [row][col], and In
// and Out are their sums.
type Flows struct {
	In, Out         float64
	WellIn, WellOut [][]float64
}

// ContainerFlows totals what entered and left the named vessel over the
// selected steps. Removals count as outflow.
func (r *Recipe) ContainerFlows(name string, opts FlowOptions) (Flows, error) {
	steps, err := r.StepsIn(opts.Timeframe)
	if err != nil {
		return Flows{}, err
	}
	current, ok := r.results[name]
	if !ok {
		return Flows{}, fmt.Errorf("%w: %q is not declared", ErrUsage, name)
	}
	u := opts.Unit
	if u == "" {
		u = r.cfg.VolumeDisplayUnit
	}
	measure, err := r.measurer(u, nil)
	if err != nil {
		return Flows{}, err
	}
	precision := r.cfg.Precision(u)

	plate, isPlate := current.(vessel.Plate)
	if !isPlate {
		var in, out float64
		for _, step := range steps {
			if !step.Uses(name) {
				continue
			}
			if step.To.Name == name {
				d := measure(step.To.After.(vessel.Container)) - measure(step.To.Before.(vessel.Container))
				if step.Operator() == OpRemove {
					out -= d
				} else {
					in += d
				}
			}
			if step.From.Name == name {
				out += measure(step.From.Before.(vessel.Container)) - measure(step.From.After.(vessel.Container))
			}
		}
		return Flows{In: unit.Round(in, precision), Out: unit.Round(out, precision)}, nil
	}

	in, out := zeros(plate), zeros(plate)
	for _, step := range steps {
		if !step.Uses(name) {
			continue
		}
		// A same-plate transfer shows up once, split per well by sign.
		snap, _ := step.side(name)
		before := r.grid(snap.Before.(vessel.Plate), measure)
		after := r.grid(snap.After.(vessel.Plate), measure)
		removal := step.Operator() == OpRemove
		isDest := step.To.Name == name && !removal
		isSource := step.From.Name == name || removal
		for i := range before {
			for j := range before[i] {
				d := after[i][j] - before[i][j]
				switch {
				case isDest && isSource:
					in[i][j] += math.Max(d, 0)
					out[i][j] += math.Max(-d, 0)
				case isDest:
					in[i][j] += d
				default:
					out[i][j] -= d
				}
			}
		}
	}
	flows := Flows{WellIn: roundGrid(in, precision), WellOut: roundGrid(out, precision)}
	flows.In = unit.Round(sumGrid(in), precision)
	flows.Out = unit.Round(sumGrid(out), precision)
	return flows, nil
}

// Mode picks which side of a step AmountRemaining reads.
type Mode int

const (
	// After reads the state after the last step touching the vessel.
	After Mode = iota
	// Before reads the state before the first step touching the vessel.
	Before
)

// RemainingOptions tune AmountRemaining.
type RemainingOptions struct {
	Timeframe Timeframe
	// Unit of the result. Defaults to the configured volume display unit.
	Unit string
	Mode Mode
}

// Amount is the content of a vessel in some unit. Wells is set for plates,
// indexed [row][col], and Total is its sum.
type Amount struct {
	Total float64
	Wells [][]float64
}

// AmountRemaining returns the content of the named vessel just before the
// first step (Before) or just after the last step (After) that touched it
// within the timeframe.
func (r *Recipe) AmountRemaining(name string, opts RemainingOptions) (Amount, error) {
	steps, err := r.StepsIn(opts.Timeframe)
	if err != nil {
		return Amount{}, err
	}
	if _, ok := r.results[name]; !ok {
		return Amount{}, fmt.Errorf("%w: %q is not declared", ErrUsage, name)
	}
	u := opts.Unit
	if u == "" {
		u = r.cfg.VolumeDisplayUnit
	}
	measure, err := r.measurer(u, nil)
	if err != nil {
		return Amount{}, err
	}

	var found vessel.Vessel
	for i := range steps {
		step := steps[i]
		if opts.Mode == After {
			step = steps[len(steps)-1-i]
		}
		if !step.Uses(name) {
			continue
		}
		snap := step.From
		if step.To.Name == name {
			snap = step.To
		}
		found = snap.After
		if opts.Mode == Before {
			found = snap.Before
		}
		break
	}

	switch v := found.(type) {
	case vessel.Container:
		return Amount{Total: measure(v)}, nil
	case vessel.Plate:
		wells := r.grid(v, measure)
		return Amount{Total: sumGrid(wells), Wells: wells}, nil
	}
	return Amount{}, fmt.Errorf("%w: %q was not used in the timeframe", ErrUsage, name)
}

// measurer returns a function totalling a container's content in u, or
// only the content of one substance when only is set.
func (r *Recipe) measurer(u string, only *substance.Substance) (func(vessel.Container) float64, error) {
	parsed, err := amountUnit(u)
	if err != nil {
		return nil, err
	}
	conv := r.ops.Converter()
	return func(c vessel.Container) float64 {
		total := 0.0
		for _, s := range c.Substances() {
			if only != nil && s != *only {
				continue
			}
			total += conv.Measure(s, c.Amount(s), parsed.Dimension) / parsed.Multiplier
		}
		return total
	}, nil
}

// amountUnit parses a unit that results can be expressed in.
func amountUnit(u string) (unit.Unit, error) {
	parsed, err := unit.ParseUnit(u)
	if err != nil {
		return unit.Unit{}, fmt.Errorf("%w: %w", ErrArgument, err)
	}
	if parsed.Dimension == unit.Molarity {
		return unit.Unit{}, fmt.Errorf("%w: %s is not a unit of amount", ErrArgument, u)
	}
	return parsed, nil
}

func (r *Recipe) grid(p vessel.Plate, measure func(vessel.Container) float64) [][]float64 {
	out := zeros(p)
	for _, a := range p.Layout().All() {
		out[a.Row][a.Col] = measure(p.Well(a))
	}
	return out
}

func zeros(p vessel.Plate) [][]float64 {
	out := make([][]float64, p.Rows())
	for i := range out {
		out[i] = make([]float64, p.Cols())
	}
	return out
}

func sumGrid(g [][]float64) float64 {
	total := 0.0
	for _, row := range g {
		for _, v := range row {
			total += v
		}
	}
	return total
}

func roundGrid(g [][]float64, precision int) [][]float64 {
	for _, row := range g {
		for j := range row {
			row[j] = unit.Round(row[j], precision)
		}
	}
	return g
}
