package vessel

import (
	"fmt"
	"math"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/unit"
)

// SolutionSpec names what a new solution must satisfy. Exactly two of the
// three fields must be set.
type SolutionSpec struct {
	// Concentration of the solute, e.g. "0.5 M" or "10 mg/mL".
	Concentration string
	// Quantity of solute, e.g. "5 g".
	Quantity string
	// TotalQuantity of the finished solution, e.g. "50 mL".
	TotalQuantity string
}

// Count returns how many fields are set.
func (s SolutionSpec) Count() int {
	n := 0
	for _, f := range []string{s.Concentration, s.Quantity, s.TotalQuantity} {
		if f != "" {
			n++
		}
	}
	return n
}

// CreateSolution builds a new container holding solute dissolved in solvent.
// The container has no capacity limit.
func (o *Ops) CreateSolution(solute, solvent substance.Substance, name string, spec SolutionSpec) (Container, error) {
	if spec.Count() != 2 {
		return Container{}, fmt.Errorf("%w: exactly two of concentration, quantity and total quantity must be given", ErrInvalid)
	}
	if solvent.IsEnzyme() {
		return Container{}, fmt.Errorf("%w: solvent %s must not be an enzyme", ErrInvalid, solvent.Name)
	}
	if solute == solvent {
		return Container{}, fmt.Errorf("%w: solute and solvent are both %s", ErrInvalid, solute.Name)
	}

	var ns, nv float64
	switch {
	case spec.Concentration != "" && spec.TotalQuantity != "":
		ratio, err := o.ratio(solute, spec.Concentration, solvent)
		if err != nil {
			return Container{}, err
		}
		tq, err := unit.Parse(spec.TotalQuantity)
		if err != nil {
			return Container{}, err
		}
		d := tq.Dimension()
		per := ratio*o.conv.PerStorage(solute, d) + o.conv.PerStorage(solvent, d)
		if per == 0 {
			return Container{}, fmt.Errorf("%w: total quantity %s", unit.ErrDimension, tq)
		}
		nv = tq.Base() / per
		ns = ratio * nv
	case spec.Concentration != "" && spec.Quantity != "":
		ratio, err := o.ratio(solute, spec.Concentration, solvent)
		if err != nil {
			return Container{}, err
		}
		if ns, err = o.conv.ParseToStorage(solute, spec.Quantity); err != nil {
			return Container{}, err
		}
		nv = ns / ratio
	default:
		var err error
		if ns, err = o.conv.ParseToStorage(solute, spec.Quantity); err != nil {
			return Container{}, err
		}
		tq, err := unit.Parse(spec.TotalQuantity)
		if err != nil {
			return Container{}, err
		}
		d := tq.Dimension()
		per := o.conv.PerStorage(solvent, d)
		if per == 0 {
			return Container{}, fmt.Errorf("%w: total quantity %s", unit.ErrDimension, tq)
		}
		remaining := tq.Base() - o.conv.Measure(solute, ns, d)
		if remaining <= 0 {
			return Container{}, fmt.Errorf("%w: %s of %s alone exceeds %s", ErrInfeasible, spec.Quantity, solute.Name, tq)
		}
		nv = remaining / per
	}
	if ns < 0 || nv < 0 {
		return Container{}, fmt.Errorf("%w: negative amounts in solution %q", ErrInvalid, name)
	}

	if name == "" {
		name = DefaultSolutionName(solute, solvent)
	}
	c := EmptyContainer(name, math.Inf(1))
	return c.withDeltas(map[substance.Substance]float64{solute: ns, solvent: nv}), nil
}

// CreateSolutionFrom draws from source the amount needed to make quantity of
// solute at concentration, topping up with solvent. It returns the depleted
// source and the new container, which inherits the source's capacity.
func (o *Ops) CreateSolutionFrom(source Container, solute substance.Substance, concentration string, solvent substance.Substance, quantity, name string) (Container, Container, error) {
	if solvent.IsEnzyme() {
		return Container{}, Container{}, fmt.Errorf("%w: solvent %s must not be an enzyme", ErrInvalid, solvent.Name)
	}
	ratio, err := o.ratio(solute, concentration, solvent)
	if err != nil {
		return Container{}, Container{}, err
	}
	tq, err := unit.Parse(quantity)
	if err != nil {
		return Container{}, Container{}, err
	}
	d := tq.Dimension()
	per := ratio*o.conv.PerStorage(solute, d) + o.conv.PerStorage(solvent, d)
	if per == 0 {
		return Container{}, Container{}, fmt.Errorf("%w: quantity %s", unit.ErrDimension, tq)
	}
	nvTarget := tq.Base() / per
	nsTarget := ratio * nvTarget

	available := source.Amount(solute)
	if available <= 0 {
		return Container{}, Container{}, fmt.Errorf("%w: %q contains no %s", ErrInfeasible, source.name, solute.Name)
	}
	frac := nsTarget / available
	if exceeds(frac, 1) {
		return Container{}, Container{}, fmt.Errorf("%w: %q does not hold enough %s for %s at %s", ErrInsufficient, source.name, solute.Name, quantity, concentration)
	}
	frac = math.Min(frac, 1)
	add := nvTarget - source.Amount(solvent)*frac
	if add < -residue*nvTarget {
		return Container{}, Container{}, fmt.Errorf("%w: %q is too dilute to make %s", ErrInfeasible, source.name, concentration)
	}

	drawn := make(map[substance.Substance]float64, len(source.contents))
	taken := make(map[substance.Substance]float64, len(source.contents)+1)
	for s, amount := range source.contents {
		drawn[s] = -amount * frac
		taken[s] = amount * frac
	}
	if add > 0 {
		taken[solvent] += add
	}

	if name == "" {
		name = DefaultSolutionName(solute, solvent)
	}
	result, err := o.add(EmptyContainer(name, source.maxVolume), taken)
	if err != nil {
		return Container{}, Container{}, err
	}
	return source.withDeltas(drawn), result, nil
}

func (o *Ops) ratio(solute substance.Substance, concentration string, solvent substance.Substance) (float64, error) {
	ratio, _, _, err := o.conv.ConcentrationRatio(solute, concentration, solvent)
	if err != nil {
		return 0, err
	}
	if ratio <= 0 {
		return 0, fmt.Errorf("%w: %s of %s cannot be made in %s", ErrInfeasible, concentration, solute.Name, solvent.Name)
	}
	return ratio, nil
}

// DefaultSolutionName is the name given to solutions created without one.
func DefaultSolutionName(solute, solvent substance.Substance) string {
	return fmt.Sprintf("solution of %s in %s", solute.Name, solvent.Name)
}
