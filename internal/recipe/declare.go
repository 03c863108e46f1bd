package recipe

import (
	"fmt"
	"math"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/unit"
	"github.com/specialistvlad/labrecipe/internal/vessel"
)

// DefaultMaxVolume is the capacity of containers created without one.
const DefaultMaxVolume = "inf L"

// Uses declares vessels as taking part in the recipe. Names must be unique
// across every declared vessel. Either all vessels are registered or none.
func (r *Recipe) Uses(vessels ...vessel.Vessel) error {
	if err := r.checkUnlocked(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(vessels))
	for i, v := range vessels {
		if v == nil {
			return fmt.Errorf("%w: vessel %d is nil", ErrArgument, i)
		}
		name := v.Name()
		if name == "" {
			return fmt.Errorf("%w: vessel %d has no name", ErrArgument, i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: an object with the name %q is already in use", ErrUsage, name)
		}
		if err := r.checkFree(name); err != nil {
			return err
		}
		seen[name] = struct{}{}
	}
	for _, v := range vessels {
		r.register(v)
	}
	return nil
}

func (r *Recipe) checkFree(name string) error {
	if _, dup := r.results[name]; dup {
		return fmt.Errorf("%w: an object with the name %q is already in use", ErrUsage, name)
	}
	return nil
}

func (r *Recipe) register(v vessel.Vessel) {
	r.results[v.Name()] = v
	r.order = append(r.order, v.Name())
	r.logger.Debug("Vessel declared.", "name", v.Name(), "type", fmt.Sprintf("%T", v))
}

func (r *Recipe) appendStep(op Operation) {
	r.steps = append(r.steps, &Step{Op: op, index: len(r.steps)})
	r.logger.Debug("Step recorded.", "index", len(r.steps)-1, "operator", op.Operator())
}

// ref checks that e names a declared vessel of a matching kind.
func (r *Recipe) ref(role string, e vessel.Endpoint) (Ref, error) {
	if e == nil {
		return Ref{}, fmt.Errorf("%w: %s must not be nil", ErrArgument, role)
	}
	name := e.Name()
	current, ok := r.results[name]
	if !ok {
		return Ref{}, fmt.Errorf("%w: %s %q has not been declared for use", ErrUsage, role, name)
	}
	_, isPlate := current.(vessel.Plate)
	switch v := e.(type) {
	case vessel.Container:
		if isPlate {
			return Ref{}, fmt.Errorf("%w: %s %q is a plate, not a container", ErrArgument, role, name)
		}
		return Ref{Name: name}, nil
	case vessel.Plate:
		if !isPlate {
			return Ref{}, fmt.Errorf("%w: %s %q is a container, not a plate", ErrArgument, role, name)
		}
		return Ref{Name: name}, nil
	case vessel.Slicer:
		if !isPlate {
			return Ref{}, fmt.Errorf("%w: %s %q is a container, not a plate", ErrArgument, role, name)
		}
		if _, err := v.Bind(current.(vessel.Plate)); err != nil {
			return Ref{}, fmt.Errorf("%w: %s: %w", ErrArgument, role, err)
		}
		return Ref{Name: name, Slice: &v}, nil
	}
	return Ref{}, fmt.Errorf("%w: unsupported %s type %T", ErrArgument, role, e)
}

// checkAmount validates a quantity that names an amount of matter.
func checkAmount(role, raw string) (unit.Quantity, error) {
	q, err := unit.Parse(raw)
	if err != nil {
		return unit.Quantity{}, fmt.Errorf("%w: %s: %w", ErrArgument, role, err)
	}
	if q.Dimension() == unit.Molarity {
		return unit.Quantity{}, fmt.Errorf("%w: %s %q is a concentration, not an amount", ErrArgument, role, raw)
	}
	if q.Value < 0 || math.IsInf(q.Value, 0) || math.IsNaN(q.Value) {
		return unit.Quantity{}, fmt.Errorf("%w: %s %q must be a finite, non-negative amount", ErrArgument, role, raw)
	}
	return q, nil
}

// checkSubstance rejects the zero Substance.
func checkSubstance(role string, s substance.Substance) error {
	if s.Name == "" {
		return fmt.Errorf("%w: %s must be a named substance", ErrArgument, role)
	}
	return nil
}

// checkConcentration confirms that solute at concentration can be made in
// solvent.
func (r *Recipe) checkConcentration(solute substance.Substance, concentration string, solvent substance.Substance) error {
	ratio, _, _, err := r.ops.Converter().ConcentrationRatio(solute, concentration, solvent)
	if err != nil {
		return fmt.Errorf("%w: concentration: %w", ErrArgument, err)
	}
	if ratio <= 0 {
		return fmt.Errorf("%w: %s of %s in %s is impossible to create", ErrInfeasible, concentration, solute.Name, solvent.Name)
	}
	return nil
}

// Transfer records moving quantity from src to dst. Every substance in the
// source moves in proportion to its share. Whole plates are treated as a
// selection of all their wells.
func (r *Recipe) Transfer(src, dst vessel.Endpoint, quantity string) error {
	if err := r.checkUnlocked(); err != nil {
		return err
	}
	from, err := r.ref("source", src)
	if err != nil {
		return err
	}
	to, err := r.ref("destination", dst)
	if err != nil {
		return err
	}
	if _, err := checkAmount("quantity", quantity); err != nil {
		return err
	}
	if from.Name == to.Name {
		if _, ok := src.(vessel.Container); ok {
			return fmt.Errorf("%w: cannot transfer %q into itself", ErrArgument, from.Name)
		}
	}
	from = wholePlate(src, from)
	to = wholePlate(dst, to)
	r.appendStep(TransferOp{From: from, To: to, Quantity: quantity})
	return nil
}

func wholePlate(e vessel.Endpoint, ref Ref) Ref {
	if p, ok := e.(vessel.Plate); ok {
		all := p.All()
		ref.Slice = &all
	}
	return ref
}

// CreateContainer records creating a container and declares its name. An
// empty maxVolume means unlimited. The returned container is a placeholder
// that later steps can use to refer to the new vessel.
func (r *Recipe) CreateContainer(name, maxVolume string, contents ...vessel.Entry) (vessel.Container, error) {
	if err := r.checkUnlocked(); err != nil {
		return vessel.Container{}, err
	}
	if name == "" {
		return vessel.Container{}, fmt.Errorf("%w: container name must not be empty", ErrArgument)
	}
	if maxVolume == "" {
		maxVolume = DefaultMaxVolume
	}
	capacity, err := r.ops.Converter().StorageVolume(maxVolume)
	if err != nil {
		return vessel.Container{}, fmt.Errorf("%w: maximum volume: %w", ErrArgument, err)
	}
	for i, e := range contents {
		if err := checkSubstance(fmt.Sprintf("initial contents entry %d", i), e.Substance); err != nil {
			return vessel.Container{}, err
		}
		if _, err := checkAmount(fmt.Sprintf("quantity of %s", e.Substance.Name), e.Quantity); err != nil {
			return vessel.Container{}, err
		}
		if _, err := r.ops.Converter().ParseToStorage(e.Substance, e.Quantity); err != nil {
			return vessel.Container{}, fmt.Errorf("%w: %w", ErrArgument, err)
		}
	}
	if err := r.checkFree(name); err != nil {
		return vessel.Container{}, err
	}

	placeholder := vessel.EmptyContainer(name, capacity)
	r.register(placeholder)
	r.appendStep(CreateContainerOp{Name: name, MaxVolume: maxVolume, Contents: append([]vessel.Entry(nil), contents...)})
	return placeholder, nil
}

// CreateSolution records making a solution of solute in solvent. Exactly two
// of spec's fields must be set. An empty name becomes
// "solution of <solute> in <solvent>".
func (r *Recipe) CreateSolution(solute, solvent substance.Substance, name string, spec vessel.SolutionSpec) (vessel.Container, error) {
	if err := r.checkUnlocked(); err != nil {
		return vessel.Container{}, err
	}
	if err := checkSubstance("solute", solute); err != nil {
		return vessel.Container{}, err
	}
	if err := checkSubstance("solvent", solvent); err != nil {
		return vessel.Container{}, err
	}
	if spec.Count() != 2 {
		return vessel.Container{}, fmt.Errorf("%w: must specify two values out of concentration, quantity and total quantity", ErrArgument)
	}
	if solvent.IsEnzyme() {
		return vessel.Container{}, fmt.Errorf("%w: solvent %s must not be an enzyme", ErrArgument, solvent.Name)
	}
	if spec.Concentration != "" {
		if _, err := unit.ParseConcentration(spec.Concentration); err != nil {
			return vessel.Container{}, fmt.Errorf("%w: concentration: %w", ErrArgument, err)
		}
	}
	if spec.Quantity != "" {
		if _, err := checkAmount("quantity", spec.Quantity); err != nil {
			return vessel.Container{}, err
		}
	}
	if spec.TotalQuantity != "" {
		if _, err := checkAmount("total quantity", spec.TotalQuantity); err != nil {
			return vessel.Container{}, err
		}
	}
	if name == "" {
		name = vessel.DefaultSolutionName(solute, solvent)
	}
	if err := r.checkFree(name); err != nil {
		return vessel.Container{}, err
	}

	placeholder := vessel.EmptyContainer(name, math.Inf(1))
	r.register(placeholder)
	r.appendStep(SolutionOp{Name: name, Solute: solute, Solvent: solvent, Spec: spec})
	return placeholder, nil
}

// CreateSolutionFrom records making quantity of solute at concentration by
// drawing from source and topping up with solvent. The new container has the
// source's capacity.
func (r *Recipe) CreateSolutionFrom(source vessel.Container, solute substance.Substance, concentration string, solvent substance.Substance, quantity, name string) (vessel.Container, error) {
	if err := r.checkUnlocked(); err != nil {
		return vessel.Container{}, err
	}
	from, err := r.ref("source", source)
	if err != nil {
		return vessel.Container{}, err
	}
	if err := checkSubstance("solute", solute); err != nil {
		return vessel.Container{}, err
	}
	if err := checkSubstance("solvent", solvent); err != nil {
		return vessel.Container{}, err
	}
	q, err := checkAmount("quantity", quantity)
	if err != nil {
		return vessel.Container{}, err
	}
	if q.Value <= 0 {
		return vessel.Container{}, fmt.Errorf("%w: quantity must be positive", ErrArgument)
	}
	if err := r.checkConcentration(solute, concentration, solvent); err != nil {
		return vessel.Container{}, err
	}
	if name == "" {
		name = vessel.DefaultSolutionName(solute, solvent)
	}
	if err := r.checkFree(name); err != nil {
		return vessel.Container{}, err
	}

	capacity := r.results[from.Name].(vessel.Container).MaxVolume()
	placeholder := vessel.EmptyContainer(name, capacity)
	r.register(placeholder)
	r.appendStep(SolutionFromOp{
		Source:        from,
		Name:          name,
		Solute:        solute,
		Concentration: concentration,
		Solvent:       solvent,
		Quantity:      quantity,
	})
	return placeholder, nil
}

// Remove records removing what from dst. A nil what removes all liquids.
func (r *Recipe) Remove(dst vessel.Endpoint, what substance.Matcher) error {
	if err := r.checkUnlocked(); err != nil {
		return err
	}
	target, err := r.ref("destination", dst)
	if err != nil {
		return err
	}
	if what == nil {
		what = substance.Liquid
	}
	r.appendStep(RemoveOp{Target: target, What: what})
	return nil
}

// Dilute records adding solvent to dst until solute reaches concentration.
// A non-empty newName renames the diluted container; the recipe keeps
// tracking it under its declared name.
func (r *Recipe) Dilute(dst vessel.Container, solute substance.Substance, concentration string, solvent substance.Substance, newName string) error {
	if err := r.checkUnlocked(); err != nil {
		return err
	}
	target, err := r.ref("destination", dst)
	if err != nil {
		return err
	}
	if err := checkSubstance("solute", solute); err != nil {
		return err
	}
	if err := checkSubstance("solvent", solvent); err != nil {
		return err
	}
	if err := r.checkConcentration(solute, concentration, solvent); err != nil {
		return err
	}
	if solute.IsEnzyme() {
		return fmt.Errorf("%w: diluting enzyme %s is not supported", ErrInfeasible, solute.Name)
	}
	r.appendStep(DiluteOp{
		Target:        target,
		Solute:        solute,
		Concentration: concentration,
		Solvent:       solvent,
		NewName:       newName,
	})
	return nil
}

// FillTo records topping dst up with solvent until it holds quantity.
func (r *Recipe) FillTo(dst vessel.Endpoint, solvent substance.Substance, quantity string) error {
	if err := r.checkUnlocked(); err != nil {
		return err
	}
	target, err := r.ref("destination", dst)
	if err != nil {
		return err
	}
	if err := checkSubstance("solvent", solvent); err != nil {
		return err
	}
	q, err := checkAmount("quantity", quantity)
	if err != nil {
		return err
	}
	if r.ops.Converter().PerStorage(solvent, q.Dimension()) == 0 {
		return fmt.Errorf("%w: cannot fill with %s up to %s", ErrArgument, solvent.Name, quantity)
	}
	r.appendStep(FillToOp{Target: target, Solvent: solvent, Quantity: quantity})
	return nil
}
