package recipe

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/vessel"
)

// Bake replays every step in order and locks the recipe. It returns the
// final value of every declared vessel in declaration order.
//
// The replay runs against a scratch registry. If any step fails, or a
// declared vessel is never used, the recipe is left exactly as it was and
// stays unlocked. An open stage is closed on success.
func (r *Recipe) Bake() ([]Result, error) {
	if r.locked {
		return nil, fmt.Errorf("%w: recipe has already been baked", ErrState)
	}

	b := &baker{
		r:    r,
		reg:  maps.Clone(r.results),
		used: make(map[string]struct{}, len(r.results)),
	}
	steps := make([]*Step, len(r.steps))
	for i, declared := range r.steps {
		step := &Step{Op: declared.Op, index: i}
		if err := b.run(step); err != nil {
			r.logger.Debug("Bake failed.", "step", i, "operator", declared.Op.Operator(), "error", err)
			return nil, fmt.Errorf("step %d (%s): %w", i, declared.Op.Operator(), err)
		}
		r.logger.Debug("Step baked.", "step", i, "instructions", step.Instructions)
		steps[i] = step
	}

	var unused []string
	for _, name := range r.order {
		if _, ok := b.used[name]; !ok {
			unused = append(unused, fmt.Sprintf("%q", name))
		}
	}
	if len(unused) > 0 {
		return nil, fmt.Errorf("%w: declared but never used: %s", ErrUsage, strings.Join(unused, ", "))
	}

	if r.currentStage != "" {
		r.stages = append(r.stages, StageSpan{Name: r.currentStage, Start: r.currentStart, End: len(r.steps)})
		r.currentStage = ""
	}
	r.results = b.reg
	r.used = b.used
	r.steps = steps
	r.locked = true
	r.logger.Info("✅ Recipe baked.", "steps", len(steps), "vessels", len(r.order), "stages", len(r.stages))
	return r.Results(), nil
}

// baker holds the scratch state of one replay.
type baker struct {
	r    *Recipe
	reg  map[string]vessel.Vessel
	used map[string]struct{}
}

func (b *baker) run(step *Step) error {
	switch op := step.Op.(type) {
	case CreateContainerOp:
		return b.createContainer(step, op)
	case TransferOp:
		return b.transfer(step, op)
	case SolutionOp:
		return b.solution(step, op)
	case SolutionFromOp:
		return b.solutionFrom(step, op)
	case RemoveOp:
		return b.remove(step, op)
	case DiluteOp:
		return b.dilute(step, op)
	case FillToOp:
		return b.fillTo(step, op)
	default:
		panic(fmt.Sprintf("recipe: unhandled operation %T", op))
	}
}

// touch marks names as used by the step and by the recipe.
func (b *baker) touch(step *Step, names ...string) {
	for _, name := range names {
		b.used[name] = struct{}{}
		if !slices.Contains(step.ObjectsUsed, name) {
			step.ObjectsUsed = append(step.ObjectsUsed, name)
		}
	}
}

// endpoint resolves ref against the scratch registry, binding a selection to
// whichever plate value currently holds the name.
func (b *baker) endpoint(ref Ref) (vessel.Endpoint, Snapshot, error) {
	current, ok := b.reg[ref.Name]
	if !ok {
		return nil, Snapshot{}, fmt.Errorf("%w: %q is not declared", ErrUsage, ref.Name)
	}
	snap := Snapshot{Name: ref.Name, Before: current}
	if ref.Slice == nil {
		switch v := current.(type) {
		case vessel.Container:
			return v, snap, nil
		case vessel.Plate:
			return v, snap, nil
		}
		return nil, Snapshot{}, fmt.Errorf("%w: %q has unsupported type %T", ErrArgument, ref.Name, current)
	}
	plate, ok := current.(vessel.Plate)
	if !ok {
		return nil, Snapshot{}, fmt.Errorf("%w: %q is not a plate", ErrArgument, ref.Name)
	}
	bound, err := ref.Slice.Bind(plate)
	if err != nil {
		return nil, Snapshot{}, classify(err)
	}
	snap.Slice = &bound
	return bound, snap, nil
}

func (b *baker) container(ref Ref) (vessel.Container, Snapshot, error) {
	ep, snap, err := b.endpoint(ref)
	if err != nil {
		return vessel.Container{}, Snapshot{}, err
	}
	c, ok := ep.(vessel.Container)
	if !ok {
		return vessel.Container{}, Snapshot{}, fmt.Errorf("%w: %q is not a container", ErrArgument, ref.Name)
	}
	return c, snap, nil
}

func (b *baker) createContainer(step *Step, op CreateContainerOp) error {
	before := b.reg[op.Name]
	c, err := b.r.ops.NewContainer(op.Name, op.MaxVolume, op.Contents...)
	if err != nil {
		return classify(err)
	}
	b.reg[op.Name] = c
	b.touch(step, op.Name)
	step.To = Snapshot{Name: op.Name, Before: before, After: c}
	step.SubstancesUsed = c.Substances()
	step.Instructions = fmt.Sprintf("Create container '%s'.", op.Name)
	return nil
}

func (b *baker) transfer(step *Step, op TransferOp) error {
	src, from, err := b.endpoint(op.From)
	if err != nil {
		return err
	}
	dst, to, err := b.endpoint(op.To)
	if err != nil {
		return err
	}
	step.SubstancesUsed = src.Substances()

	newSrc, newDst, err := b.r.ops.Transfer(src, dst, op.Quantity)
	if err != nil {
		return classify(err)
	}
	b.reg[from.Name] = newSrc
	b.reg[to.Name] = newDst
	from.After = newSrc
	to.After = newDst
	step.From, step.To = from, to
	b.touch(step, from.Name, to.Name)
	step.Instructions = fmt.Sprintf("Transfer %s from '%s' to '%s'.", op.Quantity, op.From, op.To)
	return nil
}

func (b *baker) solution(step *Step, op SolutionOp) error {
	before := b.reg[op.Name]
	c, err := b.r.ops.CreateSolution(op.Solute, op.Solvent, op.Name, op.Spec)
	if err != nil {
		return classify(err)
	}
	b.reg[op.Name] = c
	b.touch(step, op.Name)
	step.To = Snapshot{Name: op.Name, Before: before, After: c}
	step.SubstancesUsed = c.Substances()
	step.Instructions = solutionInstructions(op)
	return nil
}

func solutionInstructions(op SolutionOp) string {
	prefix := fmt.Sprintf("Create a solution of '%s' in '%s'", op.Solute.Name, op.Solvent.Name)
	spec := op.Spec
	switch {
	case spec.Concentration != "" && spec.TotalQuantity != "":
		return fmt.Sprintf("%s with a concentration of %s and a total quantity of %s.", prefix, spec.Concentration, spec.TotalQuantity)
	case spec.Concentration != "" && spec.Quantity != "":
		return fmt.Sprintf("%s with a concentration of %s and a quantity of %s.", prefix, spec.Concentration, spec.Quantity)
	default:
		return fmt.Sprintf("%s with a total quantity of %s and a quantity of %s.", prefix, spec.TotalQuantity, spec.Quantity)
	}
}

func (b *baker) solutionFrom(step *Step, op SolutionFromOp) error {
	source, from, err := b.container(op.Source)
	if err != nil {
		return err
	}
	before := b.reg[op.Name]
	left, made, err := b.r.ops.CreateSolutionFrom(source, op.Solute, op.Concentration, op.Solvent, op.Quantity, op.Name)
	if err != nil {
		return classify(err)
	}
	b.reg[from.Name] = left
	b.reg[op.Name] = made
	from.After = left
	step.From = from
	step.To = Snapshot{Name: op.Name, Before: before, After: made}
	b.touch(step, from.Name, op.Name)
	step.SubstancesUsed = made.Substances()
	step.Instructions = fmt.Sprintf("Create %s of a %s solution of '%s' in '%s' from '%s'.",
		op.Quantity, op.Concentration, op.Solute.Name, op.Solvent.Name, from.Name)
	return nil
}

func (b *baker) remove(step *Step, op RemoveOp) error {
	target, to, err := b.endpoint(op.Target)
	if err != nil {
		return err
	}
	after, err := b.r.ops.Remove(target, op.What)
	if err != nil {
		return classify(err)
	}
	b.reg[to.Name] = after
	to.After = after
	step.To = to
	b.touch(step, to.Name)

	before, remaining := totals(to.Before), totals(after)
	step.Trash = make(map[substance.Substance]float64)
	for s, amount := range before {
		if removed := amount - remaining[s]; removed > 0 {
			step.Trash[s] = removed
			step.SubstancesUsed = append(step.SubstancesUsed, s)
		}
	}
	substance.Sort(step.SubstancesUsed)

	switch what := op.What.(type) {
	case substance.Substance:
		step.Instructions = fmt.Sprintf("Remove %s from '%s'.", what.Name, op.Target)
	case substance.Kind:
		step.Instructions = fmt.Sprintf("Remove all %s from '%s'.", what.Plural(), op.Target)
	default:
		step.Instructions = fmt.Sprintf("Remove matching substances from '%s'.", op.Target)
	}
	return nil
}

func (b *baker) dilute(step *Step, op DiluteOp) error {
	c, to, err := b.container(op.Target)
	if err != nil {
		return err
	}
	after, err := b.r.ops.Dilute(c, op.Solute, op.Concentration, op.Solvent, op.NewName)
	if err != nil {
		return classify(err)
	}
	// The registry keeps the declared name even when the value is renamed.
	b.reg[to.Name] = after
	to.After = after
	step.To = to
	b.touch(step, to.Name)
	step.SubstancesUsed = []substance.Substance{op.Solvent}

	added := vessel.SolventAdded(c, after, op.Solvent)
	step.Instructions = fmt.Sprintf("Dilute '%s' in '%s' to %s by adding %s of '%s'.",
		op.Solute.Name, to.Name, op.Concentration, b.r.humanVolume(op.Solvent, added), op.Solvent.Name)
	return nil
}

func (b *baker) fillTo(step *Step, op FillToOp) error {
	target, to, err := b.endpoint(op.Target)
	if err != nil {
		return err
	}
	after, err := b.r.ops.FillTo(target, op.Solvent, op.Quantity)
	if err != nil {
		return classify(err)
	}
	b.reg[to.Name] = after
	to.After = after
	step.To = to
	b.touch(step, to.Name)
	step.SubstancesUsed = []substance.Substance{op.Solvent}

	switch before := to.Before.(type) {
	case vessel.Container:
		added := vessel.SolventAdded(before, after.(vessel.Container), op.Solvent)
		step.Instructions = fmt.Sprintf("Fill '%s' with '%s' up to %s by adding %s.",
			op.Target, op.Solvent.Name, op.Quantity, b.r.humanVolume(op.Solvent, added))
	case vessel.Plate:
		summary := b.r.plateFillSummary(before, after.(vessel.Plate), op.Solvent)
		if summary == "" {
			step.Instructions = fmt.Sprintf("Fill '%s' with '%s' up to %s; nothing to add.",
				op.Target, op.Solvent.Name, op.Quantity)
		} else {
			step.Instructions = fmt.Sprintf("Fill '%s' with '%s' up to %s by adding: %s.",
				op.Target, op.Solvent.Name, op.Quantity, summary)
		}
	}
	return nil
}

// totals sums the content of a container or of every well of a plate.
func totals(v vessel.Vessel) map[substance.Substance]float64 {
	switch t := v.(type) {
	case vessel.Container:
		return t.Contents()
	case vessel.Plate:
		out := make(map[substance.Substance]float64)
		for _, a := range t.Layout().All() {
			w := t.Well(a)
			for _, s := range w.Substances() {
				out[s] += w.Amount(s)
			}
		}
		return out
	}
	return nil
}
