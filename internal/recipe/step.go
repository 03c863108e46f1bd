package recipe

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/vessel"
)

// Operator tags the kind of a step.
type Operator int

const (
	OpCreateContainer Operator = iota
	OpTransfer
	OpSolution
	OpSolutionFrom
	OpRemove
	OpDilute
	OpFillTo
)

func (o Operator) String() string {
	switch o {
	case OpCreateContainer:
		return "create_container"
	case OpTransfer:
		return "transfer"
	case OpSolution:
		return "solution"
	case OpSolutionFrom:
		return "solution_from"
	case OpRemove:
		return "remove"
	case OpDilute:
		return "dilute"
	case OpFillTo:
		return "fill_to"
	default:
		return fmt.Sprintf("operator(%d)", int(o))
	}
}

// Operation is the payload of a step. The set of implementations is closed.
type Operation interface {
	Operator() Operator
	isOperation()
}

// Ref names a vessel, optionally narrowed to a selection of its wells.
type Ref struct {
	Name  string
	Slice *vessel.Slicer
}

// String renders the reference the way instructions name it.
func (r Ref) String() string {
	if r.Slice != nil {
		return r.Slice.String()
	}
	return r.Name
}

// CreateContainerOp creates a container with optional initial contents.
type CreateContainerOp struct {
	Name      string
	MaxVolume string
	Contents  []vessel.Entry
}

// TransferOp moves a quantity between two vessels or well selections.
type TransferOp struct {
	From, To Ref
	Quantity string
}

// SolutionOp creates a new two-component solution.
type SolutionOp struct {
	Name    string
	Solute  substance.Substance
	Solvent substance.Substance
	Spec    vessel.SolutionSpec
}

// SolutionFromOp creates a solution by diluting part of an existing one.
type SolutionFromOp struct {
	Source        Ref
	Name          string
	Solute        substance.Substance
	Concentration string
	Solvent       substance.Substance
	Quantity      string
}

// RemoveOp removes a substance or a whole category from a vessel.
type RemoveOp struct {
	Target Ref
	What   substance.Matcher
}

// DiluteOp adds solvent to a container until solute reaches a concentration.
type DiluteOp struct {
	Target        Ref
	Solute        substance.Substance
	Concentration string
	Solvent       substance.Substance
	NewName       string
}

// FillToOp tops a container, plate or selection up to an absolute quantity.
type FillToOp struct {
	Target   Ref
	Solvent  substance.Substance
	Quantity string
}

func (CreateContainerOp) Operator() Operator { return OpCreateContainer }
func (TransferOp) Operator() Operator        { return OpTransfer }
func (SolutionOp) Operator() Operator        { return OpSolution }
func (SolutionFromOp) Operator() Operator    { return OpSolutionFrom }
func (RemoveOp) Operator() Operator          { return OpRemove }
func (DiluteOp) Operator() Operator          { return OpDilute }
func (FillToOp) Operator() Operator          { return OpFillTo }

func (CreateContainerOp) isOperation() {}
func (TransferOp) isOperation()        {}
func (SolutionOp) isOperation()        {}
func (SolutionFromOp) isOperation()    {}
func (RemoveOp) isOperation()          {}
func (DiluteOp) isOperation()          {}
func (FillToOp) isOperation()          {}

// Snapshot records one end of an executed step: the registry name, the
// vessel value before and after the step and, for plate endpoints, the well
// selection bound to the before value.
type Snapshot struct {
	Name   string
	Slice  *vessel.Slicer
	Before vessel.Vessel
	After  vessel.Vessel
}

// Empty reports whether the step had no endpoint on this side.
func (s Snapshot) Empty() bool { return s.Name == "" }

// Step is one recorded operation. Everything except Op is filled in by Bake.
type Step struct {
	Op    Operation
	index int

	From, To       Snapshot
	ObjectsUsed    []string
	SubstancesUsed []substance.Substance
	// Trash maps substances to the storage amount removed from the system.
	// Only remove steps have one.
	Trash        map[substance.Substance]float64
	Instructions string
}

// Index returns the position of the step in its recipe.
func (s *Step) Index() int { return s.index }

// Operator is shorthand for s.Op.Operator().
func (s *Step) Operator() Operator { return s.Op.Operator() }

// Uses reports whether the step touched the named vessel.
func (s *Step) Uses(name string) bool {
	return slices.Contains(s.ObjectsUsed, name)
}

// UsesSubstance reports whether the step changed the amount of sub anywhere.
func (s *Step) UsesSubstance(sub substance.Substance) bool {
	return slices.Contains(s.SubstancesUsed, sub)
}

// side returns the snapshot of the named vessel, preferring the source side
// the way the reports read it.
func (s *Step) side(name string) (Snapshot, bool) {
	switch name {
	case s.From.Name:
		return s.From, true
	case s.To.Name:
		return s.To, true
	}
	return Snapshot{}, false
}
