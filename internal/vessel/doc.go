// Package vessel implements the things that hold substances: Containers,
// Plates of wells, and Slicers that select a subset of a plate's wells.
//
// Containers and Plates are persistent values. Every operation returns a new
// value and leaves its inputs untouched, so an old value stays a valid
// historical snapshot for as long as anyone holds it. Content maps are never
// written after construction; Plates share unchanged rows between versions.
//
// All arithmetic that needs units lives on Ops, which binds a
// unit.Converter. Amounts inside vessels are storage amounts (moles storage
// unit, or U for enzymes); capacities are in the volume storage unit.
package vessel

import "errors"

var (
	// ErrCapacity is returned when an operation would overfill a vessel.
	ErrCapacity = errors.New("exceeds maximum volume")
	// ErrInsufficient is returned when more is drawn than a vessel holds.
	ErrInsufficient = errors.New("insufficient quantity")
	// ErrInfeasible is returned for physically impossible requests, such as
	// diluting a solution to a higher concentration.
	ErrInfeasible = errors.New("physically infeasible")
	// ErrShape is returned when source and destination selections cannot be
	// paired.
	ErrShape = errors.New("incompatible selection")
	// ErrInvalid is returned for malformed arguments.
	ErrInvalid = errors.New("invalid argument")
)
