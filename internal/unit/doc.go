// Package unit parses quantity strings and converts them to and from the
// storage units that vessel contents are kept in.
//
// The grammar is "<number> <unit>", e.g. "5 mL", "1 M", "inf L". A unit is an
// optional SI prefix (k, m, u/µ, n, p) followed by a base symbol:
//
//	L    volume
//	g    mass
//	mol  amount of substance
//	U    enzyme activity
//	M    molarity (mol/L), only valid inside concentrations
//
// Concentrations are either a molarity ("10 mM") or a ratio of two
// quantities ("0.1 umol/10 uL", "5 U/mL").
//
// A Converter binds the configured storage units. Every substance amount in
// a vessel is stored in one number: moles (in the moles storage unit) for
// liquids and solids, activity units for enzymes.
package unit
