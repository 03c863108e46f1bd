// Package recipe is the declaration and replay engine for lab protocols.
//
// A Recipe is built in two phases. During declaration, callers register
// vessels with Uses or the Create* methods and record operations (Transfer,
// Dilute, FillTo, Remove, ...). Each call is validated eagerly and either
// appends exactly one Step or fails without changing anything.
//
// Bake then replays every step in order against a scratch registry of vessel
// values, annotates each step with before and after snapshots, and commits
// only when the whole replay succeeds. A baked Recipe is locked: further
// declarations fail with ErrState, and the query methods (SubstanceUsed,
// ContainerFlows, AmountRemaining, Visualize) read the baked history.
//
// Steps refer to vessels by name. The registry maps each name to the
// vessel's current value; values are persistent, so snapshots cost nothing.
package recipe
