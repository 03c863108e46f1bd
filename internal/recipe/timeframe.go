package recipe

import "fmt"

// Timeframe selects a contiguous range of baked steps. It is implemented by
// Stage, StepIndex and *Step. A nil Timeframe means the whole recipe.
type Timeframe interface {
	bounds(r *Recipe) (start, end int, err error)
}

// Stage selects the steps of a named stage.
type Stage string

// All selects every step.
const All = Stage(AllStage)

func (s Stage) bounds(r *Recipe) (int, int, error) {
	span, ok := r.stage(string(s))
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown stage %q", ErrArgument, string(s))
	}
	return span.Start, span.End, nil
}

// StepIndex selects a single step. Negative values count from the end.
type StepIndex int

func (i StepIndex) bounds(r *Recipe) (int, int, error) {
	n := len(r.steps)
	idx := int(i)
	if idx >= n || n == 0 {
		return 0, 0, fmt.Errorf("%w: invalid step number %d", ErrArgument, idx)
	}
	if idx < 0 {
		idx = max(0, n+idx)
	}
	return idx, idx + 1, nil
}

func (s *Step) bounds(r *Recipe) (int, int, error) {
	if s == nil || s.index < 0 || s.index >= len(r.steps) || r.steps[s.index] != s {
		return 0, 0, fmt.Errorf("%w: step does not belong to this recipe", ErrArgument)
	}
	return s.index, s.index + 1, nil
}

// StepsIn returns the baked steps selected by tf. A nil tf selects every
// step.
func (r *Recipe) StepsIn(tf Timeframe) ([]*Step, error) {
	if !r.locked {
		return nil, fmt.Errorf("%w: recipe has not been baked", ErrState)
	}
	start, end, err := r.span(tf)
	if err != nil {
		return nil, err
	}
	return r.steps[start:end], nil
}

func (r *Recipe) span(tf Timeframe) (int, int, error) {
	if tf == nil {
		tf = All
	}
	return tf.bounds(r)
}
