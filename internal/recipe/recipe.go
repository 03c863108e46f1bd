package recipe

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/specialistvlad/labrecipe/internal/config"
	"github.com/specialistvlad/labrecipe/internal/unit"
	"github.com/specialistvlad/labrecipe/internal/vessel"
)

// AllStage is the implicit stage spanning every step.
const AllStage = "all"

// StageSpan is a named half-open range of step indices.
type StageSpan struct {
	Name       string
	Start, End int
}

// Len returns the number of steps in the stage.
func (s StageSpan) Len() int { return s.End - s.Start }

// Result is a vessel name with its value.
type Result struct {
	Name   string
	Vessel vessel.Vessel
}

// Recipe records vessel declarations and operations, replays them once in
// Bake, and answers questions about the baked history.
type Recipe struct {
	cfg    *config.Config
	ops    *vessel.Ops
	logger *slog.Logger

	order   []string
	results map[string]vessel.Vessel
	used    map[string]struct{}
	steps   []*Step

	stages       []StageSpan
	currentStage string
	currentStart int

	locked bool
}

// Option configures a Recipe.
type Option func(*Recipe)

// WithLogger sets the logger used for declaration and bake events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recipe) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New returns an empty Recipe using cfg for units and rounding. A nil cfg
// means config.Default().
func New(cfg *config.Config, opts ...Option) (*Recipe, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg = cfg.Clone()
	conv, err := unit.NewConverter(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArgument, err)
	}
	r := &Recipe{
		cfg:     cfg,
		ops:     vessel.NewOps(conv),
		logger:  slog.Default(),
		results: make(map[string]vessel.Vessel),
		used:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the configuration the recipe was built with.
func (r *Recipe) Config() *config.Config { return r.cfg }

// Ops returns the vessel arithmetic bound to the recipe's units, for
// building vessels to pass to Uses.
func (r *Recipe) Ops() *vessel.Ops { return r.ops }

// Locked reports whether the recipe has been baked.
func (r *Recipe) Locked() bool { return r.locked }

// Results returns every declared vessel in declaration order. Before Bake
// these are the declared values; after, the final ones.
func (r *Recipe) Results() []Result {
	out := make([]Result, len(r.order))
	for i, name := range r.order {
		out[i] = Result{Name: name, Vessel: r.results[name]}
	}
	return out
}

// Vessel returns the current value registered under name.
func (r *Recipe) Vessel(name string) (vessel.Vessel, bool) {
	v, ok := r.results[name]
	return v, ok
}

// Steps returns the recorded steps in order.
func (r *Recipe) Steps() []*Step {
	return slices.Clone(r.steps)
}

// Stages returns the "all" stage followed by every closed stage in the
// order they were opened.
func (r *Recipe) Stages() []StageSpan {
	out := make([]StageSpan, 0, len(r.stages)+1)
	out = append(out, StageSpan{Name: AllStage, Start: 0, End: len(r.steps)})
	return append(out, r.stages...)
}

// StageOf returns the name of the stage containing step index i, or
// AllStage when no named stage does.
func (r *Recipe) StageOf(i int) string {
	for _, s := range r.stages {
		if i >= s.Start && i < s.End {
			return s.Name
		}
	}
	return AllStage
}

func (r *Recipe) stage(name string) (StageSpan, bool) {
	if name == AllStage {
		return StageSpan{Name: AllStage, Start: 0, End: len(r.steps)}, true
	}
	for _, s := range r.stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageSpan{}, false
}

// StartStage opens a named stage. Stages do not nest, and a name can be used
// once.
func (r *Recipe) StartStage(name string) error {
	if err := r.checkUnlocked(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: stage name must not be empty", ErrArgument)
	}
	if _, exists := r.stage(name); exists || name == r.currentStage {
		return fmt.Errorf("%w: stage %q already exists", ErrState, name)
	}
	if r.currentStage != "" {
		return fmt.Errorf("%w: cannot start stage %q while stage %q is open", ErrState, name, r.currentStage)
	}
	r.currentStage = name
	r.currentStart = len(r.steps)
	r.logger.Debug("Stage started.", "stage", name, "start", r.currentStart)
	return nil
}

// EndStage closes the open stage, which must be name.
func (r *Recipe) EndStage(name string) error {
	if err := r.checkUnlocked(); err != nil {
		return err
	}
	if r.currentStage != name {
		if r.currentStage == "" {
			return fmt.Errorf("%w: stage %q is not open", ErrState, name)
		}
		return fmt.Errorf("%w: open stage is %q, not %q", ErrState, r.currentStage, name)
	}
	span := StageSpan{Name: name, Start: r.currentStart, End: len(r.steps)}
	r.stages = append(r.stages, span)
	r.currentStage = ""
	r.logger.Debug("Stage ended.", "stage", name, "steps", span.Len())
	return nil
}

// Instructions returns the human-readable instructions of the steps in tf.
func (r *Recipe) Instructions(tf Timeframe) ([]string, error) {
	steps, err := r.StepsIn(tf)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Instructions
	}
	return out, nil
}

func (r *Recipe) checkUnlocked() error {
	if r.locked {
		return fmt.Errorf("%w: recipe is locked", ErrState)
	}
	return nil
}
