package recipe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/vessel"
)

// VisualizeMode picks what Visualize reports.
type VisualizeMode int

const (
	// Final reports the plate state after the last step in the timeframe.
	Final VisualizeMode = iota
	// Delta reports the change across the timeframe.
	Delta
)

func (m VisualizeMode) String() string {
	if m == Delta {
		return "delta"
	}
	return "final"
}

// ParseVisualizeMode converts "final" or "delta" into a VisualizeMode.
func ParseVisualizeMode(raw string) (VisualizeMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "final", "":
		return Final, nil
	case "delta":
		return Delta, nil
	}
	return 0, fmt.Errorf("%w: invalid mode %q", ErrArgument, raw)
}

// VisualizeOptions tune Visualize.
type VisualizeOptions struct {
	Mode      VisualizeMode
	Timeframe Timeframe
	// Unit of the values. Defaults to the configured volume display unit.
	Unit string
	// Substance restricts the values to one substance. Nil means all.
	Substance *substance.Substance
	// Colormap is carried through for renderers. Defaults to the configured
	// colormap.
	Colormap string
}

// Table is a per-well numeric view of a plate.
type Table struct {
	Plate     string
	Mode      VisualizeMode
	Unit      string
	Colormap  string
	Precision int
	Rows      []string
	Columns   []string
	// Values is indexed [row][col].
	Values   [][]float64
	Min, Max float64
}

// String renders the table as aligned text.
func (t *Table) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s, %s)\n", t.Plate, t.Mode, t.Unit)
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "\t")
	for _, c := range t.Columns {
		fmt.Fprintf(w, "%s\t", c)
	}
	fmt.Fprintln(w)
	for i, row := range t.Values {
		fmt.Fprintf(w, "%s\t", t.Rows[i])
		for _, v := range row {
			fmt.Fprintf(w, "%s\t", strconv.FormatFloat(v, 'f', t.Precision, 64))
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	return sb.String()
}

// Visualize reports the per-well content of the named plate over a
// timeframe: either the state after the last step that touched it (Final),
// or the difference between that and the state before the first (Delta).
func (r *Recipe) Visualize(name string, opts VisualizeOptions) (*Table, error) {
	if !r.locked {
		return nil, fmt.Errorf("%w: recipe has not been baked", ErrState)
	}
	current, ok := r.results[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not declared", ErrUsage, name)
	}
	if _, ok := current.(vessel.Plate); !ok {
		return nil, fmt.Errorf("%w: %q is not a plate", ErrArgument, name)
	}
	if opts.Mode != Final && opts.Mode != Delta {
		return nil, fmt.Errorf("%w: invalid mode %d", ErrArgument, int(opts.Mode))
	}
	u := opts.Unit
	if u == "" {
		u = r.cfg.VolumeDisplayUnit
	}
	cmap := opts.Colormap
	if cmap == "" {
		cmap = r.cfg.DefaultColormap
	}
	measure, err := r.measurer(u, opts.Substance)
	if err != nil {
		return nil, err
	}
	start, end, err := r.span(opts.Timeframe)
	if err != nil {
		return nil, err
	}

	first, last := -1, -1
	for i := start; i < end; i++ {
		if r.steps[i].Uses(name) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil, fmt.Errorf("%w: plate %q was not used in the timeframe", ErrUsage, name)
	}

	firstSnap, _ := r.steps[first].side(name)
	lastSnap, _ := r.steps[last].side(name)
	after := lastSnap.After.(vessel.Plate)
	values := r.grid(after, measure)
	if opts.Mode == Delta {
		before := r.grid(firstSnap.Before.(vessel.Plate), measure)
		for i := range values {
			for j := range values[i] {
				values[i][j] -= before[i][j]
			}
		}
	}

	precision := r.cfg.Precision(u)
	values = roundGrid(values, precision)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range values {
		for _, v := range row {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	layout := after.Layout()
	return &Table{
		Plate:     name,
		Mode:      opts.Mode,
		Unit:      u,
		Colormap:  cmap,
		Precision: precision,
		Rows:      layout.RowNames(),
		Columns:   layout.ColumnNames(),
		Values:    values,
		Min:       lo,
		Max:       hi,
	}, nil
}
