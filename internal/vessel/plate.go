package vessel

import (
	"fmt"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/wellid"
)

// Plate is a rectangular grid of wells, each behaving as a Container with the
// plate's per-well maximum volume.
type Plate struct {
	name      string
	layout    wellid.Layout
	maxVolume float64
	// wells is indexed [row][col]. Rows are shared between plate versions and
	// must never be written after the plate is built.
	wells [][]Container
}

func newPlate(name string, layout wellid.Layout, maxVolume float64) Plate {
	wells := make([][]Container, layout.Rows())
	for r := range wells {
		wells[r] = make([]Container, layout.Cols())
		for c := range wells[r] {
			addr := wellid.Address{Row: r, Col: c}
			wells[r][c] = EmptyContainer(wellName(name, layout, addr), maxVolume)
		}
	}
	return Plate{name: name, layout: layout, maxVolume: maxVolume, wells: wells}
}

func wellName(plate string, layout wellid.Layout, a wellid.Address) string {
	return fmt.Sprintf("%s[%s]", plate, layout.Format(a))
}

func (Plate) isVessel()   {}
func (Plate) isEndpoint() {}

// Name returns the plate name.
func (p Plate) Name() string { return p.name }

// Layout returns the row and column labels of the plate.
func (p Plate) Layout() wellid.Layout { return p.layout }

// MaxVolume returns the per-well capacity in the volume storage unit.
func (p Plate) MaxVolume() float64 { return p.maxVolume }

// Rows returns the number of rows.
func (p Plate) Rows() int { return p.layout.Rows() }

// Cols returns the number of columns.
func (p Plate) Cols() int { return p.layout.Cols() }

// Well returns the container at a. It panics when a is outside the layout.
func (p Plate) Well(a wellid.Address) Container {
	return p.wells[a.Row][a.Col]
}

// Substances returns the union of the substances in every well.
func (p Plate) Substances() []substance.Substance {
	seen := make(map[substance.Substance]struct{})
	var out []substance.Substance
	for _, row := range p.wells {
		for _, w := range row {
			for s := range w.contents {
				if _, ok := seen[s]; !ok {
					seen[s] = struct{}{}
					out = append(out, s)
				}
			}
		}
	}
	substance.Sort(out)
	return out
}

// Amounts returns the storage amount of s in every well, indexed [row][col].
func (p Plate) Amounts(s substance.Substance) [][]float64 {
	out := make([][]float64, len(p.wells))
	for r, row := range p.wells {
		out[r] = make([]float64, len(row))
		for c, w := range row {
			out[r][c] = w.Amount(s)
		}
	}
	return out
}

// All returns a Slicer over every well.
func (p Plate) All() Slicer {
	return Slicer{plate: p, addrs: p.layout.All()}
}

// Slice returns a Slicer over the wells named by sel, e.g. "A1:H1" or
// "A1, B2:B4". An empty selection means all wells.
func (p Plate) Slice(sel string) (Slicer, error) {
	addrs, err := p.layout.ParseSelection(sel)
	if err != nil {
		return Slicer{}, fmt.Errorf("plate %q: %w", p.name, err)
	}
	return Slicer{plate: p, addrs: addrs}, nil
}

// Select returns a Slicer over the given addresses, in the given order.
func (p Plate) Select(addrs ...wellid.Address) (Slicer, error) {
	if len(addrs) == 0 {
		return Slicer{}, fmt.Errorf("%w: plate %q: empty selection", ErrInvalid, p.name)
	}
	seen := make(map[wellid.Address]struct{}, len(addrs))
	for _, a := range addrs {
		if !p.layout.Contains(a) {
			return Slicer{}, fmt.Errorf("%w: plate %q: %v", wellid.ErrAddress, p.name, a)
		}
		if _, dup := seen[a]; dup {
			return Slicer{}, fmt.Errorf("%w: plate %q: %s selected twice", wellid.ErrAddress, p.name, p.layout.Format(a))
		}
		seen[a] = struct{}{}
	}
	return Slicer{plate: p, addrs: append([]wellid.Address(nil), addrs...)}, nil
}

// Renamed returns the same wells under a different plate name.
func (p Plate) Renamed(name string) Plate {
	p.name = name
	return p
}

// withWells returns a copy with the given wells replaced. Untouched rows are
// shared with p.
func (p Plate) withWells(updates map[wellid.Address]Container) Plate {
	if len(updates) == 0 {
		return p
	}
	rows := make([][]Container, len(p.wells))
	copy(rows, p.wells)
	copied := make(map[int]bool)
	for a, w := range updates {
		if !copied[a.Row] {
			rows[a.Row] = append([]Container(nil), p.wells[a.Row]...)
			copied[a.Row] = true
		}
		rows[a.Row][a.Col] = w
	}
	p.wells = rows
	return p
}
