package vessel

import (
	"fmt"
	"math"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/unit"
	"github.com/specialistvlad/labrecipe/internal/wellid"
)

// Ops performs vessel arithmetic under one unit configuration.
type Ops struct {
	conv *unit.Converter
}

// NewOps returns Ops bound to conv.
func NewOps(conv *unit.Converter) *Ops {
	return &Ops{conv: conv}
}

// Converter returns the converter the operations use.
func (o *Ops) Converter() *unit.Converter { return o.conv }

// NewContainer builds a container with a maximum volume such as "10 mL" or
// "inf L" and optional initial contents.
func (o *Ops) NewContainer(name, maxVolume string, initial ...Entry) (Container, error) {
	if name == "" {
		return Container{}, fmt.Errorf("%w: container name must not be empty", ErrInvalid)
	}
	capacity, err := o.conv.StorageVolume(maxVolume)
	if err != nil {
		return Container{}, fmt.Errorf("container %q: %w", name, err)
	}
	c := EmptyContainer(name, capacity)
	for _, e := range initial {
		amount, err := o.conv.ParseToStorage(e.Substance, e.Quantity)
		if err != nil {
			return Container{}, fmt.Errorf("container %q: %w", name, err)
		}
		if amount < 0 {
			return Container{}, fmt.Errorf("%w: container %q: negative amount of %s", ErrInvalid, name, e.Substance.Name)
		}
		if c, err = o.add(c, map[substance.Substance]float64{e.Substance: amount}); err != nil {
			return Container{}, err
		}
	}
	return c, nil
}

// NewPlate builds an empty plate with the default A.., 1.. labels.
func (o *Ops) NewPlate(name, maxVolume string, rows, cols int) (Plate, error) {
	layout, err := wellid.DefaultLayout(rows, cols)
	if err != nil {
		return Plate{}, fmt.Errorf("plate %q: %w", name, err)
	}
	return o.NewPlateWithLayout(name, maxVolume, layout)
}

// NewPlateWithLayout builds an empty plate with custom row and column labels.
func (o *Ops) NewPlateWithLayout(name, maxVolume string, layout wellid.Layout) (Plate, error) {
	if name == "" {
		return Plate{}, fmt.Errorf("%w: plate name must not be empty", ErrInvalid)
	}
	capacity, err := o.conv.StorageVolume(maxVolume)
	if err != nil {
		return Plate{}, fmt.Errorf("plate %q: %w", name, err)
	}
	return newPlate(name, layout, capacity), nil
}

// Volume returns the volume of c in the volume storage unit.
func (o *Ops) Volume(c Container) float64 {
	total := 0.0
	for _, s := range c.Substances() {
		total += o.conv.VolumeOf(s, c.contents[s])
	}
	return total
}

// Measure returns the total amount of dimension d in c, in the unprefixed
// base unit. Substances without that dimension contribute nothing.
func (o *Ops) Measure(c Container, d unit.Dimension) float64 {
	total := 0.0
	for _, s := range c.Substances() {
		total += o.conv.Measure(s, c.contents[s], d)
	}
	return total
}

// Volumes returns the volume of every well of p, indexed [row][col].
func (o *Ops) Volumes(p Plate) [][]float64 {
	out := make([][]float64, len(p.wells))
	for r, row := range p.wells {
		out[r] = make([]float64, len(row))
		for c, w := range row {
			out[r][c] = o.Volume(w)
		}
	}
	return out
}

// add applies deltas to c and checks the result against its capacity.
func (o *Ops) add(c Container, deltas map[substance.Substance]float64) (Container, error) {
	next := c.withDeltas(deltas)
	if vol := o.Volume(next); exceeds(vol, c.maxVolume) {
		return Container{}, fmt.Errorf("%w: %q would hold %s, maximum is %s", ErrCapacity, c.name,
			o.conv.FormatStorageVolume(vol), o.conv.FormatStorageVolume(c.maxVolume))
	}
	return next, nil
}

// move draws q from src into dst proportionally to src's composition.
func (o *Ops) move(src, dst Container, q unit.Quantity) (Container, Container, error) {
	d := q.Dimension()
	if d == unit.Molarity {
		return Container{}, Container{}, fmt.Errorf("%w: cannot transfer a concentration (%s)", unit.ErrDimension, q)
	}
	want := q.Base()
	if want < 0 || math.IsInf(want, 0) || math.IsNaN(want) {
		return Container{}, Container{}, fmt.Errorf("%w: transfer quantity %s", ErrInvalid, q)
	}
	if want == 0 {
		return src, dst, nil
	}
	total := o.Measure(src, d)
	if exceeds(want, total) {
		return Container{}, Container{}, fmt.Errorf("%w: %q holds %s %s, %s requested", ErrInsufficient, src.name,
			unit.FormatNumber(total/q.Unit.Multiplier), q.Unit.Symbol, q)
	}
	frac := math.Min(want/total, 1)

	drawn := make(map[substance.Substance]float64, len(src.contents))
	taken := make(map[substance.Substance]float64, len(src.contents))
	for s, amount := range src.contents {
		moved := amount * frac
		drawn[s] = -moved
		taken[s] = moved
	}
	nextSrc := src.withDeltas(drawn)
	nextDst, err := o.add(dst, taken)
	if err != nil {
		return Container{}, Container{}, err
	}
	return nextSrc, nextDst, nil
}

// Remove drops every substance matched by what from the endpoint. A
// substance.Substance removes itself; a substance.Kind removes the whole
// category.
func (o *Ops) Remove(e Endpoint, what substance.Matcher) (Vessel, error) {
	switch v := e.(type) {
	case Container:
		return v.without(what), nil
	case Plate:
		return removeWells(v, v.layout.All(), what), nil
	case Slicer:
		return removeWells(v.plate, v.addrs, what), nil
	}
	return nil, fmt.Errorf("%w: unsupported endpoint %T", ErrInvalid, e)
}

func removeWells(p Plate, addrs []wellid.Address, what substance.Matcher) Plate {
	updates := make(map[wellid.Address]Container, len(addrs))
	for _, a := range addrs {
		updates[a] = p.Well(a).without(what)
	}
	return p.withWells(updates)
}

// FillTo adds solvent to each addressed container until its total amount, in
// the dimension of quantity, reaches quantity.
func (o *Ops) FillTo(e Endpoint, solvent substance.Substance, quantity string) (Vessel, error) {
	q, err := unit.Parse(quantity)
	if err != nil {
		return nil, err
	}
	switch v := e.(type) {
	case Container:
		return o.fillContainer(v, solvent, q)
	case Plate:
		return o.fillWells(v, v.layout.All(), solvent, q)
	case Slicer:
		return o.fillWells(v.plate, v.addrs, solvent, q)
	}
	return nil, fmt.Errorf("%w: unsupported endpoint %T", ErrInvalid, e)
}

func (o *Ops) fillWells(p Plate, addrs []wellid.Address, solvent substance.Substance, q unit.Quantity) (Plate, error) {
	updates := make(map[wellid.Address]Container, len(addrs))
	for _, a := range addrs {
		w, err := o.fillContainer(p.Well(a), solvent, q)
		if err != nil {
			return Plate{}, fmt.Errorf("well %s: %w", p.layout.Format(a), err)
		}
		updates[a] = w
	}
	return p.withWells(updates), nil
}

func (o *Ops) fillContainer(c Container, solvent substance.Substance, q unit.Quantity) (Container, error) {
	d := q.Dimension()
	per := o.conv.PerStorage(solvent, d)
	if per == 0 {
		return Container{}, fmt.Errorf("%w: cannot fill with %s by %s", unit.ErrDimension, solvent.Name, d)
	}
	current := o.Measure(c, d)
	target := q.Base()
	if exceeds(current, target) {
		return Container{}, fmt.Errorf("%w: %q already contains more than %s", ErrInfeasible, c.name, q)
	}
	add := (target - current) / per
	if add <= 0 {
		return c, nil
	}
	return o.add(c, map[substance.Substance]float64{solvent: add})
}

// Dilute adds solvent to c until solute reaches concentration. A non-empty
// newName renames the result.
func (o *Ops) Dilute(c Container, solute substance.Substance, concentration string, solvent substance.Substance, newName string) (Container, error) {
	if solute.IsEnzyme() {
		return Container{}, fmt.Errorf("%w: cannot dilute enzyme %s to a concentration", ErrInfeasible, solute.Name)
	}
	ratio, err := o.ratio(solute, concentration, solvent)
	if err != nil {
		return Container{}, err
	}
	ns := c.Amount(solute)
	if ns <= 0 {
		return Container{}, fmt.Errorf("%w: %q contains no %s", ErrInfeasible, c.name, solute.Name)
	}
	add := ns/ratio - c.Amount(solvent)
	if add < -residue*ns/ratio {
		return Container{}, fmt.Errorf("%w: %q is already more dilute than %s", ErrInfeasible, c.name, concentration)
	}
	out := c
	if add > 0 {
		if out, err = o.add(c, map[substance.Substance]float64{solvent: add}); err != nil {
			return Container{}, err
		}
	}
	if newName != "" {
		out = out.Renamed(newName)
	}
	return out, nil
}

// SolventAdded returns how much more of solvent after holds than before, in
// the storage unit of solvent.
func SolventAdded(before, after Container, solvent substance.Substance) float64 {
	return after.Amount(solvent) - before.Amount(solvent)
}
