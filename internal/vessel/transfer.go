package vessel

import (
	"fmt"

	"github.com/specialistvlad/labrecipe/internal/unit"
	"github.com/specialistvlad/labrecipe/internal/wellid"
)

// side is one end of a transfer, resolved to a list of slots.
type side struct {
	container *Container
	plate     *plateWork
	addrs     []wellid.Address
}

func (s side) size() int {
	if s.container != nil {
		return 1
	}
	return len(s.addrs)
}

func (s side) get(i int) Container {
	if s.container != nil {
		return *s.container
	}
	return s.plate.get(s.addrs[i])
}

func (s side) set(i int, c Container) {
	if s.container != nil {
		*s.container = c
		return
	}
	s.plate.wells[s.addrs[i]] = c
}

func (s side) result() Vessel {
	if s.container != nil {
		return *s.container
	}
	return s.plate.base.withWells(s.plate.wells)
}

// plateWork collects well updates on top of a plate value.
type plateWork struct {
	base  Plate
	wells map[wellid.Address]Container
}

func (w *plateWork) get(a wellid.Address) Container {
	if c, ok := w.wells[a]; ok {
		return c
	}
	return w.base.Well(a)
}

func resolve(e Endpoint, shared *plateWork) (side, error) {
	switch v := e.(type) {
	case Container:
		return side{container: &v}, nil
	case Plate:
		return side{plate: workFor(v, shared), addrs: v.layout.All()}, nil
	case Slicer:
		if len(v.addrs) == 0 {
			return side{}, fmt.Errorf("%w: empty selection on %q", ErrShape, v.plate.name)
		}
		return side{plate: workFor(v.plate, shared), addrs: v.addrs}, nil
	}
	return side{}, fmt.Errorf("%w: unsupported endpoint %T", ErrInvalid, e)
}

func workFor(p Plate, shared *plateWork) *plateWork {
	if shared != nil {
		return shared
	}
	return &plateWork{base: p, wells: make(map[wellid.Address]Container)}
}

// Transfer moves quantity from src to dst and returns the new values of both.
// The quantity is drawn from each source slot in proportion to its
// composition, measured in the quantity's dimension.
//
// Slots pair up as follows: equal counts pair one to one in selection order,
// a single source slot is dispensed into every destination slot, and every
// source slot is drained into a single destination slot. When src and dst
// are on the same plate both results are the same plate value.
func (o *Ops) Transfer(src, dst Endpoint, quantity string) (Vessel, Vessel, error) {
	q, err := unit.Parse(quantity)
	if err != nil {
		return nil, nil, err
	}

	samePlate := false
	if src.Name() == dst.Name() {
		_, srcContainer := src.(Container)
		_, dstContainer := dst.(Container)
		if srcContainer || dstContainer {
			return nil, nil, fmt.Errorf("%w: cannot transfer %q into itself", ErrShape, src.Name())
		}
		samePlate = true
	}

	from, err := resolve(src, nil)
	if err != nil {
		return nil, nil, err
	}
	var shared *plateWork
	if samePlate {
		shared = from.plate
	}
	to, err := resolve(dst, shared)
	if err != nil {
		return nil, nil, err
	}

	pairs, err := pairUp(from.size(), to.size())
	if err != nil {
		return nil, nil, fmt.Errorf("transfer from %s to %s: %w", Describe(src), Describe(dst), err)
	}
	for _, p := range pairs {
		if samePlate && from.addrs[p[0]] == to.addrs[p[1]] {
			return nil, nil, fmt.Errorf("%w: well %s of %q transfers into itself", ErrShape,
				from.plate.base.layout.Format(from.addrs[p[0]]), src.Name())
		}
		a, b, err := o.move(from.get(p[0]), to.get(p[1]), q)
		if err != nil {
			return nil, nil, err
		}
		from.set(p[0], a)
		to.set(p[1], b)
	}

	if samePlate {
		p := to.result()
		return p, p, nil
	}
	return from.result(), to.result(), nil
}

func pairUp(n, m int) ([][2]int, error) {
	var pairs [][2]int
	switch {
	case n == m:
		for i := range n {
			pairs = append(pairs, [2]int{i, i})
		}
	case n == 1:
		for j := range m {
			pairs = append(pairs, [2]int{0, j})
		}
	case m == 1:
		for i := range n {
			pairs = append(pairs, [2]int{i, 0})
		}
	default:
		return nil, fmt.Errorf("%w: %d source wells cannot pair with %d destination wells", ErrShape, n, m)
	}
	return pairs, nil
}

// Describe renders an endpoint the way instructions name it: a plain name for
// containers and plates, "plate[A1:B3]" for slicers.
func Describe(e Endpoint) string {
	if s, ok := e.(Slicer); ok {
		return s.String()
	}
	return e.Name()
}
