package vessel

import (
	"fmt"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/wellid"
)

// Slicer is a selection of wells on a plate. It remembers the plate value it
// was taken from, but recipe steps resolve it against the plate's current
// state at bake time through Bind.
type Slicer struct {
	plate Plate
	addrs []wellid.Address
}

func (Slicer) isEndpoint() {}

// Name returns the name of the underlying plate.
func (s Slicer) Name() string { return s.plate.name }

// Plate returns the plate value the selection refers to.
func (s Slicer) Plate() Plate { return s.plate }

// Addresses returns the selected wells in selection order.
func (s Slicer) Addresses() []wellid.Address {
	return append([]wellid.Address(nil), s.addrs...)
}

// Len returns the number of selected wells.
func (s Slicer) Len() int { return len(s.addrs) }

// Wells returns the selected containers in selection order.
func (s Slicer) Wells() []Container {
	out := make([]Container, len(s.addrs))
	for i, a := range s.addrs {
		out[i] = s.plate.Well(a)
	}
	return out
}

// Substances returns the union of the substances in the selected wells.
func (s Slicer) Substances() []substance.Substance {
	seen := make(map[substance.Substance]struct{})
	var out []substance.Substance
	for _, a := range s.addrs {
		for sub := range s.plate.Well(a).contents {
			if _, ok := seen[sub]; !ok {
				seen[sub] = struct{}{}
				out = append(out, sub)
			}
		}
	}
	substance.Sort(out)
	return out
}

// Selection renders the selected wells compactly, e.g. "A1:A8, C3".
func (s Slicer) Selection() string {
	return s.plate.layout.FormatSelection(s.addrs)
}

// String renders the slicer as "plate[A1:A8]".
func (s Slicer) String() string {
	return fmt.Sprintf("%s[%s]", s.plate.name, s.Selection())
}

// Bind returns the same selection over p, which must be a version of the
// plate this slicer was taken from.
func (s Slicer) Bind(p Plate) (Slicer, error) {
	if p.name != s.plate.name {
		return Slicer{}, fmt.Errorf("%w: slicer over %q cannot bind to plate %q", ErrShape, s.plate.name, p.name)
	}
	for _, a := range s.addrs {
		if !p.layout.Contains(a) {
			return Slicer{}, fmt.Errorf("%w: plate %q has no well %v", ErrShape, p.name, a)
		}
	}
	s.plate = p
	return s, nil
}
