package vessel

import (
	"maps"
	"math"

	"github.com/specialistvlad/labrecipe/internal/substance"
)

// Vessel is a Container or a Plate.
type Vessel interface {
	Name() string
	// Substances lists every substance present, sorted by name.
	Substances() []substance.Substance
	isVessel()
}

// Endpoint is anything a step can draw from or deliver to: a Container, a
// Plate (all of its wells) or a Slicer (some of them).
type Endpoint interface {
	Name() string
	// Substances lists the substances present in the addressed wells.
	Substances() []substance.Substance
	isEndpoint()
}

// Entry is a substance with an amount given as a quantity string.
type Entry struct {
	Substance substance.Substance
	Quantity  string
}

// Container is a single vessel: a mapping from substance to storage amount
// plus a maximum volume.
type Container struct {
	name      string
	maxVolume float64
	contents  map[substance.Substance]float64
}

// EmptyContainer returns a container with no contents and the given capacity
// in the volume storage unit.
func EmptyContainer(name string, maxVolume float64) Container {
	return Container{name: name, maxVolume: maxVolume}
}

func (Container) isVessel()   {}
func (Container) isEndpoint() {}

// Name returns the container name.
func (c Container) Name() string { return c.name }

// MaxVolume returns the capacity in the volume storage unit. It may be +Inf.
func (c Container) MaxVolume() float64 { return c.maxVolume }

// Amount returns the storage amount of s, zero when absent.
func (c Container) Amount(s substance.Substance) float64 { return c.contents[s] }

// Contents returns a copy of the content map.
func (c Container) Contents() map[substance.Substance]float64 {
	return maps.Clone(c.contents)
}

// Substances returns the substances present, sorted by name.
func (c Container) Substances() []substance.Substance {
	out := make([]substance.Substance, 0, len(c.contents))
	for s := range c.contents {
		out = append(out, s)
	}
	substance.Sort(out)
	return out
}

// IsEmpty reports whether the container holds nothing.
func (c Container) IsEmpty() bool { return len(c.contents) == 0 }

// Renamed returns the same content under a different name.
func (c Container) Renamed(name string) Container {
	c.name = name
	return c
}

// withDeltas returns a copy with amounts changed by deltas. Amounts that fall
// to rounding noise are dropped.
func (c Container) withDeltas(deltas map[substance.Substance]float64) Container {
	next := make(map[substance.Substance]float64, len(c.contents)+len(deltas))
	maps.Copy(next, c.contents)
	for s, d := range deltas {
		before := next[s]
		after := before + d
		if after <= negligible(before, d) {
			delete(next, s)
			continue
		}
		next[s] = after
	}
	c.contents = next
	return c
}

// without returns a copy with every substance matched by what removed.
func (c Container) without(what substance.Matcher) Container {
	next := make(map[substance.Substance]float64, len(c.contents))
	for s, amount := range c.contents {
		if !what.Matches(s) {
			next[s] = amount
		}
	}
	c.contents = next
	return c
}

// scaled returns a copy with every amount multiplied by f.
func (c Container) scaled(f float64) Container {
	deltas := make(map[substance.Substance]float64, len(c.contents))
	for s, amount := range c.contents {
		deltas[s] = amount*f - amount
	}
	return c.withDeltas(deltas)
}

const (
	epsilon = 1e-9
	// residue is the relative size under which a remaining amount is dropped.
	residue = 1e-12
)

// negligible is the threshold under which a result of before+delta is
// treated as zero.
func negligible(before, delta float64) float64 {
	return residue * math.Max(math.Abs(before), math.Abs(delta))
}

// exceeds reports whether a is larger than b beyond rounding noise.
func exceeds(a, b float64) bool {
	if math.IsInf(b, 1) {
		return false
	}
	return a > b+epsilon*math.Max(1, math.Abs(b))
}
