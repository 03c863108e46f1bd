package recipe

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/unit"
	"github.com/specialistvlad/labrecipe/internal/vessel"
	"github.com/specialistvlad/labrecipe/internal/wellid"
)

// humanVolume renders a storage amount of s as a volume with a readable
// prefix, rounded to that unit's precision.
func (r *Recipe) humanVolume(s substance.Substance, amount float64) string {
	liters := amount * r.ops.Converter().PerStorage(s, unit.Volume)
	v, symbol := unit.HumanReadable(liters, "L")
	return fmt.Sprintf("%s %s", unit.FormatNumber(unit.Round(v, r.cfg.Precision(symbol))), symbol)
}

type fillGroup struct {
	amount float64
	wells  []wellid.Address
}

// plateFillSummary groups the wells of a plate by how much solvent a fill
// added, e.g. "90 uL to [A1:A3], 100 uL to [B1:B3]". Groups keep the order
// in which their first well appears; wells that received nothing are left
// out.
func (r *Recipe) plateFillSummary(before, after vessel.Plate, solvent substance.Substance) string {
	layout := before.Layout()
	wells := layout.All()
	perStorage := r.ops.Converter().PerStorage(solvent, unit.Volume)

	// Amounts are compared in microliters at the internal precision.
	added := make([]float64, len(wells))
	largest := 0.0
	for i, a := range wells {
		microliters := (after.Well(a).Amount(solvent) - before.Well(a).Amount(solvent)) * perStorage * 1e6
		added[i] = unit.Round(microliters, r.cfg.InternalPrecision)
		largest = max(largest, added[i])
	}
	if largest <= 0 {
		return ""
	}

	_, symbol := unit.HumanReadable(largest*1e-6, "L")
	scale := unit.MustParseUnit(symbol).Multiplier * 1e6
	precision := r.cfg.Precision(symbol)

	var groups []*fillGroup
	index := make(map[float64]*fillGroup)
	for i, a := range wells {
		amount := unit.Round(added[i]/scale, precision)
		if amount == 0 {
			continue
		}
		g, ok := index[amount]
		if !ok {
			g = &fillGroup{amount: amount}
			index[amount] = g
			groups = append(groups, g)
		}
		g.wells = append(g.wells, a)
	}

	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = fmt.Sprintf("%s %s to [%s]", unit.FormatNumber(g.amount), symbol,
			strings.Join(layout.Collapse(g.wells), ", "))
	}
	return strings.Join(parts, ", ")
}
