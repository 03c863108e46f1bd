// internal/wellid/address.go
package wellid

import (
	"slices"
	"strings"
)

// Format serializes an address into its canonical string, e.g. "C4".
func (l Layout) Format(a Address) string {
	if !l.Contains(a) {
		return "?"
	}
	return l.rows[a.Row] + l.cols[a.Col]
}

// Collapse renders addresses compactly by covering them with rectangles:
// single wells ("A1"), row runs ("A1:A8"), column runs ("A1:H1") and blocks
// ("A1:B3"). Each rectangle grows right first, then down, starting from the
// first uncovered address in row-major order, so the output is
// deterministic.
func (l Layout) Collapse(addrs []Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	set := make(map[Address]bool, len(addrs))
	for _, a := range addrs {
		set[a] = true
	}
	sorted := make([]Address, 0, len(set))
	for a := range set {
		sorted = append(sorted, a)
	}
	slices.SortFunc(sorted, func(a, b Address) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})

	covered := make(map[Address]bool, len(sorted))
	free := func(a Address) bool { return set[a] && !covered[a] }

	var out []string
	for _, start := range sorted {
		if covered[start] {
			continue
		}
		width := 1
		for free(Address{Row: start.Row, Col: start.Col + width}) {
			width++
		}
		height := 1
		for {
			full := true
			for c := start.Col; c < start.Col+width; c++ {
				if !free(Address{Row: start.Row + height, Col: c}) {
					full = false
					break
				}
			}
			if !full {
				break
			}
			height++
		}
		for r := start.Row; r < start.Row+height; r++ {
			for c := start.Col; c < start.Col+width; c++ {
				covered[Address{Row: r, Col: c}] = true
			}
		}
		end := Address{Row: start.Row + height - 1, Col: start.Col + width - 1}
		if end == start {
			out = append(out, l.Format(start))
		} else {
			out = append(out, l.Format(start)+":"+l.Format(end))
		}
	}
	return out
}

// FormatSelection is Collapse joined with ", ".
func (l Layout) FormatSelection(addrs []Address) string {
	return strings.Join(l.Collapse(addrs), ", ")
}
