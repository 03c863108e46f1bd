// internal/wellid/parser.go
package wellid

import (
	"fmt"
	"regexp"
	"strings"
)

// wellRegex splits a single address into its row and column names.
var wellRegex = regexp.MustCompile(`^([A-Za-z]+)(\d+)$`)

// Parse converts a single address such as "B7" into an Address.
func (l Layout) Parse(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	matches := wellRegex.FindStringSubmatch(raw)
	if matches == nil {
		return Address{}, fmt.Errorf("%w: %q", ErrAddress, raw)
	}
	row, ok := l.rowByID[matches[1]]
	if !ok {
		return Address{}, fmt.Errorf("%w: unknown row %q in %q", ErrAddress, matches[1], raw)
	}
	col, ok := l.colByID[matches[2]]
	if !ok {
		return Address{}, fmt.Errorf("%w: unknown column %q in %q", ErrAddress, matches[2], raw)
	}
	return Address{Row: row, Col: col}, nil
}

// ParseSelection expands a selection such as "A1:B3, H12" into addresses in
// the order written; ranges expand row-major. Duplicates are rejected. The
// selections "", ":" and "*" mean the whole plate.
func (l Layout) ParseSelection(raw string) ([]Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == ":" || raw == "*" {
		return l.All(), nil
	}

	var out []Address
	seen := make(map[Address]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: selection %q contains an empty entry", ErrAddress, raw)
		}
		from, to, isRange := strings.Cut(part, ":")
		start, err := l.Parse(from)
		if err != nil {
			return nil, err
		}
		end := start
		if isRange {
			if end, err = l.Parse(to); err != nil {
				return nil, err
			}
		}
		if end.Row < start.Row || end.Col < start.Col {
			return nil, fmt.Errorf("%w: range %q must run top-left to bottom-right", ErrAddress, part)
		}
		for r := start.Row; r <= end.Row; r++ {
			for c := start.Col; c <= end.Col; c++ {
				a := Address{Row: r, Col: c}
				if _, dup := seen[a]; dup {
					return nil, fmt.Errorf("%w: well %s selected twice", ErrAddress, l.Format(a))
				}
				seen[a] = struct{}{}
				out = append(out, a)
			}
		}
	}
	return out, nil
}
