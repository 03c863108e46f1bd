// internal/wellid/types.go
package wellid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrAddress is returned for malformed or out-of-range well addresses.
var ErrAddress = errors.New("invalid well address")

// Address is the zero-based position of a well.
type Address struct {
	Row int
	Col int
}

// Less orders addresses row-major.
func (a Address) Less(b Address) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

// Layout names the rows and columns of a plate.
type Layout struct {
	rows    []string
	cols    []string
	rowByID map[string]int
	colByID map[string]int
}

var (
	rowNameRegex = regexp.MustCompile(`^[A-Za-z]+$`)
	colNameRegex = regexp.MustCompile(`^\d+$`)
)

// NewLayout builds a layout from explicit row and column names. Row names
// must be letters and column names digits so that addresses stay
// unambiguous.
func NewLayout(rows, cols []string) (Layout, error) {
	if len(rows) == 0 || len(cols) == 0 {
		return Layout{}, fmt.Errorf("%w: a plate needs at least one row and one column", ErrAddress)
	}
	l := Layout{
		rows:    append([]string(nil), rows...),
		cols:    append([]string(nil), cols...),
		rowByID: make(map[string]int, len(rows)),
		colByID: make(map[string]int, len(cols)),
	}
	for i, r := range rows {
		if !rowNameRegex.MatchString(r) {
			return Layout{}, fmt.Errorf("%w: row name %q must be letters", ErrAddress, r)
		}
		if _, dup := l.rowByID[r]; dup {
			return Layout{}, fmt.Errorf("%w: duplicate row name %q", ErrAddress, r)
		}
		l.rowByID[r] = i
	}
	for i, c := range cols {
		if !colNameRegex.MatchString(c) {
			return Layout{}, fmt.Errorf("%w: column name %q must be digits", ErrAddress, c)
		}
		if _, dup := l.colByID[c]; dup {
			return Layout{}, fmt.Errorf("%w: duplicate column name %q", ErrAddress, c)
		}
		l.colByID[c] = i
	}
	return l, nil
}

// DefaultLayout names rows A, B, ... Z, AA, AB, ... and columns 1..n.
func DefaultLayout(rows, cols int) (Layout, error) {
	if rows <= 0 || cols <= 0 {
		return Layout{}, fmt.Errorf("%w: plate dimensions must be positive, got %dx%d", ErrAddress, rows, cols)
	}
	rowNames := make([]string, rows)
	for i := range rowNames {
		rowNames[i] = letters(i)
	}
	colNames := make([]string, cols)
	for i := range colNames {
		colNames[i] = strconv.Itoa(i + 1)
	}
	return NewLayout(rowNames, colNames)
}

// letters converts 0 -> A, 25 -> Z, 26 -> AA.
func letters(i int) string {
	s := ""
	for i >= 0 {
		s = string(rune('A'+i%26)) + s
		i = i/26 - 1
	}
	return s
}

// Rows returns the number of rows.
func (l Layout) Rows() int { return len(l.rows) }

// Cols returns the number of columns.
func (l Layout) Cols() int { return len(l.cols) }

// RowNames returns a copy of the row names.
func (l Layout) RowNames() []string { return append([]string(nil), l.rows...) }

// ColumnNames returns a copy of the column names.
func (l Layout) ColumnNames() []string { return append([]string(nil), l.cols...) }

// Contains reports whether a lies on the plate.
func (l Layout) Contains(a Address) bool {
	return a.Row >= 0 && a.Row < len(l.rows) && a.Col >= 0 && a.Col < len(l.cols)
}

// All returns every address in row-major order.
func (l Layout) All() []Address {
	out := make([]Address, 0, len(l.rows)*len(l.cols))
	for r := range l.rows {
		for c := range l.cols {
			out = append(out, Address{Row: r, Col: c})
		}
	}
	return out
}
