// internal/wellid/doc.go

/*
Package wellid provides a structured representation for well addresses on a
plate, based on the canonical format `<row><column>`, e.g. `A1` or `H12`.

Rows are named with letters and columns with numbers. A selection is a
comma-separated list of single wells and rectangular ranges, e.g.
`A1:A8, C3`. The package centralizes parsing, formatting and the collapsing
of address lists back into compact range notation.
*/
package wellid
