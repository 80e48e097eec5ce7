package tabular

import "errors"

var (
	// ErrParse reports a file that could not be read as a table, or a table
	// whose cells could not be interpreted (no parseable dates).
	ErrParse = errors.New("table parse error")

	// ErrMissingColumn reports a table without a required column.
	ErrMissingColumn = errors.New("missing column")
)
