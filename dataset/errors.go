package dataset

import (
	"fmt"
	"strconv"
)

// MissingSourceError is returned when an expected source file is absent.
type MissingSourceError struct {
	Source string
	Path   string // directory or file that was searched
	Err    error
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("source %q not found in %s", e.Source, e.Path)
}

func (e *MissingSourceError) Unwrap() error { return e.Err }

// MalformedSourceError is returned when a source is not a rectangular
// numeric table. Row and Column are zero-based; -1 means not applicable.
type MalformedSourceError struct {
	Source string
	Row    int
	Column int
	Reason string
	Err    error
}

func (e *MalformedSourceError) Error() string {
	msg := fmt.Sprintf("malformed source %q", e.Source)
	if e.Row >= 0 {
		msg += " at row " + strconv.Itoa(e.Row)
	}
	if e.Column >= 0 {
		msg += " column " + strconv.Itoa(e.Column)
	}
	return msg + ": " + e.Reason
}

func (e *MalformedSourceError) Unwrap() error { return e.Err }

// UnmappedFaultValueError is returned when a raw fault value has no ordinal
// severity in its dimension's mapping.
type UnmappedFaultValueError struct {
	Dimension string
	Value     float64
	Row       int // index label of the offending test run
}

func (e *UnmappedFaultValueError) Error() string {
	return fmt.Sprintf("unmapped %s value %s at test run %d",
		e.Dimension, strconv.FormatFloat(e.Value, 'g', -1, 64), e.Row)
}

// RowCountMismatchError is returned when a table does not have the number
// of test runs the join expects.
type RowCountMismatchError struct {
	Source string
	Want   int
	Got    int
}

func (e *RowCountMismatchError) Error() string {
	return fmt.Sprintf("source %q has %d rows, want %d", e.Source, e.Got, e.Want)
}
