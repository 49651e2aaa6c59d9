package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/brunobiangulo/hydraprep/dataset"
)

// matrix accumulates textual records into a rectangular numeric table and
// infers per-column kinds: a column is integer until a cell fails to parse
// as one.
type matrix struct {
	source string
	width  int
	isInt  []bool
	rows   [][]float64
}

func newMatrix(source string) *matrix {
	return &matrix{source: source}
}

func (m *matrix) add(fields []string) error {
	row := len(m.rows)
	if row == 0 {
		m.width = len(fields)
		m.isInt = make([]bool, m.width)
		for j := range m.isInt {
			m.isInt[j] = true
		}
	} else if len(fields) != m.width {
		return &dataset.MalformedSourceError{
			Source: m.source, Row: row, Column: -1,
			Reason: fmt.Sprintf("has %d columns, want %d", len(fields), m.width),
		}
	}

	vals := make([]float64, len(fields))
	for j, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return &dataset.MalformedSourceError{Source: m.source, Row: row, Column: j, Reason: "empty cell"}
		}
		if n, err := strconv.ParseInt(f, 10, 64); err == nil {
			vals[j] = float64(n)
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return &dataset.MalformedSourceError{
				Source: m.source, Row: row, Column: j,
				Reason: fmt.Sprintf("non-numeric value %q", f), Err: err,
			}
		}
		vals[j] = v
		m.isInt[j] = false
	}
	m.rows = append(m.rows, vals)
	return nil
}

func (m *matrix) table() (*dataset.Table, error) {
	if len(m.rows) == 0 || m.width == 0 {
		return nil, &dataset.MalformedSourceError{Source: m.source, Row: -1, Column: -1, Reason: "no data"}
	}
	kinds := make([]dataset.Kind, m.width)
	for j, ok := range m.isInt {
		if !ok {
			kinds[j] = dataset.KindFloat
		}
	}
	return dataset.New(m.source, m.rows, kinds), nil
}
