package dataset

import (
	"fmt"
	"strconv"
)

// Kind is the value type of a column, inferred when a source is parsed.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Table is a named, row-major numeric table. Index holds the row labels,
// which are the original test-run positions in the source file and survive
// row filtering.
type Table struct {
	Name    string
	Columns []string
	Kinds   []Kind
	Index   []int
	Rows    [][]float64
}

// New builds a table with positional column names "0".."C-1" and index
// 0..R-1. kinds must have one entry per column.
func New(name string, rows [][]float64, kinds []Kind) *Table {
	cols := make([]string, len(kinds))
	for i := range cols {
		cols[i] = strconv.Itoa(i)
	}
	index := make([]int, len(rows))
	for i := range index {
		index[i] = i
	}
	return &Table{
		Name:    name,
		Columns: cols,
		Kinds:   kinds,
		Index:   index,
		Rows:    rows,
	}
}

func (t *Table) NumRows() int { return len(t.Rows) }
func (t *Table) NumCols() int { return len(t.Columns) }

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	rows := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]float64(nil), r...)
	}
	return &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Kinds:   append([]Kind(nil), t.Kinds...),
		Index:   append([]int(nil), t.Index...),
		Rows:    rows,
	}
}

// Rename replaces all column names at once.
func (t *Table) Rename(names []string) error {
	if len(names) != len(t.Columns) {
		return fmt.Errorf("renaming %s: got %d names for %d columns", t.Name, len(names), len(t.Columns))
	}
	t.Columns = append([]string(nil), names...)
	return nil
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]float64, error) {
	j := t.ColumnIndex(name)
	if j < 0 {
		return nil, fmt.Errorf("table %s has no column %q", t.Name, name)
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[j]
	}
	return out, nil
}

// DropColumn removes the named column in place.
func (t *Table) DropColumn(name string) error {
	j := t.ColumnIndex(name)
	if j < 0 {
		return fmt.Errorf("table %s has no column %q", t.Name, name)
	}
	t.Columns = append(t.Columns[:j:j], t.Columns[j+1:]...)
	t.Kinds = append(t.Kinds[:j:j], t.Kinds[j+1:]...)
	for i, r := range t.Rows {
		t.Rows[i] = append(r[:j:j], r[j+1:]...)
	}
	return nil
}

// AppendColumn adds a column on the right. values must have one entry per row.
func (t *Table) AppendColumn(name string, kind Kind, values []float64) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("appending %q to %s: got %d values for %d rows", name, t.Name, len(values), len(t.Rows))
	}
	t.Columns = append(t.Columns, name)
	t.Kinds = append(t.Kinds, kind)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// Filter returns a new table holding the rows for which keep returns true.
// Row slices are shared with t; index labels are carried over.
func (t *Table) Filter(keep func(row []float64) bool) *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Kinds:   append([]Kind(nil), t.Kinds...),
	}
	for i, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
			out.Index = append(out.Index, t.Index[i])
		}
	}
	return out
}
