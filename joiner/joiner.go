// Package joiner aligns labeled sensor tables with the labeled fault
// profile into one master table grouped into features and targets.
package joiner

import (
	"fmt"
	"log/slog"

	"github.com/brunobiangulo/hydraprep/dataset"
)

// Column groups of a MasterTable.
const (
	GroupFeatures = "features"
	GroupTargets  = "targets"
)

// block is one source table contributing a contiguous run of columns. pos
// maps master rows to rows of the table.
type block struct {
	group string
	table *dataset.Table
	pos   []int
}

// MasterTable is a row-aligned view over the sensor blocks followed by the
// target block. Cells are read from the underlying tables; nothing is
// copied.
type MasterTable struct {
	index   []int
	blocks  []block
	sensors []string
}

// Join builds the master table. sensors fixes the column block order. Every
// sensor table must have as many rows as the raw profile in c; the labeled
// profile's index labels pick the retained test runs.
func Join(c *dataset.Collection, sensors []string, profile *dataset.Table) (*MasterTable, error) {
	raw, err := c.Lookup(dataset.ProfileSource)
	if err != nil {
		return nil, err
	}
	want := raw.NumRows()

	for _, label := range profile.Index {
		if label < 0 || label >= want {
			return nil, fmt.Errorf("joining: profile row label %d outside [0, %d)", label, want)
		}
	}

	m := &MasterTable{
		index:   append([]int(nil), profile.Index...),
		sensors: append([]string(nil), sensors...),
	}
	for _, id := range sensors {
		t, err := c.Lookup(id)
		if err != nil {
			return nil, err
		}
		if t.NumRows() != want {
			return nil, &dataset.RowCountMismatchError{Source: id, Want: want, Got: t.NumRows()}
		}
		// sensor tables are unfiltered, so a row label is also its position
		m.blocks = append(m.blocks, block{group: GroupFeatures, table: t, pos: m.index})
		slog.Debug("joined sensor block", "source", id, "columns", t.NumCols())
	}

	pos := make([]int, profile.NumRows())
	for i := range pos {
		pos[i] = i
	}
	m.blocks = append(m.blocks, block{group: GroupTargets, table: profile, pos: pos})

	slog.Info("joined master table", "test_runs", m.NumRows(),
		"features", m.NumColumns(GroupFeatures), "targets", m.NumColumns(GroupTargets))
	return m, nil
}

// NumRows is the number of retained test runs.
func (m *MasterTable) NumRows() int { return len(m.index) }

// Index returns the test-run label of every row.
func (m *MasterTable) Index() []int { return append([]int(nil), m.index...) }

// Sensors returns the sensor identifiers in column block order.
func (m *MasterTable) Sensors() []string { return append([]string(nil), m.sensors...) }

// Groups returns the group names in column order.
func (m *MasterTable) Groups() []string { return []string{GroupFeatures, GroupTargets} }

// NumColumns counts the columns of a group.
func (m *MasterTable) NumColumns(group string) int {
	n := 0
	for _, b := range m.blocks {
		if b.group == group {
			n += b.table.NumCols()
		}
	}
	return n
}

// Columns returns the column names of a group in order.
func (m *MasterTable) Columns(group string) []string {
	var out []string
	for _, b := range m.blocks {
		if b.group == group {
			out = append(out, b.table.Columns...)
		}
	}
	return out
}

// Kinds returns the column kinds of a group in order.
func (m *MasterTable) Kinds(group string) []dataset.Kind {
	var out []dataset.Kind
	for _, b := range m.blocks {
		if b.group == group {
			out = append(out, b.table.Kinds...)
		}
	}
	return out
}

// QualifiedColumns returns every column as "group/name", features first.
func (m *MasterTable) QualifiedColumns() []string {
	var out []string
	for _, g := range m.Groups() {
		for _, c := range m.Columns(g) {
			out = append(out, g+"/"+c)
		}
	}
	return out
}

// AppendRow appends row i of a group to dst and returns the extended slice.
func (m *MasterTable) AppendRow(dst []float64, group string, i int) []float64 {
	for _, b := range m.blocks {
		if b.group == group {
			dst = append(dst, b.table.Rows[b.pos[i]]...)
		}
	}
	return dst
}

// SensorRow returns the samples of one sensor for row i. The slice is shared
// with the underlying table and must not be modified.
func (m *MasterTable) SensorRow(sensor string, i int) ([]float64, error) {
	for _, b := range m.blocks {
		if b.group == GroupFeatures && b.table.Name == sensor {
			return b.table.Rows[b.pos[i]], nil
		}
	}
	return nil, fmt.Errorf("master table has no sensor %q", sensor)
}

// Target returns the value of a target column for row i.
func (m *MasterTable) Target(column string, i int) (float64, error) {
	for _, b := range m.blocks {
		if b.group != GroupTargets {
			continue
		}
		if j := b.table.ColumnIndex(column); j >= 0 {
			return b.table.Rows[b.pos[i]][j], nil
		}
	}
	return 0, fmt.Errorf("master table has no target %q", column)
}
