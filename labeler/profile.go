package labeler

import (
	"fmt"
	"math"

	"github.com/brunobiangulo/hydraprep/dataset"
)

// Fault profile column names.
const (
	CoolerEff = "cooler_eff"
	ValvePerc = "valve_perc"
	PumpLeak  = "pump_leak"
	AccuPrs   = "accu_prs"
	Stable    = "stable"
	FaultID   = "fault_id"
)

// Dimensions are the four fault dimensions in tuple order.
var Dimensions = []string{CoolerEff, ValvePerc, PumpLeak, AccuPrs}

// TargetColumns are the profile-derived output columns.
var TargetColumns = []string{CoolerEff, ValvePerc, PumpLeak, AccuPrs, FaultID}

var profileColumns = []string{CoolerEff, ValvePerc, PumpLeak, AccuPrs, Stable}

// severities maps raw physical values to ordinal degradation, 0 = nominal.
// pump_leak is already ordinal in the raw data.
var severities = map[string]map[int64]int{
	CoolerEff: {100: 0, 20: 1, 3: 2},
	ValvePerc: {100: 0, 90: 1, 80: 2, 73: 3},
	PumpLeak:  {0: 0, 1: 1, 2: 2},
	AccuPrs:   {130: 0, 115: 1, 100: 2, 90: 3},
}

// FilterMode selects which test runs survive profile encoding.
type FilterMode int

const (
	// FilterStable keeps test runs whose raw stable flag is 0.
	FilterStable FilterMode = iota
	// FilterAll keeps every test run.
	FilterAll
)

func (m FilterMode) String() string {
	if m == FilterAll {
		return "all"
	}
	return "stable"
}

// ModeFor maps the stable-only switch to a FilterMode.
func ModeFor(stableOnly bool) FilterMode {
	if stableOnly {
		return FilterStable
	}
	return FilterAll
}

// Severity returns the ordinal severity of a raw value in a dimension.
func Severity(dimension string, raw float64) (int, bool) {
	m, ok := severities[dimension]
	if !ok || raw != math.Trunc(raw) {
		return 0, false
	}
	s, ok := m[int64(raw)]
	return s, ok
}

// RenameProfile returns a copy of the raw profile with semantic column names.
func RenameProfile(raw *dataset.Table) (*dataset.Table, error) {
	if raw.NumCols() != len(profileColumns) {
		return nil, &dataset.MalformedSourceError{
			Source: raw.Name, Row: -1, Column: -1,
			Reason: fmt.Sprintf("has %d columns, want %d", raw.NumCols(), len(profileColumns)),
		}
	}
	t := raw.Clone()
	if err := t.Rename(profileColumns); err != nil {
		return nil, err
	}
	return t, nil
}

// EncodeFaults filters a renamed profile according to mode, drops the
// stable column and replaces each fault dimension by its ordinal severity.
// The input table is not modified.
func EncodeFaults(profile *dataset.Table, mode FilterMode) (*dataset.Table, error) {
	si := profile.ColumnIndex(Stable)
	if si < 0 {
		return nil, fmt.Errorf("encoding %s: no %q column", profile.Name, Stable)
	}

	t := profile.Clone()
	if mode == FilterStable {
		t = t.Filter(func(row []float64) bool { return row[si] == 0 })
	}
	if err := t.DropColumn(Stable); err != nil {
		return nil, err
	}

	for _, dim := range Dimensions {
		j := t.ColumnIndex(dim)
		if j < 0 {
			return nil, fmt.Errorf("encoding %s: no %q column", profile.Name, dim)
		}
		for i, row := range t.Rows {
			s, ok := Severity(dim, row[j])
			if !ok {
				return nil, &dataset.UnmappedFaultValueError{Dimension: dim, Value: row[j], Row: t.Index[i]}
			}
			row[j] = float64(s)
		}
		t.Kinds[j] = dataset.KindInt
	}
	return t, nil
}
