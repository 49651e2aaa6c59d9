package labeler

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/brunobiangulo/hydraprep/dataset"
)

// FaultState is the ordinal tuple (cooler_eff, valve_perc, pump_leak,
// accu_prs) of one test run.
type FaultState [4]int

// Less orders states lexicographically.
func (s FaultState) Less(o FaultState) bool {
	for i := range s {
		if s[i] != o[i] {
			return s[i] < o[i]
		}
	}
	return false
}

// FaultClass is one distinct fault state and the id it was assigned.
type FaultClass struct {
	ID       int        `json:"fault_id"`
	State    FaultState `json:"state"`
	TestRuns int        `json:"test_runs"`
}

// AssignFaultIDs numbers the distinct fault states of an encoded profile in
// ascending lexicographic order starting at 0 and returns a copy with a
// fault_id column appended, along with the classes in id order.
//
// Ids depend on the set of states present, so a different selection of test
// runs can renumber them.
func AssignFaultIDs(encoded *dataset.Table) (*dataset.Table, []FaultClass, error) {
	if encoded.ColumnIndex(FaultID) >= 0 {
		return nil, nil, fmt.Errorf("assigning fault ids to %s: %q already present", encoded.Name, FaultID)
	}
	var cols [4]int
	for k, dim := range Dimensions {
		cols[k] = encoded.ColumnIndex(dim)
		if cols[k] < 0 {
			return nil, nil, fmt.Errorf("assigning fault ids to %s: no %q column", encoded.Name, dim)
		}
	}

	states := make([]FaultState, encoded.NumRows())
	counts := make(map[FaultState]int)
	for i, row := range encoded.Rows {
		var s FaultState
		for k, j := range cols {
			s[k] = int(row[j])
		}
		states[i] = s
		counts[s]++
	}

	distinct := make([]FaultState, 0, len(counts))
	for s := range counts {
		distinct = append(distinct, s)
	}
	sort.Slice(distinct, func(i, j int) bool {
		return distinct[i].Less(distinct[j])
	})

	classes := make([]FaultClass, len(distinct))
	ids := make(map[FaultState]int, len(distinct))
	for id, s := range distinct {
		ids[s] = id
		classes[id] = FaultClass{ID: id, State: s, TestRuns: counts[s]}
	}

	values := make([]float64, len(states))
	for i, s := range states {
		values[i] = float64(ids[s])
	}
	out := encoded.Clone()
	if err := out.AppendColumn(FaultID, dataset.KindInt, values); err != nil {
		return nil, nil, err
	}
	return out, classes, nil
}

// LabelProfile renames, filters and encodes the raw fault profile and
// assigns fault ids.
func LabelProfile(raw *dataset.Table, mode FilterMode) (*dataset.Table, []FaultClass, error) {
	renamed, err := RenameProfile(raw)
	if err != nil {
		return nil, nil, err
	}
	encoded, err := EncodeFaults(renamed, mode)
	if err != nil {
		return nil, nil, err
	}
	labeled, classes, err := AssignFaultIDs(encoded)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("labeled fault profile", "mode", mode.String(),
		"test_runs", labeled.NumRows(), "of", raw.NumRows(), "fault_classes", len(classes))
	return labeled, classes, nil
}
