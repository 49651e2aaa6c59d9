package labeler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/brunobiangulo/hydraprep/dataset"
)

func rawProfile(rows ...[]float64) *dataset.Table {
	return dataset.New(dataset.ProfileSource, rows, make([]dataset.Kind, 5))
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		dim    string
		raw    float64
		want   int
		wantOK bool
	}{
		{CoolerEff, 100, 0, true},
		{CoolerEff, 20, 1, true},
		{CoolerEff, 3, 2, true},
		{CoolerEff, 50, 0, false},
		{ValvePerc, 73, 3, true},
		{ValvePerc, 90.5, 0, false},
		{PumpLeak, 2, 2, true},
		{PumpLeak, 3, 0, false},
		{AccuPrs, 90, 3, true},
		{AccuPrs, 115, 1, true},
		{Stable, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := Severity(tt.dim, tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Severity(%s, %v) = (%d, %v), want (%d, %v)", tt.dim, tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestLabelProfileAllRuns(t *testing.T) {
	raw := rawProfile(
		[]float64{100, 100, 0, 130, 0},
		[]float64{20, 90, 1, 115, 1},
	)

	labeled, classes, err := LabelProfile(raw, FilterAll)
	if err != nil {
		t.Fatalf("LabelProfile: %v", err)
	}
	if got, want := labeled.Columns, TargetColumns; !reflect.DeepEqual(got, want) {
		t.Errorf("Columns = %v, want %v", got, want)
	}
	want := [][]float64{
		{0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1},
	}
	if !reflect.DeepEqual(labeled.Rows, want) {
		t.Errorf("Rows = %v, want %v", labeled.Rows, want)
	}
	if len(classes) != 2 || classes[1].State != (FaultState{1, 1, 1, 1}) {
		t.Errorf("unexpected classes: %+v", classes)
	}
	for j, k := range labeled.Kinds {
		if k != dataset.KindInt {
			t.Errorf("column %s kind = %v, want int", labeled.Columns[j], k)
		}
	}
}

func TestLabelProfileStableOnly(t *testing.T) {
	raw := rawProfile(
		[]float64{100, 100, 0, 130, 0},
		[]float64{20, 90, 1, 115, 1},
	)

	labeled, classes, err := LabelProfile(raw, FilterStable)
	if err != nil {
		t.Fatalf("LabelProfile: %v", err)
	}
	if labeled.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", labeled.NumRows())
	}
	if got, want := labeled.Rows[0], []float64{0, 0, 0, 0, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("Rows[0] = %v, want %v", got, want)
	}
	if labeled.Index[0] != 0 {
		t.Errorf("Index[0] = %d, want 0", labeled.Index[0])
	}
	if len(classes) != 1 || classes[0].TestRuns != 1 {
		t.Errorf("unexpected classes: %+v", classes)
	}
}

func TestLabelProfileKeepsIndexLabels(t *testing.T) {
	raw := rawProfile(
		[]float64{3, 100, 0, 130, 1},
		[]float64{20, 90, 1, 115, 0},
		[]float64{100, 80, 2, 100, 1},
		[]float64{100, 73, 0, 90, 0},
	)

	labeled, _, err := LabelProfile(raw, FilterStable)
	if err != nil {
		t.Fatalf("LabelProfile: %v", err)
	}
	if got, want := labeled.Index, []int{1, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Index = %v, want %v", got, want)
	}
}

func TestLabelProfileDoesNotModifyInput(t *testing.T) {
	raw := rawProfile([]float64{20, 90, 1, 115, 0})
	before := raw.Clone()

	if _, _, err := LabelProfile(raw, FilterAll); err != nil {
		t.Fatalf("LabelProfile: %v", err)
	}
	if !reflect.DeepEqual(raw, before) {
		t.Error("raw profile was modified")
	}
}

func TestLabelProfileUnmappedValue(t *testing.T) {
	raw := rawProfile(
		[]float64{100, 100, 0, 130, 0},
		[]float64{50, 100, 0, 130, 0},
	)

	labeled, _, err := LabelProfile(raw, FilterAll)
	if labeled != nil {
		t.Error("expected no table on failure")
	}
	var ue *dataset.UnmappedFaultValueError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnmappedFaultValueError, got %v", err)
	}
	if ue.Dimension != CoolerEff || ue.Value != 50 || ue.Row != 1 {
		t.Errorf("unexpected error fields: %+v", ue)
	}
}

func TestLabelProfileUnmappedValueFilteredOut(t *testing.T) {
	// An unmapped value on an unstable run is dropped before encoding.
	raw := rawProfile(
		[]float64{100, 100, 0, 130, 0},
		[]float64{50, 100, 0, 130, 1},
	)
	if _, _, err := LabelProfile(raw, FilterStable); err != nil {
		t.Errorf("LabelProfile(stable): %v", err)
	}
	if _, _, err := LabelProfile(raw, FilterAll); err == nil {
		t.Error("LabelProfile(all): expected error")
	}
}

func TestRenameProfileColumnCount(t *testing.T) {
	raw := dataset.New(dataset.ProfileSource, [][]float64{{1, 2, 3, 4}}, make([]dataset.Kind, 4))
	var me *dataset.MalformedSourceError
	if _, err := RenameProfile(raw); !errors.As(err, &me) {
		t.Errorf("expected MalformedSourceError, got %v", err)
	}
}

func TestModeFor(t *testing.T) {
	if ModeFor(true) != FilterStable || ModeFor(false) != FilterAll {
		t.Error("ModeFor mapping is wrong")
	}
	if FilterStable.String() != "stable" || FilterAll.String() != "all" {
		t.Error("FilterMode.String is wrong")
	}
}
