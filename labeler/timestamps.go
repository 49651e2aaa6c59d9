// Package labeler names sensor columns by sample time and turns the raw
// fault profile into ordinal severities and a composite fault id.
package labeler

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/brunobiangulo/hydraprep/dataset"
)

// Interval is the spacing in seconds between samples of a source with the
// given number of columns.
func Interval(columns int) float64 {
	return float64(dataset.WindowSeconds) / float64(columns)
}

// Round rounds v to places decimals, ties to even, by scaling, rounding to
// the nearest integer and scaling back.
func Round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.RoundToEven(v*scale) / scale
}

// Timestamps returns the sample times of a source with the given number of
// columns: index*interval + interval rounded to 2 decimals. The window is
// (0, 60]; there is no sample at 0.
func Timestamps(columns int) []float64 {
	interval := Interval(columns)
	out := make([]float64, columns)
	for i := range out {
		out[i] = Round(float64(i)*interval+interval, 2)
	}
	return out
}

// ColumnName joins a sensor identifier and a sample time, e.g. "PS1 0.01".
func ColumnName(sensor string, t float64) string {
	return sensor + " " + dataset.FormatFloat(t)
}

// TimestampColumns renames the columns of a sensor table in place.
func TimestampColumns(t *dataset.Table) error {
	if t.NumCols() == 0 {
		return fmt.Errorf("timestamping %s: table has no columns", t.Name)
	}
	ts := Timestamps(t.NumCols())
	names := make([]string, len(ts))
	for i, v := range ts {
		names[i] = ColumnName(t.Name, v)
	}
	return t.Rename(names)
}

// LabelSensors timestamps every table in c except the fault profile.
func LabelSensors(c *dataset.Collection) error {
	for _, id := range c.IDs() {
		if id == dataset.ProfileSource {
			continue
		}
		t, _ := c.Get(id)
		if err := TimestampColumns(t); err != nil {
			return err
		}
		slog.Debug("labeled sensor", "source", id, "columns", t.NumCols(), "interval", Interval(t.NumCols()))
	}
	return nil
}
