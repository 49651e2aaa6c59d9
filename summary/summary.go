// Package summary computes per test run sensor statistics and the
// standardized sensor profile vectors used for nearest-run lookup.
package summary

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/brunobiangulo/hydraprep/joiner"
)

// Stats describes the samples of one sensor in one test run.
type Stats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary holds Stats for every retained test run and sensor.
type Summary struct {
	Sensors []string
	Index   []int
	Rows    [][]Stats // [test run][sensor]
}

// Compute summarizes every sensor block of m.
func Compute(m *joiner.MasterTable) (*Summary, error) {
	s := &Summary{
		Sensors: m.Sensors(),
		Index:   m.Index(),
		Rows:    make([][]Stats, m.NumRows()),
	}
	for i := range s.Rows {
		row := make([]Stats, len(s.Sensors))
		for k, id := range s.Sensors {
			samples, err := m.SensorRow(id, i)
			if err != nil {
				return nil, err
			}
			row[k] = describe(samples)
		}
		s.Rows[i] = row
	}
	return s, nil
}

func describe(x []float64) Stats {
	if len(x) == 0 {
		return Stats{}
	}
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) < 2 {
		std = 0
	}
	return Stats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(x),
		Max:    floats.Max(x),
	}
}

// Means returns the per-sensor means of test run i.
func (s *Summary) Means(i int) []float64 {
	out := make([]float64, len(s.Sensors))
	for k, st := range s.Rows[i] {
		out[k] = st.Mean
	}
	return out
}

// Vectors returns one profile vector per test run: each sensor's mean,
// standardized across all test runs of the summary. A sensor with no spread
// contributes 0.
func (s *Summary) Vectors() [][]float32 {
	n := len(s.Rows)
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, len(s.Sensors))
	}
	col := make([]float64, n)
	for k := range s.Sensors {
		for i := range s.Rows {
			col[i] = s.Rows[i][k].Mean
		}
		mu, sigma := stat.MeanStdDev(col, nil)
		if n < 2 || sigma == 0 || math.IsNaN(sigma) {
			continue
		}
		for i := range out {
			out[i][k] = float32((col[i] - mu) / sigma)
		}
	}
	return out
}
