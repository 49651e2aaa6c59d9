// Package writer serializes a master table to the processed output files.
package writer

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/brunobiangulo/hydraprep/dataset"
	"github.com/brunobiangulo/hydraprep/joiner"
)

// Output file names.
const (
	SensorsFile  = "sensors.csv"
	FeaturesFile = "features.csv"
	TargetsFile  = "targets.csv"
	WorkbookFile = "report.xlsx"
)

const bufSize = 4 << 20 // 4 MiB

// Write emits sensors.csv, features.csv and targets.csv into dir and returns
// their paths. Files are staged under temporary names and only renamed into
// place once all three are complete; on error nothing is left behind.
func Write(ctx context.Context, dir string, sensors []string, m *joiner.MasterTable) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{SensorsFile, func(w io.Writer) error { return writeSensors(w, sensors) }},
		{FeaturesFile, func(w io.Writer) error { return writeGroup(ctx, w, m, joiner.GroupFeatures) }},
		{TargetsFile, func(w io.Writer) error { return writeGroup(ctx, w, m, joiner.GroupTargets) }},
	}

	var staged []string
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()

	for _, o := range outputs {
		tmp, err := stage(dir, o.name, o.write)
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", o.name, err)
		}
		staged = append(staged, tmp)
	}

	paths := make([]string, len(outputs))
	for i, o := range outputs {
		paths[i] = filepath.Join(dir, o.name)
		if err := os.Rename(staged[i], paths[i]); err != nil {
			for _, done := range paths[:i] {
				os.Remove(done)
			}
			return nil, fmt.Errorf("renaming %s: %w", o.name, err)
		}
		slog.Info("wrote output", "path", paths[i])
	}
	staged = nil
	return paths, nil
}

// stage writes one file under a temporary name in dir.
func stage(dir, name string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return "", err
	}
	bw := bufio.NewWriterSize(f, bufSize)
	if err := write(bw); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// writeSensors writes the identifiers as one CRLF-terminated record.
func writeSensors(w io.Writer, sensors []string) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(sensors); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// writeGroup writes one column group: a header with an empty index cell,
// then the test-run label and values of every row.
func writeGroup(ctx context.Context, w io.Writer, m *joiner.MasterTable, group string) error {
	cw := csv.NewWriter(w)

	cols := m.Columns(group)
	kinds := m.Kinds(group)
	record := make([]string, 0, len(cols)+1)
	record = append(record, "")
	record = append(record, cols...)
	if err := cw.Write(record); err != nil {
		return err
	}

	const checkEvery = 256
	index := m.Index()
	var values []float64
	for i, label := range index {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		values = m.AppendRow(values[:0], group, i)
		record = append(record[:0], strconv.Itoa(label))
		for j, v := range values {
			record = append(record, dataset.FormatValue(v, kinds[j]))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("row %d: %w", label, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
