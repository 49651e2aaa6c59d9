package writer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/hydraprep/dataset"
	"github.com/brunobiangulo/hydraprep/joiner"
	"github.com/brunobiangulo/hydraprep/labeler"
	"github.com/brunobiangulo/hydraprep/summary"
)

// Workbook sheet names.
const (
	SheetSensors      = "sensors"
	SheetTargets      = "targets"
	SheetFaultClasses = "fault_classes"
	SheetSensorMeans  = "sensor_means"
)

// WriteWorkbook writes report.xlsx into dir: sensor catalog, targets, fault
// classes and per-run sensor means. The feature matrix itself is left out;
// it is wider than a sheet allows.
func WriteWorkbook(dir string, m *joiner.MasterTable, classes []labeler.FaultClass, sum *summary.Summary) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSensors); err != nil {
		return "", err
	}
	for _, name := range []string{SheetTargets, SheetFaultClasses, SheetSensorMeans} {
		if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	if err := writeSensorSheet(f, m); err != nil {
		return "", err
	}
	if err := writeTargetSheet(f, m); err != nil {
		return "", err
	}
	if err := writeClassSheet(f, classes); err != nil {
		return "", err
	}
	if err := writeMeanSheet(f, sum); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+WorkbookFile+"-*.tmp")
	if err != nil {
		return "", err
	}
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	path := filepath.Join(dir, WorkbookFile)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	slog.Info("wrote workbook", "path", path)
	return path, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeSensorSheet(f *excelize.File, m *joiner.MasterTable) error {
	if err := setRow(f, SheetSensors, 1, []interface{}{"sensor", "quantity", "unit", "rate_hz", "samples"}); err != nil {
		return err
	}
	for i, id := range m.Sensors() {
		s, _ := dataset.LookupSensor(id)
		samples := 0
		if m.NumRows() > 0 {
			row, err := m.SensorRow(id, 0)
			if err != nil {
				return err
			}
			samples = len(row)
		}
		if err := setRow(f, SheetSensors, i+2, []interface{}{id, s.Quantity, s.Unit, s.RateHz, samples}); err != nil {
			return err
		}
	}
	return nil
}

func writeTargetSheet(f *excelize.File, m *joiner.MasterTable) error {
	header := []interface{}{"test_run"}
	for _, c := range m.Columns(joiner.GroupTargets) {
		header = append(header, c)
	}
	if err := setRow(f, SheetTargets, 1, header); err != nil {
		return err
	}
	var values []float64
	for i, label := range m.Index() {
		values = m.AppendRow(values[:0], joiner.GroupTargets, i)
		row := []interface{}{label}
		for _, v := range values {
			row = append(row, int(v))
		}
		if err := setRow(f, SheetTargets, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeClassSheet(f *excelize.File, classes []labeler.FaultClass) error {
	header := []interface{}{labeler.FaultID}
	for _, d := range labeler.Dimensions {
		header = append(header, d)
	}
	header = append(header, "test_runs")
	if err := setRow(f, SheetFaultClasses, 1, header); err != nil {
		return err
	}
	for i, c := range classes {
		row := []interface{}{c.ID, c.State[0], c.State[1], c.State[2], c.State[3], c.TestRuns}
		if err := setRow(f, SheetFaultClasses, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeMeanSheet(f *excelize.File, sum *summary.Summary) error {
	header := []interface{}{"test_run"}
	for _, id := range sum.Sensors {
		header = append(header, id)
	}
	if err := setRow(f, SheetSensorMeans, 1, header); err != nil {
		return err
	}
	for i, label := range sum.Index {
		row := []interface{}{label}
		for _, v := range sum.Means(i) {
			row = append(row, v)
		}
		if err := setRow(f, SheetSensorMeans, i+2, row); err != nil {
			return err
		}
	}
	return nil
}
