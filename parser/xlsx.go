package parser

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/hydraprep/dataset"
)

// XLSXParser reads a source exported to a workbook. Only the first sheet is
// used and, like the text format, it has no header row.
type XLSXParser struct{}

func (p *XLSXParser) SupportedFormats() []string { return []string{"xlsx"} }

func (p *XLSXParser) Parse(ctx context.Context, source, path string) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &dataset.MalformedSourceError{Source: source, Row: -1, Column: -1, Reason: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}

	m := newMatrix(source)
	for _, row := range rows {
		// GetRows omits trailing empty rows but returns interior ones as empty
		if len(row) == 0 {
			continue
		}
		if err := m.add(row); err != nil {
			return nil, err
		}
	}
	return m.table()
}
