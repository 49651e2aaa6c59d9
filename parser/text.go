package parser

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/brunobiangulo/hydraprep/dataset"
)

// TSVParser handles headerless tab-separated sources (.txt, .tsv).
type TSVParser struct{}

func (p *TSVParser) SupportedFormats() []string { return []string{"txt", "tsv"} }

func (p *TSVParser) Parse(ctx context.Context, source, path string) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	const bufSize = 4 << 20 // 4 MiB
	reader := csv.NewReader(bufio.NewReaderSize(f, bufSize))
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1 // rectangularity is checked by the matrix
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	m := newMatrix(source)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &dataset.MalformedSourceError{
					Source: source, Row: len(m.rows), Column: -1,
					Reason: pe.Err.Error(), Err: err,
				}
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := m.add(record); err != nil {
			return nil, err
		}
	}
	return m.table()
}
