package parser

import (
	"context"

	"github.com/brunobiangulo/hydraprep/dataset"
)

// Parser reads one raw source file into a positional numeric table.
// source is the identifier the table is registered under and is used in
// error reports.
type Parser interface {
	Parse(ctx context.Context, source, path string) (*dataset.Table, error)
	SupportedFormats() []string
}
