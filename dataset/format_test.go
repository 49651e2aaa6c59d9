package dataset

import (
	"errors"
	"io/fs"
	"testing"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.01, "0.01"},
		{60, "60.0"},
		{1, "1.0"},
		{0, "0.0"},
		{151.47, "151.47"},
		{-0.5, "-0.5"},
		{0.00025, "0.00025"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{123456789012345, "123456789012345.0"},
		{1e16, "1e+16"},
		{2.5e17, "2.5e+17"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	if got := FormatValue(3, KindInt); got != "3" {
		t.Errorf("int: got %q", got)
	}
	if got := FormatValue(3, KindFloat); got != "3.0" {
		t.Errorf("float: got %q", got)
	}
	if got := FormatValue(-2, KindInt); got != "-2" {
		t.Errorf("negative int: got %q", got)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{
			&MissingSourceError{Source: "PS1", Path: "data/raw"},
			`source "PS1" not found in data/raw`,
		},
		{
			&MalformedSourceError{Source: "PS1", Row: 3, Column: 7, Reason: "empty cell"},
			`malformed source "PS1" at row 3 column 7: empty cell`,
		},
		{
			&MalformedSourceError{Source: "profile", Row: -1, Column: -1, Reason: "no data"},
			`malformed source "profile": no data`,
		},
		{
			&UnmappedFaultValueError{Dimension: "cooler_eff", Value: 50, Row: 12},
			"unmapped cooler_eff value 50 at test run 12",
		},
		{
			&RowCountMismatchError{Source: "TS1", Want: 2205, Got: 2204},
			`source "TS1" has 2204 rows, want 2205`,
		},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestMissingSourceUnwrap(t *testing.T) {
	err := error(&MissingSourceError{Source: "CE", Path: "x", Err: fs.ErrNotExist})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected MissingSourceError to unwrap to fs.ErrNotExist")
	}
}
