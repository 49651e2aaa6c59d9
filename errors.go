package hydraprep

import (
	"errors"

	"github.com/brunobiangulo/hydraprep/dataset"
)

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("hydraprep: invalid configuration")

	// ErrStoreDisabled is returned by run queries when persistence is off.
	ErrStoreDisabled = errors.New("hydraprep: run store is disabled")

	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("hydraprep: run not found")

	// ErrTestRunNotFound is returned when a run did not retain a test run.
	ErrTestRunNotFound = errors.New("hydraprep: test run not found")

	// ErrPublishFailed is returned when outputs were written but could not
	// be uploaded.
	ErrPublishFailed = errors.New("hydraprep: publishing outputs failed")
)

// Dataset errors, matched with errors.As.
type (
	MissingSourceError      = dataset.MissingSourceError
	MalformedSourceError    = dataset.MalformedSourceError
	UnmappedFaultValueError = dataset.UnmappedFaultValueError
	RowCountMismatchError   = dataset.RowCountMismatchError
)
