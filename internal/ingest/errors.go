package ingest

import "fmt"

// Validation reasons the reader keys its error classification on.
const (
	ReasonNotFound    = "file not found"
	ReasonNotRegular  = "not a regular file"
	ReasonEmptyFile   = "empty file"
	ReasonNotReadable = "file not readable"
)

// ValidationError reports a file that was rejected before parsing was
// attempted (missing, unreadable, empty).
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

// ParseError reports bad file content. Row is 1-based and zero when the
// failure is not tied to a specific row (header mismatch, unreadable stream).
type ParseError struct {
	File string
	Row  int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s: error in row %d: %v", e.File, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type ReadErrorKind string

const (
	ReadNotFound         ReadErrorKind = "NOT_FOUND"
	ReadValidationFailed ReadErrorKind = "VALIDATION_FAILED"
	ReadParseFailed      ReadErrorKind = "PARSE_FAILED"
	ReadInterrupted      ReadErrorKind = "INTERRUPTED"
)

// ReadError is the aggregation-level failure of the concurrent reader; it
// wraps the per-file cause so callers can still inspect it.
type ReadError struct {
	Kind ReadErrorKind
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("read failed (%s) for %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("read failed (%s): %v", e.Kind, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
