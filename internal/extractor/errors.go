package extractor

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat matches any *UnsupportedFormatError via errors.Is.
	ErrUnsupportedFormat = errors.New("unsupported file type")
	// ErrSourceRead matches any *SourceReadError via errors.Is.
	ErrSourceRead = errors.New("source read failed")
	// ErrEmptySource is wrapped by SourceReadError when there is no content at all.
	ErrEmptySource = errors.New("source content is empty")
)

// UnsupportedFormatError is returned for a declared format the normalizer
// does not know.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("Unsupported file type: %q", e.Format)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// SourceReadError is returned when the report content is missing or cannot
// be decoded.
type SourceReadError struct {
	Source string
	Err    error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("failed to read source %s: %v", e.Source, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

func (e *SourceReadError) Is(target error) bool {
	return target == ErrSourceRead
}
