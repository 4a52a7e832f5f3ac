package main

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is returned when a document body declares no sections
	ErrEmptyDocument = errors.New("document has no sections")

	// ErrMidLineRepeat is returned for a repeat marker that is not the last
	// token of its line when RepeatPolicy is RepeatError
	ErrMidLineRepeat = errors.New("repeat marker not at end of line")

	// ErrCacheStale is returned when a cached dataset was built from different documents
	ErrCacheStale = errors.New("cached dataset does not match corpus")
)

// HeaderFormatError reports a comment line that has no key/value separator
type HeaderFormatError struct {
	Line int    // 1-based line number in the document
	Text string // The offending line
}

func (e *HeaderFormatError) Error() string {
	return fmt.Sprintf("header line %d has no ':' separator: %q", e.Line, e.Text)
}

// RepeatMarkerError reports a repeat marker whose count can't be used
type RepeatMarkerError struct {
	Marker string
	Err    error
}

func (e *RepeatMarkerError) Error() string {
	return fmt.Sprintf("invalid repeat marker %q: %v", e.Marker, e.Err)
}

func (e *RepeatMarkerError) Unwrap() error {
	return e.Err
}

// VocabularyConsistencyError means an assembled sequence holds a token the
// vocabulary never saw. It always indicates a bug, never bad input.
type VocabularyConsistencyError struct {
	Kind  string // "chord" or "label"
	Token string
}

func (e *VocabularyConsistencyError) Error() string {
	return fmt.Sprintf("%s %q missing from vocabulary", e.Kind, e.Token)
}

// DocumentError ties a parse failure to the document it came from
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}
