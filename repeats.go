package main

import (
	"fmt"
	"strconv"
	"strings"
)

// RepeatPolicy decides what happens to a repeat marker that isn't the
// last token of its line. Only trailing markers are expanded.
type RepeatPolicy int

const (
	// RepeatKeep leaves the marker in the line as a literal token
	RepeatKeep RepeatPolicy = iota
	// RepeatDrop removes the marker
	RepeatDrop
	// RepeatError fails the document with ErrMidLineRepeat
	RepeatError
)

func (p RepeatPolicy) String() string {
	switch p {
	case RepeatKeep:
		return "keep"
	case RepeatDrop:
		return "drop"
	case RepeatError:
		return "error"
	}
	return fmt.Sprintf("RepeatPolicy(%d)", int(p))
}

// ParseRepeatPolicy converts a config value into a RepeatPolicy.
// The empty string selects RepeatKeep.
func ParseRepeatPolicy(value string) (RepeatPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "keep":
		return RepeatKeep, nil
	case "drop":
		return RepeatDrop, nil
	case "error":
		return RepeatError, nil
	}
	return RepeatKeep, fmt.Errorf("unknown repeat policy %q", value)
}

// MaxResolvedLineTokens caps the length of a line after repeat expansion,
// whatever MaxRepeat is set to
const MaxResolvedLineTokens = 1 << 16

// RepeatOptions controls repeat marker resolution
type RepeatOptions struct {
	MidLine   RepeatPolicy
	MaxRepeat int // Largest accepted repeat count, 0 for no limit
}

// ResolveRepeats expands a trailing repeat marker: the marker is removed and
// the remaining tokens are repeated n times, so "x0" empties the line.
// Markers elsewhere in the line are handled by opts.MidLine and reported
// as warnings.
func ResolveRepeats(tokens []string, opts RepeatOptions) ([]string, []string, error) {
	if len(tokens) == 0 {
		return tokens, nil, nil
	}

	last := len(tokens) - 1
	var trailing string
	if IsRepeatMarker(tokens[last]) {
		trailing = tokens[last]
		tokens = tokens[:last]
	}

	var warnings []string
	body := make([]string, 0, len(tokens))
	for i, token := range tokens {
		if !IsRepeatMarker(token) {
			body = append(body, token)
			continue
		}

		warnings = append(warnings, fmt.Sprintf("repeat marker %q at token %d is not at end of line (%s)", token, i+1, opts.MidLine))

		switch opts.MidLine {
		case RepeatKeep:
			body = append(body, token)
		case RepeatError:
			return nil, warnings, fmt.Errorf("%w: %q", ErrMidLineRepeat, token)
		}
	}

	if trailing == "" {
		return body, warnings, nil
	}

	count, err := parseRepeatCount(trailing, opts.MaxRepeat)
	if err != nil {
		return nil, warnings, err
	}

	if count == 0 || len(body) == 0 {
		return []string{}, warnings, nil
	}

	if len(body) > MaxResolvedLineTokens/count {
		return nil, warnings, &RepeatMarkerError{
			Marker: trailing,
			Err:    fmt.Errorf("expands %d tokens past %d", len(body), MaxResolvedLineTokens),
		}
	}

	resolved := make([]string, 0, len(body)*count)
	for i := 0; i < count; i++ {
		resolved = append(resolved, body...)
	}

	return resolved, warnings, nil
}

func parseRepeatCount(marker string, limit int) (int, error) {
	count, err := strconv.Atoi(marker[1:])
	if err != nil {
		return 0, &RepeatMarkerError{Marker: marker, Err: err}
	}

	if limit > 0 && count > limit {
		return 0, &RepeatMarkerError{Marker: marker, Err: fmt.Errorf("count %d exceeds limit %d", count, limit)}
	}

	return count, nil
}
