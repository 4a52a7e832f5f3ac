package main

import (
	"strconv"
	"strings"
)

// UnknownTime marks a line whose timestamp field isn't a number
const UnknownTime = -1.0

// Line is one body line of a section with its timestamp split off
type Line struct {
	Time float64 // Seconds from the start of the song, UnknownTime if unparseable
	Text string  // Annotation content after the timestamp
}

// Section is a labeled group of body lines as written in the document.
// The declaring prefix ("0.07\tA, intro,") is not part of Lines, but the
// chord content following it is kept as the first line.
type Section struct {
	RawLabel string  // Lowercase label token, e.g. "chorus-2"
	Variant  string  // Section letter with apostrophes, e.g. "A'"; empty if absent
	Time     float64 // Timestamp of the declaring line
	Lines    []Line
}

// sectionStart is what a section-declaring line breaks down into
type sectionStart struct {
	label   string
	variant string
	time    float64
	rest    string
}

// SegmentSections splits the body of a document into sections in document order.
// Lines before the first section and comment lines belong to no section.
func SegmentSections(text string) ([]Section, error) {
	var sections []Section

	for _, raw := range splitLines(text) {
		if strings.HasPrefix(raw, "#") || strings.TrimSpace(raw) == "" {
			continue
		}

		if start, ok := parseSectionStart(raw); ok {
			sections = append(sections, Section{
				RawLabel: start.label,
				Variant:  start.variant,
				Time:     start.time,
				Lines:    []Line{{Time: start.time, Text: start.rest}},
			})
			continue
		}

		if len(sections) == 0 {
			continue
		}

		current := &sections[len(sections)-1]
		current.Lines = append(current.Lines, parseBodyLine(raw))
	}

	if len(sections) == 0 {
		return nil, ErrEmptyDocument
	}

	return sections, nil
}

// parseSectionStart checks whether a line declares a new section. The
// timestamp field may itself contain tabs, so every tab is tried from the
// last one backwards.
func parseSectionStart(line string) (sectionStart, bool) {
	for tab := strings.LastIndexByte(line, '\t'); tab >= 0; tab = strings.LastIndexByte(line[:tab], '\t') {
		label, variant, rest, ok := matchSectionLabel(line[tab+1:])
		if ok {
			return sectionStart{
				label:   label,
				variant: variant,
				time:    parseTimestamp(line[:tab]),
				rest:    rest,
			}, true
		}
	}
	return sectionStart{}, false
}

// matchSectionLabel matches an optional variant marker (a capital letter,
// primes and a comma) followed by a label of lowercase letters and hyphens
// and a comma.
func matchSectionLabel(body string) (label, variant, rest string, ok bool) {
	i := 0
	if n := matchVariant(body); n > 0 {
		variant = body[:n-2]
		i = n
	}

	j := i
	for j < len(body) && isLabelByte(body[j]) {
		j++
	}

	if j == i || j >= len(body) || body[j] != ',' {
		return "", "", "", false
	}

	return body[i:j], variant, body[j+1:], true
}

// matchVariant returns the length of a leading "X'*, " marker, or 0
func matchVariant(body string) int {
	if len(body) == 0 || body[0] < 'A' || body[0] > 'Z' {
		return 0
	}

	i := 1
	for i < len(body) && body[i] == '\'' {
		i++
	}

	if !strings.HasPrefix(body[i:], ", ") {
		return 0
	}
	return i + 2
}

func isLabelByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || c == '-'
}

// parseBodyLine splits a continuation line at its first tab
func parseBodyLine(raw string) Line {
	tab := strings.IndexByte(raw, '\t')
	if tab < 0 {
		return Line{Time: UnknownTime, Text: raw}
	}
	return Line{Time: parseTimestamp(raw[:tab]), Text: raw[tab+1:]}
}

func parseTimestamp(field string) float64 {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || seconds < 0 {
		return UnknownTime
	}
	return seconds
}
