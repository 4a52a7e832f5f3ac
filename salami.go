package main

import (
	"fmt"
	"os"
	"strings"
)

// EOSLabel closes every section run in a label sequence
const EOSLabel = "eos"

// ParseOptions controls how a single document is parsed
type ParseOptions struct {
	Repeats RepeatOptions
}

// ResolvedLine is a body line after tokenizing and repeat expansion
type ResolvedLine struct {
	Time   float64  `json:"time"`
	Tokens []string `json:"tokens"`
}

// NormalizedSection is a section with its canonical label and flat token sequence
type NormalizedSection struct {
	Label  string         `json:"label"`
	Time   float64        `json:"time"`
	Lines  []ResolvedLine `json:"lines"`
	Tokens []string       `json:"tokens"`
}

// Song is one parsed document. ChordSeq and LabelSeq always have the same
// length: each section contributes its tokens to ChordSeq and its label
// repeated len-1 times followed by EOSLabel to LabelSeq.
type Song struct {
	Header   Header              `json:"header"`
	Sections []NormalizedSection `json:"sections"`
	ChordSeq []string            `json:"chordSeq"`
	LabelSeq []string            `json:"labelSeq"`
	Warnings []string            `json:"warnings,omitempty"`
}

// OpenSalamiFile reads and parses a chord annotation file
func OpenSalamiFile(filename string, opts ParseOptions) (*Song, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error opening annotation file: %w", err)
	}

	song, err := ParseSalami(filename, string(data), opts)
	if err != nil {
		return nil, fmt.Errorf("error parsing annotation file: %w", err)
	}

	return song, nil
}

// ParseSalami parses the text of one annotation document. path identifies
// the document and is stored as the "url" header.
func ParseSalami(path, text string, opts ParseOptions) (*Song, error) {
	header, err := ExtractHeader(path, text)
	if err != nil {
		return nil, err
	}

	sections, err := SegmentSections(text)
	if err != nil {
		return nil, err
	}

	song := &Song{Header: header}

	normalized := make([]NormalizedSection, 0, len(sections))
	for _, section := range sections {
		ns, warnings, err := normalizeSection(section, opts)
		for _, warning := range warnings {
			song.Warnings = append(song.Warnings, fmt.Sprintf("%s: section %q: %s", path, section.RawLabel, warning))
		}
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", section.RawLabel, err)
		}
		normalized = append(normalized, ns)
	}

	song.Sections, song.ChordSeq, song.LabelSeq = AssembleSequences(normalized)
	return song, nil
}

// normalizeSection tokenizes every line of a section, drops lines without
// symbols, resolves repeats and flattens the result
func normalizeSection(section Section, opts ParseOptions) (NormalizedSection, []string, error) {
	ns := NormalizedSection{
		Label: NormalizeLabel(section.RawLabel),
		Time:  section.Time,
	}

	var warnings []string
	for _, line := range section.Lines {
		tokens := Tokenize(line.Text)
		if len(tokens) == 0 {
			continue
		}

		resolved, lineWarnings, err := ResolveRepeats(tokens, opts.Repeats)
		warnings = append(warnings, lineWarnings...)
		if err != nil {
			return ns, warnings, err
		}

		ns.Lines = append(ns.Lines, ResolvedLine{Time: line.Time, Tokens: resolved})
		ns.Tokens = append(ns.Tokens, resolved...)
	}

	return ns, warnings, nil
}

// AssembleSequences flattens sections into aligned chord and label sequences.
// Sections with an empty label or no tokens are left out; the retained
// sections are returned alongside the sequences.
func AssembleSequences(sections []NormalizedSection) ([]NormalizedSection, []string, []string) {
	var retained []NormalizedSection
	var chordSeq, labelSeq []string

	for _, section := range sections {
		if section.Label == "" || len(section.Tokens) == 0 {
			continue
		}

		chordSeq = append(chordSeq, section.Tokens...)
		for i := 0; i < len(section.Tokens)-1; i++ {
			labelSeq = append(labelSeq, section.Label)
		}
		labelSeq = append(labelSeq, EOSLabel)

		retained = append(retained, section)
	}

	return retained, chordSeq, labelSeq
}

// GetMetadata returns a copy of the header
func (s *Song) GetMetadata() map[string]string {
	result := make(map[string]string, len(s.Header))
	for k, v := range s.Header {
		result[k] = v
	}
	return result
}

func (s *Song) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Annotation File: %s\n", s.Header["url"]))
	if title := s.Header["title"]; title != "" {
		sb.WriteString(fmt.Sprintf("Title: %s\n", title))
	}
	if artist := s.Header["artist"]; artist != "" {
		sb.WriteString(fmt.Sprintf("Artist: %s\n", artist))
	}
	if metre := s.Header["metre"]; metre != "" {
		sb.WriteString(fmt.Sprintf("Metre: %s\n", metre))
	}
	if tonic := s.Header["tonic"]; tonic != "" {
		sb.WriteString(fmt.Sprintf("Tonic: %s\n", tonic))
	}
	sb.WriteString(fmt.Sprintf("Sections: %d\n", len(s.Sections)))
	sb.WriteString(fmt.Sprintf("Chords: %d\n", len(s.ChordSeq)))

	return sb.String()
}
