package main

import (
	"fmt"
	"strings"
)

// Chord is a chord token broken into pitch information
type Chord struct {
	Root      uint8 // Pitch class, C = 0
	Quality   string
	Intervals []int // Semitones above the root
	Bass      int   // Semitones above the root, only meaningful with HasBass
	HasBass   bool
}

var pitchClasses = map[byte]uint8{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// Shorthand qualities of the chord annotation syntax
var chordQualities = map[string][]int{
	"maj":     {0, 4, 7},
	"min":     {0, 3, 7},
	"dim":     {0, 3, 6},
	"aug":     {0, 4, 8},
	"maj7":    {0, 4, 7, 11},
	"min7":    {0, 3, 7, 10},
	"7":       {0, 4, 7, 10},
	"dim7":    {0, 3, 6, 9},
	"hdim7":   {0, 3, 6, 10},
	"minmaj7": {0, 3, 7, 11},
	"maj6":    {0, 4, 7, 9},
	"min6":    {0, 3, 7, 9},
	"9":       {0, 4, 7, 10, 14},
	"maj9":    {0, 4, 7, 11, 14},
	"min9":    {0, 3, 7, 10, 14},
	"sus2":    {0, 2, 7},
	"sus4":    {0, 5, 7},
	"5":       {0, 7},
	"1":       {0},
	"11":      {0, 4, 7, 10, 14, 17},
	"13":      {0, 4, 7, 10, 14, 21},
}

// Semitones of scale degrees used in bass intervals like "/b3"
var degreeSemitones = map[string]int{
	"1": 0, "2": 2, "3": 4, "4": 5, "5": 7, "6": 9, "7": 11,
	"9": 14, "11": 17, "13": 21,
}

// IsRest reports whether a token carries no pitches: no-chord, holds,
// pauses and unresolved repeat markers
func IsRest(token string) bool {
	return token == silenceToken || token == holdToken || token == pauseToken || IsRepeatMarker(token)
}

// ParseChord parses a chord token like "A:min7", "F#:maj/3" or "Bb:7(#9)".
// Unknown qualities fall back to a minor triad when they start with "min"
// and a major triad otherwise.
func ParseChord(token string) (*Chord, error) {
	if matchChord(token) != len(token) {
		return nil, fmt.Errorf("not a chord: %q", token)
	}

	root := pitchClasses[token[0]]
	rest := token[1:]
	switch rest[0] {
	case '#':
		root = (root + 1) % 12
		rest = rest[1:]
	case 'b':
		root = (root + 11) % 12
		rest = rest[1:]
	}
	rest = rest[1:] // ':'

	chord := &Chord{Root: root}

	if slash := strings.LastIndexByte(rest, '/'); slash >= 0 {
		if bass, ok := parseDegree(rest[slash+1:]); ok {
			chord.Bass = bass
			chord.HasBass = true
		}
		rest = rest[:slash]
	}

	quality := rest
	if paren := strings.IndexByte(quality, '('); paren >= 0 {
		quality = quality[:paren]
	}
	chord.Quality = quality

	intervals, ok := chordQualities[quality]
	if !ok {
		if strings.HasPrefix(quality, "min") {
			intervals = chordQualities["min"]
		} else {
			intervals = chordQualities["maj"]
		}
	}
	chord.Intervals = intervals

	return chord, nil
}

// parseDegree converts "3", "b7" or "#4" into semitones
func parseDegree(degree string) (int, bool) {
	offset := 0
	for len(degree) > 0 && (degree[0] == 'b' || degree[0] == '#') {
		if degree[0] == 'b' {
			offset--
		} else {
			offset++
		}
		degree = degree[1:]
	}

	semitones, ok := degreeSemitones[degree]
	if !ok {
		return 0, false
	}
	return semitones + offset, true
}

// Notes returns MIDI keys for the chord voiced from the given base key,
// with the bass note an octave below when present
func (c *Chord) Notes(baseKey uint8) []uint8 {
	var notes []uint8

	root := int(baseKey) + int(c.Root)
	if c.HasBass {
		bass := root - 12 + c.Bass
		for bass >= root {
			bass -= 12
		}
		notes = append(notes, clampKey(bass))
	}

	for _, interval := range c.Intervals {
		notes = append(notes, clampKey(root+interval))
	}

	return notes
}

func clampKey(key int) uint8 {
	for key < 0 {
		key += 12
	}
	for key > 127 {
		key -= 12
	}
	return uint8(key)
}

func (c *Chord) String() string {
	names := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	return fmt.Sprintf("%s:%s", names[c.Root], c.Quality)
}
