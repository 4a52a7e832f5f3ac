package main

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	silenceToken = "N"
	pauseToken   = "&pause"
	holdToken    = "*"
)

// Tokenize extracts the chord symbols of a line in left-to-right order.
// Recognized symbols are chords ("A:min", "F#:7(b9)"), "*", "&pause",
// repeat markers ("x4") and "N". Anything else is skipped.
func Tokenize(line string) []string {
	var tokens []string

	for i := 0; i < len(line); {
		n := matchSymbol(line[i:])
		if n == 0 {
			i++
			continue
		}

		tokens = append(tokens, line[i:i+n])
		i += n
	}

	return tokens
}

// matchSymbol returns the length of the symbol at the start of s, or 0.
// Alternatives are tried in a fixed order and the first match wins.
func matchSymbol(s string) int {
	if n := matchChord(s); n > 0 {
		return n
	}

	switch {
	case strings.HasPrefix(s, holdToken):
		return len(holdToken)
	case strings.HasPrefix(s, pauseToken):
		return len(pauseToken)
	}

	if n := matchRepeatMarker(s); n > 0 {
		return n
	}

	if strings.HasPrefix(s, silenceToken) {
		return len(silenceToken)
	}

	return 0
}

// matchChord matches a root A-G, an optional '#' or 'b', a ':' and a
// non-empty run of non-whitespace characters.
func matchChord(s string) int {
	if len(s) == 0 || s[0] < 'A' || s[0] > 'G' {
		return 0
	}

	i := 1
	if i < len(s) && (s[i] == '#' || s[i] == 'b') {
		i++
	}

	if i >= len(s) || s[i] != ':' {
		return 0
	}
	i++

	start := i
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			break
		}
		i += size
	}

	if i == start {
		return 0
	}
	return i
}

// matchRepeatMarker matches 'x' followed by one or more digits
func matchRepeatMarker(s string) int {
	if len(s) < 2 || s[0] != 'x' {
		return 0
	}

	i := 1
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}

	if i == 1 {
		return 0
	}
	return i
}

// IsRepeatMarker reports whether a token is a whole repeat marker like "x3"
func IsRepeatMarker(token string) bool {
	return len(token) > 1 && matchRepeatMarker(token) == len(token)
}
