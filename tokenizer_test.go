package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		expected []string
	}{
		{"bars", "| A:min | C:maj/3 | F#:7(b9) |", []string{"A:min", "C:maj/3", "F#:7(b9)"}},
		{"special symbols", "| N | * | &pause |", []string{"N", "*", "&pause"}},
		{"trailing repeat", "| Bb:maj | x4", []string{"Bb:maj", "x4"}},
		{"free text", "(guitar riff) ->", nil},
		{"not a root", "| H:maj |", nil},
		{"empty quality", "A: B:", nil},
		{"chord runs to whitespace", "A:min,B:maj", []string{"A:min,B:maj"}},
		{"non-breaking space ends a chord", "A:min\u00a0C:maj", []string{"A:min", "C:maj"}},
		{"repeat after letter", "Xx3", []string{"x3"}},
		{"lone x", "x", nil},
		{"empty", "", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Tokenize(tc.line))
		})
	}
}

func TestIsRepeatMarker(t *testing.T) {
	assert.True(t, IsRepeatMarker("x3"))
	assert.True(t, IsRepeatMarker("x12"))
	assert.True(t, IsRepeatMarker("x0"))
	assert.False(t, IsRepeatMarker("x"))
	assert.False(t, IsRepeatMarker("X3"))
	assert.False(t, IsRepeatMarker("x3a"))
	assert.False(t, IsRepeatMarker("C:maj"))
}
