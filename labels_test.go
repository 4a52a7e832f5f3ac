package main

import "testing"

func TestNormalizeLabel(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
	}{
		{"chorus-2", "chorus"},
		{"verse", "verse"},
		{"modulation", "keychange"},
		{"outro", "outro"},
		{"chorusa", "chorus"},
		{"verse two", "verse"},
		{"pre-chorus", "prechorus"},
		{"prechorus-b", "prechorus"},
		{"intro-a", "intro"},
		{"instrumental-break", "instrumental"},
		{"transition", "trans"},
		{"spoken-verse", "spoken"},
		{"fade-out", "fadeout"},
		{"-", ""},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := NormalizeLabel(tc.raw); got != tc.expected {
				t.Errorf("NormalizeLabel(%q) = %q, expected %q", tc.raw, got, tc.expected)
			}
		})
	}
}
