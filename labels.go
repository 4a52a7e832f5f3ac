package main

import "strings"

// labelPrefixes collapse numbered and suffixed variants, e.g. "chorus2" -> "chorus"
var labelPrefixes = []string{"trans", "verse", "chorus", "prechorus", "intro", "instrumental", "spoken"}

// NormalizeLabel canonicalizes a raw section label. An empty result means
// the section is discarded.
func NormalizeLabel(raw string) string {
	label := strings.ReplaceAll(raw, "-", "")
	label = strings.ReplaceAll(label, " ", "")

	for _, prefix := range labelPrefixes {
		if strings.HasPrefix(label, prefix) {
			label = prefix
		}
	}

	if label == "modulation" {
		label = "keychange"
	}

	return label
}
