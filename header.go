package main

import (
	"strings"
)

// Header holds the "# key: value" metadata lines of a document.
// The url key is always set to the document path.
type Header map[string]string

// ExtractHeader collects every comment line of the document into a Header.
// Duplicate keys overwrite earlier ones.
func ExtractHeader(path, text string) (Header, error) {
	header := make(Header)

	for i, line := range splitLines(text) {
		if !strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(strings.TrimLeft(line, "# "), ":", 2)
		if len(parts) != 2 {
			return nil, &HeaderFormatError{Line: i + 1, Text: line}
		}

		header[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	header["url"] = path
	return header, nil
}

// splitLines splits on "\n" and drops a trailing "\r" from each line
func splitLines(text string) []string {
	// Handle BOM if present
	text = strings.TrimPrefix(text, "\ufeff")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
