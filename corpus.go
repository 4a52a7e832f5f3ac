package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultExpectedSongs is the number of song directories in McGill-Billboard 2.0
const DefaultExpectedSongs = 890

// LoadCorpus reads every <root>/<song>/*.txt annotation file, sorted by path
func LoadCorpus(root string) ([]Document, error) {
	paths, err := filepath.Glob(filepath.Join(root, "*", "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("error listing corpus: %w", err)
	}
	sort.Strings(paths)

	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}
		docs = append(docs, Document{Path: path, Text: string(data)})
	}

	return docs, nil
}

// CheckIntegrity reports whether root exists and holds exactly expected entries
func CheckIntegrity(root string, expected int) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	return len(entries) == expected
}

// Fingerprint hashes the paths and contents of the documents in order,
// along with the parse options that shape the encoded sequences
func Fingerprint(docs []Document, opts ParseOptions) string {
	hash := sha256.New()
	fmt.Fprintf(hash, "repeats:%s:%d\n", opts.Repeats.MidLine, opts.Repeats.MaxRepeat)
	for _, doc := range docs {
		fmt.Fprintf(hash, "%d:%s\n%d:", len(doc.Path), doc.Path, len(doc.Text))
		hash.Write([]byte(doc.Text))
	}
	return hex.EncodeToString(hash.Sum(nil))
}
