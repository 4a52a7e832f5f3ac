package main

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Document is the raw text of one annotation file
type Document struct {
	Path string
	Text string
}

// BuildOptions controls how a corpus is turned into a Dataset
type BuildOptions struct {
	Parse   ParseOptions
	Strict  bool // Abort on the first document error instead of skipping it
	Workers int  // Documents parsed concurrently, 0 for GOMAXPROCS
}

// Dataset is a parsed corpus: songs in path order, the corpus vocabulary and
// every song's sequences encoded with it
type Dataset struct {
	Songs    []*Song
	Failures []*DocumentError

	vocab  *Vocabulary
	chords [][]int
	labels [][]int
}

// BuildDataset parses every document and builds the corpus vocabulary once
// all of them are done. Documents are processed in path order regardless of
// the order they are passed in.
func BuildDataset(ctx context.Context, docs []Document, opts BuildOptions) (*Dataset, error) {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	songs := make([]*Song, len(sorted))
	failures := make([]*DocumentError, len(sorted))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, doc := range sorted {
		i, doc := i, doc
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			song, err := ParseSalami(doc.Path, doc.Text, opts.Parse)
			if err != nil {
				failures[i] = &DocumentError{Path: doc.Path, Err: err}
				return nil
			}

			songs[i] = song
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Strict mode reports the first failure in path order, so every worker
	// runs to completion
	if opts.Strict {
		for _, docErr := range failures {
			if docErr != nil {
				return nil, docErr
			}
		}
	}

	var parsed []*Song
	var failed []*DocumentError
	for i := range sorted {
		if failures[i] != nil {
			log.Printf("Warning: skipping %v", failures[i])
			failed = append(failed, failures[i])
			continue
		}
		parsed = append(parsed, songs[i])
	}

	ds, err := NewDataset(parsed, BuildVocabulary(parsed))
	if err != nil {
		return nil, err
	}
	ds.Failures = failed

	return ds, nil
}

// NewDataset encodes songs with an existing vocabulary
func NewDataset(songs []*Song, vocab *Vocabulary) (*Dataset, error) {
	ds := &Dataset{
		Songs:  songs,
		vocab:  vocab,
		chords: make([][]int, len(songs)),
		labels: make([][]int, len(songs)),
	}

	for i, song := range songs {
		chords, err := vocab.EncodeChords(song.ChordSeq)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", song.Header["url"], err)
		}

		labels, err := vocab.EncodeLabels(song.LabelSeq)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", song.Header["url"], err)
		}

		ds.chords[i] = chords
		ds.labels[i] = labels
	}

	return ds, nil
}

// Len returns the number of songs
func (d *Dataset) Len() int {
	return len(d.Songs)
}

// Get returns copies of the encoded chord and label sequences of song i
func (d *Dataset) Get(i int) ([]int, []int, error) {
	if i < 0 || i >= len(d.Songs) {
		return nil, nil, fmt.Errorf("song index %d out of range [0, %d)", i, len(d.Songs))
	}
	chords := append([]int(nil), d.chords[i]...)
	labels := append([]int(nil), d.labels[i]...)
	return chords, labels, nil
}

// Vocabulary returns the corpus vocabulary the sequences are encoded with
func (d *Dataset) Vocabulary() *Vocabulary {
	return d.vocab
}
