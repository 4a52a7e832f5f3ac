package main

import (
	"fmt"
	"sort"
)

// Vocabulary maps the chord tokens and section labels of a corpus to
// integer ids. Ids are ranks in lexicographic order. A Vocabulary is
// never modified after it is built.
type Vocabulary struct {
	chords     []string
	labels     []string
	chordIndex map[string]int
	labelIndex map[string]int
}

// BuildVocabulary collects every distinct chord token and label of the songs
func BuildVocabulary(songs []*Song) *Vocabulary {
	chordSet := make(map[string]struct{})
	labelSet := make(map[string]struct{})

	for _, song := range songs {
		for _, chord := range song.ChordSeq {
			chordSet[chord] = struct{}{}
		}
		for _, label := range song.LabelSeq {
			labelSet[label] = struct{}{}
		}
	}

	v := &Vocabulary{
		chords: sortedKeys(chordSet),
		labels: sortedKeys(labelSet),
	}
	v.chordIndex = indexOf(v.chords)
	v.labelIndex = indexOf(v.labels)
	return v
}

// NewVocabulary builds a Vocabulary from token lists, e.g. ones read back
// from a cache. Duplicates are removed and the lists are sorted.
func NewVocabulary(chords, labels []string) *Vocabulary {
	chordSet := make(map[string]struct{}, len(chords))
	for _, chord := range chords {
		chordSet[chord] = struct{}{}
	}
	labelSet := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		labelSet[label] = struct{}{}
	}

	v := &Vocabulary{
		chords: sortedKeys(chordSet),
		labels: sortedKeys(labelSet),
	}
	v.chordIndex = indexOf(v.chords)
	v.labelIndex = indexOf(v.labels)
	return v
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(tokens []string) map[string]int {
	index := make(map[string]int, len(tokens))
	for i, token := range tokens {
		index[token] = i
	}
	return index
}

// Chords returns the sorted chord vocabulary
func (v *Vocabulary) Chords() []string {
	return append([]string(nil), v.chords...)
}

// Labels returns the sorted label vocabulary, including EOSLabel
func (v *Vocabulary) Labels() []string {
	return append([]string(nil), v.labels...)
}

// ChordIndex returns a copy of the chord to id map
func (v *Vocabulary) ChordIndex() map[string]int {
	return copyIndex(v.chordIndex)
}

// LabelIndex returns a copy of the label to id map
func (v *Vocabulary) LabelIndex() map[string]int {
	return copyIndex(v.labelIndex)
}

func copyIndex(index map[string]int) map[string]int {
	result := make(map[string]int, len(index))
	for k, id := range index {
		result[k] = id
	}
	return result
}

// ChordID looks up a single chord token
func (v *Vocabulary) ChordID(chord string) (int, bool) {
	id, ok := v.chordIndex[chord]
	return id, ok
}

// LabelID looks up a single label
func (v *Vocabulary) LabelID(label string) (int, bool) {
	id, ok := v.labelIndex[label]
	return id, ok
}

// EncodeChords maps a chord sequence to ids
func (v *Vocabulary) EncodeChords(seq []string) ([]int, error) {
	return encode(seq, v.chordIndex, "chord")
}

// EncodeLabels maps a label sequence to ids
func (v *Vocabulary) EncodeLabels(seq []string) ([]int, error) {
	return encode(seq, v.labelIndex, "label")
}

func encode(seq []string, index map[string]int, kind string) ([]int, error) {
	ids := make([]int, len(seq))
	for i, token := range seq {
		id, ok := index[token]
		if !ok {
			return nil, &VocabularyConsistencyError{Kind: kind, Token: token}
		}
		ids[i] = id
	}
	return ids, nil
}

// DecodeChords maps chord ids back to tokens
func (v *Vocabulary) DecodeChords(ids []int) ([]string, error) {
	return decode(ids, v.chords, "chord")
}

// DecodeLabels maps label ids back to labels
func (v *Vocabulary) DecodeLabels(ids []int) ([]string, error) {
	return decode(ids, v.labels, "label")
}

func decode(ids []int, tokens []string, kind string) ([]string, error) {
	seq := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(tokens) {
			return nil, &VocabularyConsistencyError{Kind: kind, Token: fmt.Sprintf("#%d", id)}
		}
		seq[i] = tokens[id]
	}
	return seq, nil
}
