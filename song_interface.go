package main

// SequenceDataset is random access to the encoded songs of a corpus
type SequenceDataset interface {
	Len() int
	Get(i int) (chords []int, labels []int, err error)
}

// SongInterface defines what commands need from a parsed song
type SongInterface interface {
	GetTimeline() *SongTimeline
	GetMetadata() map[string]string
}

var (
	_ SequenceDataset = (*Dataset)(nil)
	_ SongInterface   = (*Song)(nil)
)
