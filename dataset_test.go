package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocuments() []Document {
	return []Document{
		{Path: "data/0003/salami_chords.txt", Text: testSalamiData},
		{Path: "data/0001/salami_chords.txt", Text: endToEndData},
		{Path: "data/0002/salami_chords.txt", Text: "0.0\tverse, | D:min | G:7 |\n1.0\tmodulation, | E:maj | A:maj |\n"},
	}
}

func TestBuildDataset(t *testing.T) {
	ds, err := BuildDataset(context.Background(), testDocuments(), BuildOptions{})
	require.NoError(t, err)

	require.Equal(t, 3, ds.Len())
	assert.Empty(t, ds.Failures)

	// Songs come out in path order
	assert.Equal(t, "data/0001/salami_chords.txt", ds.Songs[0].Header["url"])
	assert.Equal(t, "data/0002/salami_chords.txt", ds.Songs[1].Header["url"])
	assert.Equal(t, "data/0003/salami_chords.txt", ds.Songs[2].Header["url"])

	assert.Contains(t, ds.Vocabulary().Labels(), "keychange")

	chords, labels, err := ds.Get(0)
	require.NoError(t, err)
	assert.Len(t, chords, 5)
	assert.Len(t, labels, 5)

	vocab := ds.Vocabulary()
	decoded, err := vocab.DecodeLabels(labels)
	require.NoError(t, err)
	assert.Equal(t, []string{"verse", "verse", "verse", "eos", "eos"}, decoded)

	for i := 0; i < ds.Len(); i++ {
		chords, labels, err := ds.Get(i)
		require.NoError(t, err)
		assert.Equal(t, len(chords), len(labels))
	}
}

func TestBuildDatasetDeterministic(t *testing.T) {
	docs := testDocuments()
	reversed := []Document{docs[2], docs[1], docs[0]}

	first, err := BuildDataset(context.Background(), docs, BuildOptions{Workers: 1})
	require.NoError(t, err)
	second, err := BuildDataset(context.Background(), reversed, BuildOptions{Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, first.Vocabulary().ChordIndex(), second.Vocabulary().ChordIndex())
	assert.Equal(t, first.Vocabulary().LabelIndex(), second.Vocabulary().LabelIndex())

	require.Equal(t, first.Len(), second.Len())
	for i := 0; i < first.Len(); i++ {
		c1, l1, err := first.Get(i)
		require.NoError(t, err)
		c2, l2, err := second.Get(i)
		require.NoError(t, err)
		assert.Equal(t, c1, c2)
		assert.Equal(t, l1, l2)
	}
}

func TestBuildDatasetFailures(t *testing.T) {
	docs := append(testDocuments(),
		Document{Path: "data/0004/salami_chords.txt", Text: "# title: Nothing\n0.0\tsilence\n"},
		Document{Path: "data/0005/salami_chords.txt", Text: "# broken\n0.0\tverse, C:maj\n"},
	)

	t.Run("skip", func(t *testing.T) {
		ds, err := BuildDataset(context.Background(), docs, BuildOptions{})
		require.NoError(t, err)

		assert.Equal(t, 3, ds.Len())
		require.Len(t, ds.Failures, 2)
		assert.Equal(t, "data/0004/salami_chords.txt", ds.Failures[0].Path)
		assert.ErrorIs(t, ds.Failures[0], ErrEmptyDocument)
		assert.Equal(t, "data/0005/salami_chords.txt", ds.Failures[1].Path)
	})

	t.Run("strict", func(t *testing.T) {
		for _, workers := range []int{1, 2, 8} {
			for run := 0; run < 20; run++ {
				_, err := BuildDataset(context.Background(), docs, BuildOptions{Strict: true, Workers: workers})
				require.Error(t, err)

				var docErr *DocumentError
				require.ErrorAs(t, err, &docErr)
				assert.Equal(t, "data/0004/salami_chords.txt", docErr.Path, "workers %d", workers)
			}
		}
	})
}

func TestBuildDatasetRunawayRepeat(t *testing.T) {
	docs := append(testDocuments(),
		Document{Path: "data/0004/salami_chords.txt", Text: "0.0\tverse, A:maj B:min x9223372036854775807\n"},
	)

	ds, err := BuildDataset(context.Background(), docs, BuildOptions{Workers: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	require.Len(t, ds.Failures, 1)
	assert.Equal(t, "data/0004/salami_chords.txt", ds.Failures[0].Path)

	var markerErr *RepeatMarkerError
	require.ErrorAs(t, ds.Failures[0], &markerErr)
	assert.Equal(t, "x9223372036854775807", markerErr.Marker)
}

func TestDatasetGetReturnsCopies(t *testing.T) {
	ds, err := BuildDataset(context.Background(), testDocuments(), BuildOptions{})
	require.NoError(t, err)

	chords, labels, err := ds.Get(0)
	require.NoError(t, err)
	wantChords := append([]int(nil), chords...)
	wantLabels := append([]int(nil), labels...)

	for i := range chords {
		chords[i] = -1
	}
	for i := range labels {
		labels[i] = -1
	}

	chords, labels, err = ds.Get(0)
	require.NoError(t, err)
	assert.Equal(t, wantChords, chords)
	assert.Equal(t, wantLabels, labels)
}

func TestBuildDatasetCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildDataset(ctx, testDocuments(), BuildOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDatasetGetOutOfRange(t *testing.T) {
	ds, err := BuildDataset(context.Background(), testDocuments(), BuildOptions{})
	require.NoError(t, err)

	_, _, err = ds.Get(-1)
	assert.Error(t, err)
	_, _, err = ds.Get(ds.Len())
	assert.Error(t, err)
}

func TestBuildDatasetEmpty(t *testing.T) {
	ds, err := BuildDataset(context.Background(), nil, BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, ds.Len())
	assert.Empty(t, ds.Vocabulary().Chords())
}
