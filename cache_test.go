package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetCache_SaveLoad(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenDatasetCache(dbPath)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	docs := append(testDocuments(), Document{Path: "data/0004/salami_chords.txt", Text: "# broken\n"})

	original, err := BuildDataset(ctx, docs, BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, Fingerprint(docs, ParseOptions{}), original))

	loaded, err := cache.Load(ctx, Fingerprint(docs, ParseOptions{}))
	require.NoError(t, err)

	assert.Equal(t, original.Vocabulary().Chords(), loaded.Vocabulary().Chords())
	assert.Equal(t, original.Vocabulary().Labels(), loaded.Vocabulary().Labels())

	require.Equal(t, original.Len(), loaded.Len())
	for i := 0; i < original.Len(); i++ {
		assert.Equal(t, original.Songs[i], loaded.Songs[i])

		c1, l1, err := original.Get(i)
		require.NoError(t, err)
		c2, l2, err := loaded.Get(i)
		require.NoError(t, err)
		assert.Equal(t, c1, c2)
		assert.Equal(t, l1, l2)
	}

	require.Len(t, loaded.Failures, 1)
	assert.Equal(t, "data/0004/salami_chords.txt", loaded.Failures[0].Path)
	assert.Equal(t, original.Failures[0].Err.Error(), loaded.Failures[0].Err.Error())
}

func TestDatasetCache_Stale(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenDatasetCache(dbPath)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	_, err = cache.Load(ctx, "anything")
	assert.ErrorIs(t, err, ErrCacheStale)

	docs := testDocuments()
	ds, err := BuildDataset(ctx, docs, BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, Fingerprint(docs, ParseOptions{}), ds))

	docs[0].Text += "\n1000.0\t| E:min |\n"
	_, err = cache.Load(ctx, Fingerprint(docs, ParseOptions{}))
	assert.ErrorIs(t, err, ErrCacheStale)
}

func TestDatasetCache_SaveReplaces(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenDatasetCache(dbPath)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	docs := testDocuments()

	full, err := BuildDataset(ctx, docs, BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, "full", full))

	single, err := BuildDataset(ctx, docs[1:2], BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, "single", single))

	loaded, err := cache.Load(ctx, "single")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
	assert.Equal(t, single.Vocabulary().Chords(), loaded.Vocabulary().Chords())

	_, err = cache.Load(ctx, "full")
	assert.ErrorIs(t, err, ErrCacheStale)
}
