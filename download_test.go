package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type archiveEntry struct {
	name    string
	content string
	dir     bool
}

func buildTestArchive(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, entry := range entries {
		header := &tar.Header{Name: entry.name, Mode: 0644, Size: int64(len(entry.content)), Typeflag: tar.TypeReg}
		if entry.dir {
			header = &tar.Header{Name: entry.name, Mode: 0755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tarWriter.WriteHeader(header))
		if !entry.dir {
			_, err := tarWriter.Write([]byte(entry.content))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tarWriter.Close())
	require.NoError(t, gzipWriter.Close())
	return buf.Bytes()
}

func testCorpusArchive(t *testing.T) []byte {
	return buildTestArchive(t, []archiveEntry{
		{name: "McGill-Billboard/", dir: true},
		{name: "McGill-Billboard/0001/", dir: true},
		{name: "McGill-Billboard/0001/salami_chords.txt", content: endToEndData},
		{name: "McGill-Billboard/0003/salami_chords.txt", content: testSalamiData},
	})
}

func TestDownloaderFetch(t *testing.T) {
	archive := testCorpusArchive(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "salami/1.0", r.Header.Get("User-Agent"))
		w.Write(archive)
	}))
	defer server.Close()

	targetDir := t.TempDir()
	downloader := NewDownloader(DownloadConfig{})

	files, err := downloader.Fetch(context.Background(), server.URL, targetDir)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	data, err := os.ReadFile(filepath.Join(targetDir, "McGill-Billboard", "0003", "salami_chords.txt"))
	require.NoError(t, err)
	assert.Equal(t, testSalamiData, string(data))

	assert.True(t, CheckIntegrity(filepath.Join(targetDir, "McGill-Billboard"), 2))

	// The temporary archive is removed
	entries, err := os.ReadDir(targetDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloaderRetriesServerErrors(t *testing.T) {
	archive := testCorpusArchive(t)
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(archive)
	}))
	defer server.Close()

	downloader := NewDownloader(DownloadConfig{MaxRetries: 3, RetryBaseDelay: time.Millisecond})
	files, err := downloader.Fetch(context.Background(), server.URL, t.TempDir())
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestDownloaderClientErrorNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	downloader := NewDownloader(DownloadConfig{MaxRetries: 3, RetryBaseDelay: time.Millisecond})
	_, err := downloader.Fetch(context.Background(), server.URL, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestExtractTarGZRejectsEscapingPaths(t *testing.T) {
	archive := buildTestArchive(t, []archiveEntry{
		{name: "ok/file.txt", content: "fine"},
		{name: "../evil.txt", content: "nope"},
	})

	targetDir := t.TempDir()
	extracted, err := ExtractTarGZ(bytes.NewReader(archive), targetDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes target directory")
	assert.Len(t, extracted, 1)

	_, err = os.Stat(filepath.Join(filepath.Dir(targetDir), "evil.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractTarGZInvalidArchive(t *testing.T) {
	_, err := ExtractTarGZ(bytes.NewReader([]byte("not gzip")), t.TempDir())
	assert.Error(t, err)
}
