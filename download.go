package main

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCorpusURL is the McGill-Billboard 2.0 chord annotation archive
const DefaultCorpusURL = "https://www.dropbox.com/s/2lvny9ves8kns4o/billboard-2.0-salami_chords.tar.gz?dl=1"

// DownloadConfig holds settings for fetching the corpus archive
type DownloadConfig struct {
	HTTPClient     *http.Client
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	UserAgent      string
}

// Downloader fetches and unpacks the corpus archive
type Downloader struct {
	config     DownloadConfig
	httpClient *http.Client
}

// NewDownloader creates a Downloader with the given config
func NewDownloader(config DownloadConfig) *Downloader {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Minute
	}
	if config.UserAgent == "" {
		config.UserAgent = "salami/1.0"
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Downloader{config: config, httpClient: httpClient}
}

// Fetch downloads the tar.gz archive at url and extracts it into targetDir.
// Returns the extracted file paths.
func (d *Downloader) Fetch(ctx context.Context, url string, targetDir string) ([]string, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", targetDir, err)
	}

	archive, err := os.CreateTemp(targetDir, "download-*.tar.gz")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(archive.Name())
	defer archive.Close()

	maxRetries := d.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	retryDelay := d.config.RetryBaseDelay
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}

	var size int64
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}

			if err := resetFile(archive); err != nil {
				return nil, err
			}
		}

		size, lastErr = d.downloadAttempt(ctx, url, archive)
		if lastErr == nil {
			break
		}

		var statusErr *httpStatusError
		if errors.As(lastErr, &statusErr) && statusErr.StatusCode < 500 {
			return nil, lastErr
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
	}

	log.Printf("Downloaded %d bytes from %s", size, url)

	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	return ExtractTarGZ(archive, targetDir)
}

type httpStatusError struct {
	StatusCode int
	URL        string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

func (d *Downloader) downloadAttempt(ctx context.Context, url string, out io.Writer) (int64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", d.config.UserAgent)

	response, err := d.httpClient.Do(request)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		return 0, &httpStatusError{StatusCode: response.StatusCode, URL: url}
	}

	return io.Copy(out, response.Body)
}

func resetFile(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	_, err := file.Seek(0, io.SeekStart)
	return err
}

// ExtractTarGZ extracts a gzipped tar stream into targetDir. Entries that
// would land outside targetDir are rejected.
func ExtractTarGZ(reader io.Reader, targetDir string) ([]string, error) {
	gzipReader, err := gzip.NewReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	root, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, err
	}

	var extracted []string
	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return extracted, fmt.Errorf("failed to read archive: %w", err)
		}

		destination := filepath.Join(root, header.Name)
		if destination != root && !strings.HasPrefix(destination, root+string(os.PathSeparator)) {
			return extracted, fmt.Errorf("archive entry escapes target directory: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destination, 0755); err != nil {
				return extracted, err
			}
		case tar.TypeReg:
			if err := writeArchiveFile(tarReader, destination); err != nil {
				return extracted, err
			}
			extracted = append(extracted, destination)
		}
	}

	return extracted, nil
}

func writeArchiveFile(reader io.Reader, destination string) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return err
	}

	file, err := os.Create(destination)
	if err != nil {
		return err
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return fmt.Errorf("failed to extract %s: %w", destination, err)
	}

	return file.Close()
}
