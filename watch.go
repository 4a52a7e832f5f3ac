package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/fsnotify.v1"
)

// WatchResult is the outcome of re-parsing a changed document
type WatchResult struct {
	Path string
	Song *Song
	Err  error
}

// Watcher re-parses annotation files as they are edited
type Watcher struct {
	watcher  *fsnotify.Watcher
	opts     ParseOptions
	onResult func(WatchResult)
	stopChan chan struct{}
	done     chan struct{}
	started  bool

	closeOnce sync.Once
	closeErr  error
}

// NewWatcher creates a watcher that reports every re-parse to onResult
func NewWatcher(opts ParseOptions, onResult func(WatchResult)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	return &Watcher{
		watcher:  watcher,
		opts:     opts,
		onResult: onResult,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// AddTree watches dir and its immediate subdirectories, matching the
// <root>/<song>/*.txt corpus layout
func (w *Watcher) AddTree(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		if err := w.watcher.Add(sub); err != nil {
			return fmt.Errorf("watching directory %s: %w", sub, err)
		}
	}

	return nil
}

// Start runs the event loop in the background until Close is called
func (w *Watcher) Start() {
	w.started = true
	go w.watchLoop()
}

// Close stops the event loop and releases the watcher. Calls after the
// first return the same result.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.stopChan)
		w.closeErr = w.watcher.Close()
		if w.started {
			<-w.done
		}
	})
	return w.closeErr
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !strings.HasSuffix(event.Name, ".txt") {
				continue
			}

			if event.Op&fsnotify.Create == fsnotify.Create || event.Op&fsnotify.Write == fsnotify.Write {
				w.onResult(w.Reparse(event.Name))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: watch error: %v", err)
		}
	}
}

// Reparse reads and parses one document
func (w *Watcher) Reparse(path string) WatchResult {
	song, err := OpenSalamiFile(path, w.opts)
	return WatchResult{Path: path, Song: song, Err: err}
}
