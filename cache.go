package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DatasetCache persists a parsed Dataset in a SQLite file so the corpus
// doesn't have to be parsed on every run
type DatasetCache struct {
	db *sql.DB
}

// OpenDatasetCache creates or opens a cache database
func OpenDatasetCache(path string) (*DatasetCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	c := &DatasetCache{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return c, nil
}

func (c *DatasetCache) Close() error {
	return c.db.Close()
}

func (c *DatasetCache) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS vocab (
			kind TEXT NOT NULL,
			idx INTEGER NOT NULL,
			token TEXT NOT NULL,
			PRIMARY KEY (kind, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS songs (
			idx INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			header JSON NOT NULL,
			sections JSON NOT NULL,
			warnings JSON NOT NULL,
			chords JSON NOT NULL,
			labels JSON NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS failures (
			path TEXT PRIMARY KEY,
			error TEXT NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := c.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Save replaces the cached dataset. fingerprint identifies the documents it
// was built from, see Fingerprint.
func (c *DatasetCache) Save(ctx context.Context, fingerprint string, ds *Dataset) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"meta", "vocab", "songs", "failures"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('fingerprint', ?)`, fingerprint); err != nil {
		return err
	}

	vocabStmt, err := tx.PrepareContext(ctx, `INSERT INTO vocab (kind, idx, token) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer vocabStmt.Close()

	vocab := ds.Vocabulary()
	for i, chord := range vocab.Chords() {
		if _, err := vocabStmt.ExecContext(ctx, "chord", i, chord); err != nil {
			return err
		}
	}
	for i, label := range vocab.Labels() {
		if _, err := vocabStmt.ExecContext(ctx, "label", i, label); err != nil {
			return err
		}
	}

	songStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO songs (idx, path, header, sections, warnings, chords, labels)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer songStmt.Close()

	for i, song := range ds.Songs {
		chords, labels, err := ds.Get(i)
		if err != nil {
			return err
		}

		values, err := marshalAll(song.Header, song.Sections, song.Warnings, chords, labels)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", song.Header["url"], err)
		}

		args := append([]any{i, song.Header["url"]}, values...)
		if _, err := songStmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}

	for _, failure := range ds.Failures {
		if _, err := tx.ExecContext(ctx, `INSERT INTO failures (path, error) VALUES (?, ?)`, failure.Path, failure.Err.Error()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func marshalAll(values ...any) ([]any, error) {
	result := make([]any, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		result[i] = string(data)
	}
	return result, nil
}

// Load reads the cached dataset. Returns ErrCacheStale when the cache is
// empty or was built from documents with a different fingerprint.
func (c *DatasetCache) Load(ctx context.Context, fingerprint string) (*Dataset, error) {
	var cached string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'fingerprint'`).Scan(&cached)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && cached != fingerprint) {
		return nil, ErrCacheStale
	}
	if err != nil {
		return nil, err
	}

	chords, err := c.loadVocab(ctx, "chord")
	if err != nil {
		return nil, err
	}
	labels, err := c.loadVocab(ctx, "label")
	if err != nil {
		return nil, err
	}
	vocab := NewVocabulary(chords, labels)

	rows, err := c.db.QueryContext(ctx, `SELECT header, sections, warnings, chords, labels FROM songs ORDER BY idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []*Song
	for rows.Next() {
		var headerJSON, sectionsJSON, warningsJSON, chordsJSON, labelsJSON string
		if err := rows.Scan(&headerJSON, &sectionsJSON, &warningsJSON, &chordsJSON, &labelsJSON); err != nil {
			return nil, err
		}

		song, err := decodeSong(vocab, headerJSON, sectionsJSON, warningsJSON, chordsJSON, labelsJSON)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ds, err := NewDataset(songs, vocab)
	if err != nil {
		return nil, err
	}

	ds.Failures, err = c.loadFailures(ctx)
	if err != nil {
		return nil, err
	}

	return ds, nil
}

func (c *DatasetCache) loadVocab(ctx context.Context, kind string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT token FROM vocab WHERE kind = ? ORDER BY idx`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (c *DatasetCache) loadFailures(ctx context.Context) ([]*DocumentError, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT path, error FROM failures ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []*DocumentError
	for rows.Next() {
		var path, message string
		if err := rows.Scan(&path, &message); err != nil {
			return nil, err
		}
		failures = append(failures, &DocumentError{Path: path, Err: errors.New(message)})
	}
	return failures, rows.Err()
}

func decodeSong(vocab *Vocabulary, headerJSON, sectionsJSON, warningsJSON, chordsJSON, labelsJSON string) (*Song, error) {
	song := &Song{}
	var chordIDs, labelIDs []int

	for _, field := range []struct {
		data   string
		target any
	}{
		{headerJSON, &song.Header},
		{sectionsJSON, &song.Sections},
		{warningsJSON, &song.Warnings},
		{chordsJSON, &chordIDs},
		{labelsJSON, &labelIDs},
	} {
		if err := json.Unmarshal([]byte(field.data), field.target); err != nil {
			return nil, fmt.Errorf("corrupt cache row: %w", err)
		}
	}

	var err error
	if song.ChordSeq, err = vocab.DecodeChords(chordIDs); err != nil {
		return nil, err
	}
	if song.LabelSeq, err = vocab.DecodeLabels(labelIDs); err != nil {
		return nil, err
	}

	return song, nil
}
