package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearSalamiEnv unsets the override variables for the duration of a test
func clearSalamiEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"SALAMI_DATA_ROOT", "SALAMI_CACHE", "SALAMI_STRICT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "salami.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	clearSalamiEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data/McGill-Billboard", cfg.Data.Root)
	assert.Equal(t, DefaultCorpusURL, cfg.Data.URL)
	assert.Equal(t, DefaultExpectedSongs, cfg.Data.ExpectedSongs)
	assert.Equal(t, "data/mcgill-billboard.db", cfg.Data.Cache)
	assert.False(t, cfg.Build.Strict)
	assert.Equal(t, DefaultExportOptions(), cfg.ExportOptions())

	opts, err := cfg.BuildOptions()
	require.NoError(t, err)
	assert.Equal(t, RepeatKeep, opts.Parse.Repeats.MidLine)
}

func TestLoadConfigFile(t *testing.T) {
	clearSalamiEnv(t)

	path := writeConfig(t, `
data:
  root: /srv/billboard
  cache: ""
parse:
  mid_line_repeats: drop
  max_repeat: 32
build:
  strict: true
  workers: 4
export:
  bpm: 96
  program: 24
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/billboard", cfg.Data.Root)
	assert.Equal(t, "", cfg.Data.Cache)
	assert.Equal(t, DefaultCorpusURL, cfg.Data.URL)

	opts, err := cfg.BuildOptions()
	require.NoError(t, err)
	assert.Equal(t, BuildOptions{
		Parse:   ParseOptions{Repeats: RepeatOptions{MidLine: RepeatDrop, MaxRepeat: 32}},
		Strict:  true,
		Workers: 4,
	}, opts)

	assert.Equal(t, ExportOptions{BPM: 96, Program: 24, Velocity: 90}, cfg.ExportOptions())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearSalamiEnv(t)

	path := writeConfig(t, "build:\n  strict: true\n")
	t.Setenv("SALAMI_DATA_ROOT", "/tmp/corpus")
	t.Setenv("SALAMI_CACHE", "")
	t.Setenv("SALAMI_STRICT", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/corpus", cfg.Data.Root)
	assert.Equal(t, "", cfg.Data.Cache)
	assert.False(t, cfg.Build.Strict)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		clearSalamiEnv(t)
		_, err := LoadConfig(writeConfig(t, "data: [unclosed\n"))
		assert.Error(t, err)
	})

	t.Run("invalid strict flag", func(t *testing.T) {
		clearSalamiEnv(t)
		t.Setenv("SALAMI_STRICT", "maybe")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "SALAMI_STRICT")
	})

	t.Run("unknown repeat policy", func(t *testing.T) {
		clearSalamiEnv(t)
		cfg, err := LoadConfig(writeConfig(t, "parse:\n  mid_line_repeats: explode\n"))
		require.NoError(t, err)
		_, err = cfg.BuildOptions()
		assert.Error(t, err)
	})
}
