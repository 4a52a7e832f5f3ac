package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings read from salami.yaml
type Config struct {
	Data struct {
		Root          string `yaml:"root"`           // Directory holding one folder per song
		URL           string `yaml:"url"`            // Archive downloaded by "salami download"
		ExpectedSongs int    `yaml:"expected_songs"` // Song folders a complete corpus has
		Cache         string `yaml:"cache"`          // SQLite cache file, empty to disable
	} `yaml:"data"`
	Parse struct {
		MidLineRepeats string `yaml:"mid_line_repeats"` // keep, drop or error
		MaxRepeat      int    `yaml:"max_repeat"`
	} `yaml:"parse"`
	Build struct {
		Strict  bool `yaml:"strict"`
		Workers int  `yaml:"workers"`
	} `yaml:"build"`
	Export struct {
		BPM      float64 `yaml:"bpm"`
		Program  uint8   `yaml:"program"`
		Velocity uint8   `yaml:"velocity"`
	} `yaml:"export"`
}

// DefaultConfig returns the settings used when no config file exists
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Data.Root = "data/McGill-Billboard"
	cfg.Data.URL = DefaultCorpusURL
	cfg.Data.ExpectedSongs = DefaultExpectedSongs
	cfg.Data.Cache = "data/mcgill-billboard.db"
	cfg.Parse.MidLineRepeats = RepeatKeep.String()

	export := DefaultExportOptions()
	cfg.Export.BPM = export.BPM
	cfg.Export.Program = export.Program
	cfg.Export.Velocity = export.Velocity
	return cfg
}

// LoadConfig reads a YAML config over the defaults. A missing file is not
// an error. Environment variables, including ones from a .env file,
// override the file.
func LoadConfig(path string) (*Config, error) {
	// Load .env if exists
	_ = godotenv.Load()

	cfg := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
	}

	if root := os.Getenv("SALAMI_DATA_ROOT"); root != "" {
		cfg.Data.Root = root
	}
	if cache, ok := os.LookupEnv("SALAMI_CACHE"); ok {
		cfg.Data.Cache = cache
	}
	if strict := os.Getenv("SALAMI_STRICT"); strict != "" {
		value, err := strconv.ParseBool(strict)
		if err != nil {
			return nil, fmt.Errorf("invalid SALAMI_STRICT %q: %w", strict, err)
		}
		cfg.Build.Strict = value
	}

	return cfg, nil
}

// BuildOptions converts the parse and build settings
func (c *Config) BuildOptions() (BuildOptions, error) {
	policy, err := ParseRepeatPolicy(c.Parse.MidLineRepeats)
	if err != nil {
		return BuildOptions{}, err
	}

	return BuildOptions{
		Parse: ParseOptions{
			Repeats: RepeatOptions{MidLine: policy, MaxRepeat: c.Parse.MaxRepeat},
		},
		Strict:  c.Build.Strict,
		Workers: c.Build.Workers,
	}, nil
}

// ExportOptions converts the export settings
func (c *Config) ExportOptions() ExportOptions {
	return ExportOptions{
		BPM:      c.Export.BPM,
		Program:  c.Export.Program,
		Velocity: c.Export.Velocity,
	}
}
