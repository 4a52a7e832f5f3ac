package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "salami",
		Short: "Chord annotation corpus parser",
		Long: `salami turns chord annotation transcripts into aligned chord and
section label sequences indexed by a corpus-wide vocabulary.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "salami.yaml", "Path to the config file")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(vocabCmd())
	rootCmd.AddCommand(downloadCmd())
	rootCmd.AddCommand(exportMidiCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfigAndOptions() (*Config, BuildOptions, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, BuildOptions{}, fmt.Errorf("failed to load config: %w", err)
	}

	opts, err := cfg.BuildOptions()
	if err != nil {
		return nil, BuildOptions{}, err
	}

	return cfg, opts, nil
}

func parseCmd() *cobra.Command {
	var jsonOutput, printTimeline bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a single annotation file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, opts, err := loadConfigAndOptions()
			if err != nil {
				return err
			}

			song, err := OpenSalamiFile(args[0], opts.Parse)
			if err != nil {
				return err
			}

			for _, warning := range song.Warnings {
				log.Printf("Warning: %s", warning)
			}

			if printTimeline {
				fmt.Printf("Timeline for: %s\n", args[0])
				fmt.Print(song.GetTimeline().String())
				return nil
			}

			return printSongInfo(song, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the parsed song as JSON")
	cmd.Flags().BoolVar(&printTimeline, "timeline", false, "Print the section timeline")
	return cmd
}

func buildCmd() *cobra.Command {
	var strict, noCache bool
	var workers int

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Parse the corpus and build the vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := loadConfigAndOptions()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("strict") {
				opts.Strict = strict
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}
			if noCache {
				cfg.Data.Cache = ""
			}

			ds, err := loadDataset(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}

			printDatasetInfo(ds)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Abort on the first document that fails to parse")
	cmd.Flags().IntVar(&workers, "workers", 0, "Documents parsed in parallel (0 = number of CPUs)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore and don't write the dataset cache")
	return cmd
}

func vocabCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Print the chord and label vocabularies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := loadConfigAndOptions()
			if err != nil {
				return err
			}

			ds, err := loadDataset(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}

			vocab := ds.Vocabulary()
			if jsonOutput {
				output := map[string]interface{}{
					"chords": vocab.Chords(),
					"labels": vocab.Labels(),
				}
				jsonData, err := json.MarshalIndent(output, "", "  ")
				if err != nil {
					return fmt.Errorf("error marshaling to JSON: %w", err)
				}
				fmt.Println(string(jsonData))
				return nil
			}

			fmt.Printf("Labels (%d):\n", len(vocab.Labels()))
			for i, label := range vocab.Labels() {
				fmt.Printf("  %4d %s\n", i, label)
			}
			fmt.Printf("Chords (%d):\n", len(vocab.Chords()))
			for i, chord := range vocab.Chords() {
				fmt.Printf("  %4d %s\n", i, chord)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the vocabularies as JSON")
	return cmd
}

func downloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download and extract the annotation corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if CheckIntegrity(cfg.Data.Root, cfg.Data.ExpectedSongs) {
				fmt.Println("Dataset already downloaded and checked")
				return nil
			}

			fmt.Printf("Downloading %s ...\n", cfg.Data.URL)
			downloader := NewDownloader(DownloadConfig{MaxRetries: 3})
			files, err := downloader.Fetch(cmd.Context(), cfg.Data.URL, filepath.Dir(cfg.Data.Root))
			if err != nil {
				return err
			}
			fmt.Printf("Extracted %d files\n", len(files))

			if !CheckIntegrity(cfg.Data.Root, cfg.Data.ExpectedSongs) {
				return fmt.Errorf("error downloading or extracting data: expected %d songs in %s", cfg.Data.ExpectedSongs, cfg.Data.Root)
			}
			return nil
		},
	}
}

func exportMidiCmd() *cobra.Command {
	var bpm float64
	var program uint8
	var instrument string

	cmd := &cobra.Command{
		Use:   "export-midi <file> <output.mid>",
		Short: "Render an annotation file as a MIDI chord track",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := loadConfigAndOptions()
			if err != nil {
				return err
			}

			exportOpts := cfg.ExportOptions()
			if cmd.Flags().Changed("bpm") {
				exportOpts.BPM = bpm
			}
			if cmd.Flags().Changed("program") {
				exportOpts.Program = program
			}
			if instrument != "" {
				found, ok := lookupGMProgram(instrument)
				if !ok {
					return fmt.Errorf("unknown General MIDI instrument %q", instrument)
				}
				exportOpts.Program = found
			}

			song, err := OpenSalamiFile(args[0], opts.Parse)
			if err != nil {
				return err
			}

			out, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("error creating %s: %w", args[1], err)
			}
			defer out.Close()

			if err := ExportSongMidi(song, out, exportOpts); err != nil {
				return err
			}

			fmt.Printf("Wrote %s (%s)\n", args[1], getGMInstrument(exportOpts.Program))
			return nil
		},
	}

	cmd.Flags().Float64Var(&bpm, "bpm", 120, "Tempo used to place timestamps")
	cmd.Flags().Uint8Var(&program, "program", 0, "General MIDI program of the chord track")
	cmd.Flags().StringVar(&instrument, "instrument", "", "General MIDI instrument name, overrides --program")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Re-parse annotation files whenever they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := loadConfigAndOptions()
			if err != nil {
				return err
			}

			dirs := args
			if len(dirs) == 0 {
				dirs = []string{cfg.Data.Root}
			}

			watcher, err := NewWatcher(opts.Parse, printWatchResult)
			if err != nil {
				return err
			}

			for _, dir := range dirs {
				if err := watcher.AddTree(dir); err != nil {
					watcher.Close()
					return err
				}
			}

			watcher.Start()
			fmt.Printf("Watching %s\n", strings.Join(dirs, ", "))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			<-ctx.Done()

			return watcher.Close()
		},
	}
}

// loadDataset parses the configured corpus, going through the cache when one is set
func loadDataset(ctx context.Context, cfg *Config, opts BuildOptions) (*Dataset, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	docs, err := LoadCorpus(cfg.Data.Root)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no annotation files found in %s, run \"salami download\" first", cfg.Data.Root)
	}

	if cfg.Data.Cache == "" {
		return BuildDataset(ctx, docs, opts)
	}

	cache, err := OpenDatasetCache(cfg.Data.Cache)
	if err != nil {
		return nil, fmt.Errorf("error opening cache: %w", err)
	}
	defer cache.Close()

	fingerprint := Fingerprint(docs, opts.Parse)
	ds, err := cache.Load(ctx, fingerprint)
	if err == nil {
		log.Printf("Loaded %d songs from %s", ds.Len(), cfg.Data.Cache)
		if opts.Strict && len(ds.Failures) > 0 {
			return nil, ds.Failures[0]
		}
		return ds, nil
	}
	if !errors.Is(err, ErrCacheStale) {
		log.Printf("Warning: ignoring cache %s: %v", cfg.Data.Cache, err)
	}

	ds, err = BuildDataset(ctx, docs, opts)
	if err != nil {
		return nil, err
	}

	if err := cache.Save(ctx, fingerprint, ds); err != nil {
		log.Printf("Warning: failed to write cache %s: %v", cfg.Data.Cache, err)
	}

	return ds, nil
}

func printSongInfo(song *Song, jsonOutput bool) error {
	if jsonOutput {
		jsonData, err := json.MarshalIndent(song, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling to JSON: %w", err)
		}
		fmt.Println(string(jsonData))
		return nil
	}

	fmt.Print(song.String())
	fmt.Println()

	metadata := song.GetMetadata()
	if len(metadata) > 0 {
		fmt.Println("Metadata:")
		for key, value := range metadata {
			fmt.Printf("  %s: %s\n", key, value)
		}
		fmt.Println()
	}

	for i, section := range song.Sections {
		fmt.Printf("Section %d: %s\n", i, section.Label)
		fmt.Printf("  Lines: %d\n", len(section.Lines))
		fmt.Printf("  Chords: %s\n", strings.Join(section.Tokens, " "))
	}
	fmt.Println()

	fmt.Printf("Chord sequence (%d): %s\n", len(song.ChordSeq), strings.Join(song.ChordSeq, " "))
	fmt.Printf("Label sequence (%d): %s\n", len(song.LabelSeq), strings.Join(song.LabelSeq, " "))
	return nil
}

func printDatasetInfo(ds *Dataset) {
	vocab := ds.Vocabulary()

	fmt.Printf("Songs loaded: %d\n", ds.Len())
	fmt.Printf("Chord vocabulary: %d\n", len(vocab.Chords()))
	fmt.Printf("Label vocabulary: %d (%s)\n", len(vocab.Labels()), strings.Join(vocab.Labels(), ", "))

	var tokens int
	for _, song := range ds.Songs {
		tokens += len(song.ChordSeq)
	}
	fmt.Printf("Chord tokens: %d\n", tokens)

	if len(ds.Failures) > 0 {
		fmt.Printf("Failed documents: %d\n", len(ds.Failures))
		for _, failure := range ds.Failures {
			fmt.Printf("  %v\n", failure)
		}
	}
}

func printWatchResult(result WatchResult) {
	if result.Err != nil {
		fmt.Printf("%s: %v\n", result.Path, result.Err)
		return
	}

	for _, warning := range result.Song.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
	fmt.Printf("%s: %d sections, %d chords\n", result.Path, len(result.Song.Sections), len(result.Song.ChordSeq))
}
