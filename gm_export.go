package main

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// exportTicksPerQuarter is the resolution of exported files
	exportTicksPerQuarter = 480
	// chordBaseKey voices chords from C3
	chordBaseKey = 48
	chordChannel = 0
)

// ExportOptions controls MIDI rendering of a song
type ExportOptions struct {
	BPM      float64 // Tempo used to convert seconds to ticks
	Program  uint8   // GM program of the chord track
	Velocity uint8
}

// DefaultExportOptions renders at 120 BPM on an acoustic grand piano
func DefaultExportOptions() ExportOptions {
	return ExportOptions{BPM: 120, Program: 0, Velocity: 90}
}

// MidiEvent represents a MIDI event with absolute timing
type MidiEvent struct {
	Time    uint32
	Message smf.Message
}

// TrackInfo contains information needed to create a MIDI track
type TrackInfo struct {
	Name    string      // Track name for meta event
	Channel uint8       // MIDI channel
	Program uint8       // GM program number
	Events  []MidiEvent // All MIDI events for this track
}

// GeneralMidiExporter manages the construction of a General MIDI file
type GeneralMidiExporter struct {
	smf    *smf.SMF    // Target MIDI file being built
	tracks []TrackInfo // Accumulated track information
	opts   ExportOptions
}

// NewGeneralMidiExporter creates a new MIDI exporter
func NewGeneralMidiExporter(opts ExportOptions) *GeneralMidiExporter {
	if opts.BPM <= 0 {
		opts.BPM = 120
	}
	if opts.Velocity == 0 {
		opts.Velocity = 90
	}

	e := &GeneralMidiExporter{
		smf:    smf.NewSMF1(),
		tracks: make([]TrackInfo, 0),
		opts:   opts,
	}
	e.smf.TimeFormat = smf.MetricTicks(exportTicksPerQuarter)
	return e
}

// ExportSongMidi renders a song as a two track MIDI file: tempo and chords
func ExportSongMidi(song *Song, writer io.Writer, opts ExportOptions) error {
	exporter := NewGeneralMidiExporter(opts)

	if err := exporter.SetupTimingTrack(song); err != nil {
		return err
	}

	if err := exporter.AddChordTrack(song); err != nil {
		return err
	}

	return exporter.WriteTo(writer)
}

// SetupTimingTrack creates the conductor track from the song header
func (e *GeneralMidiExporter) SetupTimingTrack(song *Song) error {
	if song == nil {
		return fmt.Errorf("song is nil")
	}

	tempoTrack := smf.Track{}

	if title := song.Header["title"]; title != "" {
		tempoTrack = append(tempoTrack, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName(title))})
	}

	tempoTrack = append(tempoTrack, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTempo(e.opts.BPM))})

	numerator, denominator, err := parseMetre(song.Header["metre"])
	if err != nil {
		log.Printf("Warning: %v, using 4/4", err)
		numerator, denominator = 4, 4
	}
	timeSigMsg := smf.Message(smf.MetaTimeSig(numerator, denominator, 24, 8))
	tempoTrack = append(tempoTrack, smf.Event{Delta: 0, Message: timeSigMsg})

	// Always end with End of Track
	tempoTrack = append(tempoTrack, smf.Event{Delta: 0, Message: smf.EOT})

	return e.smf.Add(tempoTrack)
}

// parseMetre reads a "6/8" style metre header. An empty value is 4/4.
func parseMetre(metre string) (uint8, uint8, error) {
	metre = strings.TrimSpace(metre)
	if metre == "" {
		return 4, 4, nil
	}

	parts := strings.SplitN(metre, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid metre %q", metre)
	}

	numerator, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 8)
	if err != nil || numerator == 0 {
		return 0, 0, fmt.Errorf("invalid metre numerator %q", metre)
	}

	denominator, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 8)
	if err != nil || denominator == 0 || denominator&(denominator-1) != 0 {
		return 0, 0, fmt.Errorf("invalid metre denominator %q", metre)
	}

	return uint8(numerator), uint8(denominator), nil
}

// AddChordTrack lays out the song's resolved lines over time and adds them
// as a chord track with a marker at the start of every section
func (e *GeneralMidiExporter) AddChordTrack(song *Song) error {
	if song == nil {
		return fmt.Errorf("song is nil")
	}

	// Line start times in document order, for finding where a line ends
	var lineTimes []float64
	for _, section := range song.Sections {
		for _, line := range section.Lines {
			lineTimes = append(lineTimes, line.Time)
		}
	}

	var events []MidiEvent
	var cursor uint32
	lineIndex := 0

	for _, section := range song.Sections {
		for i, line := range section.Lines {
			start := cursor
			if line.Time >= 0 {
				if ticks := e.secondsToTicks(line.Time); ticks > start {
					start = ticks
				}
			}

			if i == 0 {
				events = append(events, MidiEvent{Time: start, Message: smf.Message(smf.MetaMarker(section.Label))})
			}

			step := uint32(exportTicksPerQuarter)
			if end, ok := nextLineTime(lineTimes, lineIndex); ok && len(line.Tokens) > 0 {
				if endTicks := e.secondsToTicks(end); endTicks > start {
					step = (endTicks - start) / uint32(len(line.Tokens))
					if step == 0 {
						step = 1
					}
				}
			}

			for j, token := range line.Tokens {
				at := start + uint32(j)*step
				events = append(events, e.chordEvents(token, at, at+step)...)
			}

			cursor = start + step*uint32(len(line.Tokens))
			lineIndex++
		}
	}

	if len(events) == 0 {
		return fmt.Errorf("no chords to export")
	}

	return e.addTrack(TrackInfo{
		Name:    "Chords",
		Channel: chordChannel,
		Program: e.opts.Program,
		Events:  events,
	})
}

// chordEvents returns note on/off pairs for one token, nothing for rests
func (e *GeneralMidiExporter) chordEvents(token string, start, end uint32) []MidiEvent {
	if IsRest(token) {
		return nil
	}

	chord, err := ParseChord(token)
	if err != nil {
		log.Printf("Warning: Could not convert token %q: %v", token, err)
		return nil
	}

	var events []MidiEvent
	for _, key := range chord.Notes(chordBaseKey) {
		events = append(events,
			MidiEvent{Time: start, Message: smf.Message(midi.NoteOn(chordChannel, key, e.opts.Velocity))},
			MidiEvent{Time: end, Message: smf.Message(midi.NoteOff(chordChannel, key))},
		)
	}
	return events
}

// nextLineTime finds the first known line time after line i
func nextLineTime(lineTimes []float64, i int) (float64, bool) {
	for _, t := range lineTimes[i+1:] {
		if t >= 0 {
			return t, true
		}
	}
	return 0, false
}

func (e *GeneralMidiExporter) secondsToTicks(seconds float64) uint32 {
	return uint32(seconds * e.opts.BPM / 60.0 * exportTicksPerQuarter)
}

// AddTrack adds a track to the exporter's track list
func (e *GeneralMidiExporter) addTrack(trackInfo TrackInfo) error {
	e.tracks = append(e.tracks, trackInfo)
	log.Printf("Generated %d MIDI events for %s (%s)", len(trackInfo.Events), trackInfo.Name, getGMInstrument(trackInfo.Program))
	return nil
}

// WriteTo finalizes the MIDI file and writes it to the provided writer
func (e *GeneralMidiExporter) WriteTo(writer io.Writer) error {
	if len(e.tracks) == 0 {
		return fmt.Errorf("no tracks to export")
	}

	// Create MIDI tracks from the accumulated track info
	for _, trackInfo := range e.tracks {
		midiTrack := createMidiTrack(trackInfo)
		if err := e.smf.Add(midiTrack); err != nil {
			return fmt.Errorf("error adding track %s: %w", trackInfo.Name, err)
		}
	}

	// Write the complete MIDI file
	_, err := e.smf.WriteTo(writer)
	if err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}

	return nil
}

// createMidiTrack builds a complete MIDI track from TrackInfo
func createMidiTrack(trackInfo TrackInfo) smf.Track {
	track := smf.Track{}

	// Add track name
	trackNameMsg := smf.Message(smf.MetaTrackSequenceName(trackInfo.Name))
	track = append(track, smf.Event{Delta: 0, Message: trackNameMsg})

	programChangeMsg := smf.Message(midi.ProgramChange(trackInfo.Channel, trackInfo.Program))
	track = append(track, smf.Event{Delta: 0, Message: programChangeMsg})

	// Sort events by time
	events := make([]MidiEvent, len(trackInfo.Events))
	copy(events, trackInfo.Events)
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		// Markers first, then note-offs, then note-ons
		return eventRank(events[i].Message) < eventRank(events[j].Message)
	})

	// Add events with proper delta times
	var lastTime uint32
	for _, event := range events {
		delta := event.Time - lastTime
		track = append(track, smf.Event{Delta: delta, Message: event.Message})
		lastTime = event.Time
	}

	// Add end of track
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

func eventRank(msg smf.Message) int {
	var ch, key, vel uint8
	switch {
	case msg.Type() == smf.MetaMarkerMsg:
		return 0
	case msg.GetNoteOff(&ch, &key, &vel):
		return 1
	default:
		return 2
	}
}
