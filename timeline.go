package main

import (
	"fmt"
)

// SectionSpan is the time range covered by one retained section
type SectionSpan struct {
	Label  string
	Start  float64 // Seconds, UnknownTime if the declaring line had no timestamp
	End    float64 // Start of the next section, or the last line time of this one
	Chords int     // Number of chord tokens the section contributed
}

// SongTimeline represents the section layout of a song over time
type SongTimeline struct {
	Sections []SectionSpan
}

// GetTimeline builds the section timeline from the retained sections
func (s *Song) GetTimeline() *SongTimeline {
	timeline := &SongTimeline{}

	for i, section := range s.Sections {
		span := SectionSpan{
			Label:  section.Label,
			Start:  section.Time,
			End:    UnknownTime,
			Chords: len(section.Tokens),
		}

		if i+1 < len(s.Sections) && s.Sections[i+1].Time >= 0 {
			span.End = s.Sections[i+1].Time
		} else {
			// Last section, or the next one has no timestamp
			for _, line := range section.Lines {
				if line.Time > span.End {
					span.End = line.Time
				}
			}
		}

		timeline.Sections = append(timeline.Sections, span)
	}

	return timeline
}

// GetSectionAtTime finds the section that contains the given time in seconds
func (t *SongTimeline) GetSectionAtTime(seconds float64) *SectionSpan {
	for i := range t.Sections {
		if seconds >= t.Sections[i].Start && seconds < t.Sections[i].End {
			return &t.Sections[i]
		}
	}
	return nil
}

// GetTotalDuration returns the end of the last timed section in seconds
func (t *SongTimeline) GetTotalDuration() float64 {
	var total float64
	for _, span := range t.Sections {
		if span.End > total {
			total = span.End
		}
	}
	return total
}

// String returns a string representation of the timeline
func (t *SongTimeline) String() string {
	result := fmt.Sprintf("Timeline: %d sections, %.2f seconds\n", len(t.Sections), t.GetTotalDuration())

	for i, span := range t.Sections {
		result += fmt.Sprintf("Section %d: %s, %s-%s, %d chords\n",
			i+1,
			span.Label,
			formatSeconds(span.Start),
			formatSeconds(span.End),
			span.Chords,
		)
	}

	return result
}

func formatSeconds(seconds float64) string {
	if seconds < 0 {
		return "?"
	}
	return fmt.Sprintf("%.3fs", seconds)
}
