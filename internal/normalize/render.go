// Package normalize turns raw caption and chat fragments into clean, ordered
// transcript text. Captions arrive as a growing prefix of the final sentence;
// grouping contiguous same-speaker runs and keeping only the final fragment
// yields the complete sentence without duplicate partials.
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Anvita004/transcriptpro/internal/domain/entities"
)

const (
	// Display timestamps: month/day/year 12-hour, locale independent.
	displayTimeLayout = "01/02/2006, 03:04 PM"
	// Filename timestamps: second precision, 24-hour, no filesystem-hostile
	// separators.
	fileTimeLayout = "01-02-2006, 15-04-05"
)

// FormatDisplayTime renders a unix-millisecond timestamp for transcript
// headers and the simple webhook body.
func FormatDisplayTime(ms int64) string {
	return strings.ToUpper(time.UnixMilli(ms).Format(displayTimeLayout))
}

// FormatFileTime renders a unix-millisecond timestamp for transcript
// filenames.
func FormatFileTime(ms int64) string {
	return time.UnixMilli(ms).Format(fileTimeLayout)
}

type speakerGroup struct {
	speakerName string
	startTimeMs int64
	messages    []string
}

// RenderTranscript renders transcript entries as speaker blocks. Entries are
// stably sorted by capture time, partitioned into contiguous same-speaker
// groups, and each group collapses to its last (most complete) fragment.
func RenderTranscript(entries []entities.TranscriptEntry) string {
	if len(entries) == 0 {
		return ""
	}

	sorted := make([]entities.TranscriptEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CapturedAtMs < sorted[j].CapturedAtMs
	})

	var groups []speakerGroup
	var current *speakerGroup

	for _, entry := range sorted {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}

		if current == nil || entry.SpeakerName != current.speakerName {
			if current != nil && len(current.messages) > 0 {
				groups = append(groups, *current)
			}
			current = &speakerGroup{
				speakerName: entry.SpeakerName,
				startTimeMs: entry.CapturedAtMs,
			}
		}

		// Skip a fragment identical to the one before it in this group.
		if len(current.messages) == 0 || text != current.messages[len(current.messages)-1] {
			current.messages = append(current.messages, text)
		}
	}
	if current != nil && len(current.messages) > 0 {
		groups = append(groups, *current)
	}

	var b strings.Builder
	for _, group := range groups {
		// The last fragment of a group is the most complete version of the
		// utterance that was captured incrementally.
		finalMessage := group.messages[len(group.messages)-1]
		fmt.Fprintf(&b, "%s (%s)\n%s\n\n", group.speakerName, FormatDisplayTime(group.startTimeMs), finalMessage)
	}
	return b.String()
}

// RenderChat renders chat entries in chronological order. Chat messages are
// complete, so no grouping is applied.
func RenderChat(entries []entities.ChatEntry) string {
	if len(entries) == 0 {
		return ""
	}

	sorted := make([]entities.ChatEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CapturedAtMs < sorted[j].CapturedAtMs
	})

	var b strings.Builder
	for _, entry := range sorted {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s (%s)\n%s\n\n", entry.SpeakerName, FormatDisplayTime(entry.CapturedAtMs), text)
	}
	return b.String()
}
