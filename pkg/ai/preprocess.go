package ai

import (
	"regexp"
	"strings"
)

// maxPromptChars bounds the transcript text handed to the model; when
// exceeded, the most recent complete sentences are kept.
const maxPromptChars = 1024

var (
	speakerPrefix   = regexp.MustCompile(`^[^(]+\([^)]+\):\s*`)
	runsOfSpace     = regexp.MustCompile(`\s+`)
	runsOfDots      = regexp.MustCompile(`\.+`)
	punctNoSpace    = regexp.MustCompile(`([.,!?])([^\s])`)
	spaceBeforePunc = regexp.MustCompile(`\s+([.,!?])`)
	sentenceEnd     = regexp.MustCompile(`[.!?]+`)
)

// CleanTranscript strips speaker/timestamp prefixes and normalizes whitespace
// and punctuation in a rendered transcript, producing plain prose for
// prompting. Overlong input keeps its most recent sentences.
func CleanTranscript(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = speakerPrefix.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		line = runsOfSpace.ReplaceAllString(line, " ")
		line = runsOfDots.ReplaceAllString(line, ".")
		// Very short lines are fragments or UI noise.
		if len(line) > 5 {
			cleaned = append(cleaned, line)
		}
	}

	out := strings.Join(cleaned, " ")
	out = runsOfSpace.ReplaceAllString(out, " ")
	out = punctNoSpace.ReplaceAllString(out, "$1 $2")
	out = spaceBeforePunc.ReplaceAllString(out, "$1")
	out = strings.TrimSpace(out)

	if len(out) > maxPromptChars {
		out = recentSentences(out, maxPromptChars)
	}
	return out
}

// recentSentences walks sentences from the end, keeping as many of the most
// recent ones as fit the budget.
func recentSentences(text string, budget int) string {
	var sentences []string
	for _, s := range sentenceEnd.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}

	var kept string
	for i := len(sentences) - 1; i >= 0; i-- {
		if len(kept)+len(sentences[i]) > budget {
			break
		}
		kept = sentences[i] + ". " + kept
	}
	return strings.TrimSpace(kept)
}
