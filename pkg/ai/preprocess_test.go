package ai

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTranscript_StripsSpeakerPrefixes(t *testing.T) {
	in := "Alice (01/15/2026, 10:00 AM):\nwe should ship friday\n\nBob (01/15/2026, 10:01 AM):\nagreed, friday works\n"
	out := CleanTranscript(in)
	assert.Equal(t, "we should ship friday agreed, friday works", out)
}

func TestCleanTranscript_DropsShortLines(t *testing.T) {
	in := "ok\nyes\nthis line is long enough to keep\nhm\n"
	out := CleanTranscript(in)
	assert.Equal(t, "this line is long enough to keep", out)
}

func TestCleanTranscript_NormalizesPunctuation(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"we agreed.next topic is budget", "we agreed. next topic is budget"},
		{"we agreed .next topic is budget", "we agreed. next topic is budget"},
		{"trailing dots everywhere...... done now", "trailing dots everywhere. done now"},
		{"lots   of    spaces   in here", "lots of spaces in here"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanTranscript(tc.in), "input %q", tc.in)
	}
}

func TestCleanTranscript_KeepsRecentSentences(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "this is filler sentence number %d with some padding words. ", i)
	}
	b.WriteString("the final decision was to launch on monday.")

	out := CleanTranscript(b.String())
	// The joining ". " may push the result a couple of characters past the
	// budget, never more.
	assert.LessOrEqual(t, len(out), maxPromptChars+2)
	assert.Contains(t, out, "the final decision was to launch on monday")
	assert.NotContains(t, out, "sentence number 0 ")
}

func TestCleanTranscript_Empty(t *testing.T) {
	assert.Equal(t, "", CleanTranscript(""))
	assert.Equal(t, "", CleanTranscript("\n\n  \n"))
}
