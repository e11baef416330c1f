package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptEntry_DecodesLegacyShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want TranscriptEntry
	}{
		{
			name: "canonical",
			raw:  `{"speakerName":"Alice","text":"hello","capturedAtMs":1700000001000}`,
			want: TranscriptEntry{SpeakerName: "Alice", Text: "hello", CapturedAtMs: 1700000001000},
		},
		{
			name: "personName and transcriptText",
			raw:  `{"personName":"Alice","transcriptText":"hello","timestamp":1700000001000}`,
			want: TranscriptEntry{SpeakerName: "Alice", Text: "hello", CapturedAtMs: 1700000001000},
		},
		{
			name: "oldest personTranscript",
			raw:  `{"personName":"Alice","personTranscript":"hello","timestamp":1700000001000}`,
			want: TranscriptEntry{SpeakerName: "Alice", Text: "hello", CapturedAtMs: 1700000001000},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got TranscriptEntry
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestChatEntry_DecodesLegacyShape(t *testing.T) {
	var got ChatEntry
	raw := `{"personName":"Bob","chatMessageText":"agenda link","timestamp":1700000002000}`
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, ChatEntry{SpeakerName: "Bob", Text: "agenda link", CapturedAtMs: 1700000002000}, got)
}

func TestEntry_WritesCanonicalShape(t *testing.T) {
	b, err := json.Marshal(TranscriptEntry{SpeakerName: "Alice", Text: "hello", CapturedAtMs: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"speakerName":"Alice","text":"hello","capturedAtMs":1}`, string(b))
}

func TestDedupKey_SeparatesSpeakerAndText(t *testing.T) {
	a := TranscriptEntry{SpeakerName: "Al", Text: "icehello"}
	b := TranscriptEntry{SpeakerName: "Alice", Text: "hello"}
	assert.NotEqual(t, a.DedupKey(), b.DedupKey())
}

func TestCaptureSession_IsEmpty(t *testing.T) {
	assert.True(t, CaptureSession{}.IsEmpty())
	assert.False(t, CaptureSession{Transcript: []TranscriptEntry{{Text: "x"}}}.IsEmpty())
	assert.False(t, CaptureSession{Chat: []ChatEntry{{Text: "x"}}}.IsEmpty())
}
