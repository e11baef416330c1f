package entities

import "encoding/json"

// TranscriptEntry is one observed utterance fragment. Uniqueness inside a
// capture session is keyed on (SpeakerName, Text); a later fragment with the
// same key is a duplicate, not an update.
type TranscriptEntry struct {
	SpeakerName  string `json:"speakerName"`
	Text         string `json:"text"`
	CapturedAtMs int64  `json:"capturedAtMs"`
}

// ChatEntry is one complete chat message, with the same dedup key semantics
// as TranscriptEntry.
type ChatEntry struct {
	SpeakerName  string `json:"speakerName"`
	Text         string `json:"text"`
	CapturedAtMs int64  `json:"capturedAtMs"`
}

// DedupKey is the capture-store uniqueness key.
func (e TranscriptEntry) DedupKey() string {
	return e.SpeakerName + "\x00" + e.Text
}

// DedupKey is the capture-store uniqueness key.
func (e ChatEntry) DedupKey() string {
	return e.SpeakerName + "\x00" + e.Text
}

// Stored records written by earlier releases used different field names
// (personName/transcriptText, and before that personTranscript; timestamps
// under "timestamp"). Decoding accepts the legacy shapes once, at read time;
// writes always use the canonical names.

type legacyTranscriptEntry struct {
	SpeakerName      string `json:"speakerName"`
	PersonName       string `json:"personName"`
	Text             string `json:"text"`
	TranscriptText   string `json:"transcriptText"`
	PersonTranscript string `json:"personTranscript"`
	ChatMessageText  string `json:"chatMessageText"`
	CapturedAtMs     int64  `json:"capturedAtMs"`
	Timestamp        int64  `json:"timestamp"`
}

func (l legacyTranscriptEntry) speaker() string {
	if l.SpeakerName != "" {
		return l.SpeakerName
	}
	return l.PersonName
}

func (l legacyTranscriptEntry) capturedAt() int64 {
	if l.CapturedAtMs != 0 {
		return l.CapturedAtMs
	}
	return l.Timestamp
}

// UnmarshalJSON migrates legacy-shaped stored records to the canonical shape.
func (e *TranscriptEntry) UnmarshalJSON(data []byte) error {
	var l legacyTranscriptEntry
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	text := l.Text
	if text == "" {
		text = l.TranscriptText
	}
	if text == "" {
		text = l.PersonTranscript
	}
	*e = TranscriptEntry{
		SpeakerName:  l.speaker(),
		Text:         text,
		CapturedAtMs: l.capturedAt(),
	}
	return nil
}

// UnmarshalJSON migrates legacy-shaped stored records to the canonical shape.
func (e *ChatEntry) UnmarshalJSON(data []byte) error {
	var l legacyTranscriptEntry
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	text := l.Text
	if text == "" {
		text = l.ChatMessageText
	}
	*e = ChatEntry{
		SpeakerName:  l.speaker(),
		Text:         text,
		CapturedAtMs: l.capturedAt(),
	}
	return nil
}
