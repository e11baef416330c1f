package entities

// CaptureSession is the single live session's buffered state. Exactly one
// logical session is live at a time per collector instance. It is created at
// meeting-start detection, mutated by the observer bridge on every capture
// event, and consumed and cleared by the delivery coordinator at session end.
type CaptureSession struct {
	StartedAtMs int64             `json:"startedAtMs"`
	Title       string            `json:"title"`
	Transcript  []TranscriptEntry `json:"transcript"`
	Chat        []ChatEntry       `json:"chat"`
}

// IsEmpty reports whether the session captured nothing at all.
func (s CaptureSession) IsEmpty() bool {
	return len(s.Transcript) == 0 && len(s.Chat) == 0
}
