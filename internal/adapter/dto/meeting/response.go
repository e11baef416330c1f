package meeting

// Summary is one meeting in the history list.
type Summary struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	StartedAtMs        int64  `json:"startedAtMs"`
	EndedAtMs          int64  `json:"endedAtMs"`
	TranscriptLength   int    `json:"transcriptLength"`
	ChatMessagesLength int    `json:"chatMessagesLength"`
	DeliveryStatus     string `json:"deliveryStatus"`
}

// DownloadResponse reports where the transcript file was written.
type DownloadResponse struct {
	Filename string `json:"filename"`
}
