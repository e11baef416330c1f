package cache

import (
	"context"
	"encoding/json"
)

// Store is the durable local key-value store shared across contexts. It holds
// the transient capture state of the live session, the bounded meeting
// history, per-meeting records, and the stored settings. Values are JSON.
type Store interface {
	// Get returns the raw value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Persisted state keys. The per-meeting keys are derived with MeetingKey,
// TranscriptKey and ChatKey.
const (
	KeyTranscript            = "transcript"
	KeyChatMessages          = "chatMessages"
	KeyMeetingTitle          = "meetingTitle"
	KeyMeetingStartTimestamp = "meetingStartTimestamp"
	KeyMeetings              = "meetings"
	KeyMeetingTabID          = "meetingTabId"
	KeyIsActive              = "isActive"
	KeyExtensionStatus       = "extensionStatusJSON"

	// Old casing, accepted once at read time.
	KeyMeetingStartTimestampLegacy = "meetingStartTimeStamp"

	// Synced (cross-device) settings keys.
	KeyOperationMode   = "operationMode"
	KeyWebhookURL      = "webhookUrl"
	KeyWebhookEnabled  = "webhookEnabled"
	KeyWebhookBodyType = "webhookBodyType"
)

// MeetingKey is the per-finalized-meeting metadata key.
func MeetingKey(id string) string { return "meeting_" + id }

// TranscriptKey is the per-finalized-meeting transcript key.
func TranscriptKey(id string) string { return "transcript_" + id }

// ChatKey is the per-finalized-meeting chat key.
func ChatKey(id string) string { return "chat_" + id }

// GetJSON reads key and unmarshals it into v. Returns false when the key is
// absent; v is left untouched in that case.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(raw))
}
