package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeliveryStatus tracks the webhook leg of a finalized meeting.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// MeetingRecord is a finalized meeting. Immutable once created except for
// DeliveryStatus transitions. The most recent records are kept in the local
// store's bounded history; the archive table keeps all of them.
type MeetingRecord struct {
	ID             string                               `json:"id" gorm:"type:varchar(64);primaryKey"`
	Title          string                               `json:"title" gorm:"type:text"`
	StartedAtMs    int64                                `json:"startedAtMs" gorm:"column:started_at_ms;not null"`
	EndedAtMs      int64                                `json:"endedAtMs" gorm:"column:ended_at_ms;not null"`
	Transcript     datatypes.JSONSlice[TranscriptEntry] `json:"transcript" gorm:"type:jsonb"`
	Chat           datatypes.JSONSlice[ChatEntry]       `json:"chat" gorm:"type:jsonb"`
	DeliveryStatus DeliveryStatus                       `json:"deliveryStatus" gorm:"type:varchar(20);default:'pending'"`
	CreatedAt      time.Time                            `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time                            `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (MeetingRecord) TableName() string {
	return "meetings"
}

// NewMeetingRecord finalizes a capture session into a meeting record.
func NewMeetingRecord(session CaptureSession, endedAtMs int64) *MeetingRecord {
	title := session.Title
	if title == "" {
		title = "Google Meet call"
	}
	startedAt := session.StartedAtMs
	if startedAt == 0 {
		startedAt = endedAtMs
	}
	return &MeetingRecord{
		ID:             uuid.NewString(),
		Title:          title,
		StartedAtMs:    startedAt,
		EndedAtMs:      endedAtMs,
		Transcript:     datatypes.NewJSONSlice(session.Transcript),
		Chat:           datatypes.NewJSONSlice(session.Chat),
		DeliveryStatus: DeliveryStatusPending,
	}
}
