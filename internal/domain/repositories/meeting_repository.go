package repositories

import (
	"context"

	"github.com/Anvita004/transcriptpro/internal/domain/entities"
)

// MeetingRepository is the meeting archive. Finalized records are mirrored
// here for listing beyond the bounded local-store history.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, record *entities.MeetingRecord) error
	GetMeetingByID(ctx context.Context, id string) (*entities.MeetingRecord, error)
	ListMeetings(ctx context.Context, limit, offset int) ([]entities.MeetingRecord, error)
	UpdateDeliveryStatus(ctx context.Context, id string, status entities.DeliveryStatus) error
}
