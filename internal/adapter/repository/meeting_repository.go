package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/domain/entities"
)

// MeetingRepository handles meeting archive operations
type MeetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// CreateMeeting stores a finalized meeting record
func (r *MeetingRepository) CreateMeeting(ctx context.Context, record *entities.MeetingRecord) error {
	if record == nil {
		return errors.New("meeting record cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.ErrDBQueryFailed("create meeting", err)
	}
	return nil
}

// GetMeetingByID retrieves a meeting record by ID
func (r *MeetingRepository) GetMeetingByID(ctx context.Context, id string) (*entities.MeetingRecord, error) {
	var record entities.MeetingRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.ErrDBQueryFailed("get meeting", err)
	}
	return &record, nil
}

// ListMeetings retrieves meeting records, most recent first
func (r *MeetingRepository) ListMeetings(ctx context.Context, limit, offset int) ([]entities.MeetingRecord, error) {
	var records []entities.MeetingRecord
	err := r.db.WithContext(ctx).
		Order("started_at_ms DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.ErrDBQueryFailed("list meetings", err)
	}
	return records, nil
}

// UpdateDeliveryStatus updates the webhook delivery status of a meeting
func (r *MeetingRepository) UpdateDeliveryStatus(ctx context.Context, id string, status entities.DeliveryStatus) error {
	result := r.db.WithContext(ctx).
		Model(&entities.MeetingRecord{}).
		Where("id = ?", id).
		Update("delivery_status", status)
	if result.Error != nil {
		return apperrors.ErrDBQueryFailed("update delivery status", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("meeting")
	}
	return nil
}
