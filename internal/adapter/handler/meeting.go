package handler

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	meetingdto "github.com/Anvita004/transcriptpro/internal/adapter/dto/meeting"
	"github.com/Anvita004/transcriptpro/internal/bus"
	"github.com/Anvita004/transcriptpro/internal/delivery"
	"github.com/Anvita004/transcriptpro/internal/domain/repositories"
)

// Meetings exposes the bounded meeting history and its per-meeting actions.
// Actions go through the message bus, the same path internal triggers use.
type Meetings struct {
	coordinator *delivery.Coordinator
	dispatcher  *bus.Dispatcher
	archive     repositories.MeetingRepository // nil when the database is disabled
	logger      *zap.Logger
}

// NewMeetings creates the meetings handler.
func NewMeetings(coordinator *delivery.Coordinator, dispatcher *bus.Dispatcher, archive repositories.MeetingRepository, logger *zap.Logger) *Meetings {
	return &Meetings{coordinator: coordinator, dispatcher: dispatcher, archive: archive, logger: logger}
}

// List returns the recent meetings, oldest first.
func (h *Meetings) List(c echo.Context) error {
	history, err := h.coordinator.History(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	out := make([]meetingdto.Summary, 0, len(history))
	for _, meta := range history {
		out = append(out, meetingdto.Summary{
			ID:                 meta.ID,
			Title:              meta.Title,
			StartedAtMs:        meta.StartedAtMs,
			EndedAtMs:          meta.EndedAtMs,
			TranscriptLength:   meta.TranscriptLength,
			ChatMessagesLength: meta.ChatMessagesLength,
			DeliveryStatus:     string(meta.DeliveryStatus),
		})
	}
	return HandleSuccess(h.logger, c, out)
}

// Download re-writes the transcript file for the meeting at :index.
func (h *Meetings) Download(c echo.Context) error {
	index, err := h.indexParam(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	resp, err := h.dispatcher.Send(c.Request().Context(), bus.TypeDownloadTranscriptAtIdx, delivery.IndexPayload{Index: index})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if !resp.Success {
		return HandleError(h.logger, c, fmt.Errorf("%s", resp.Error))
	}

	var result delivery.DownloadResult
	if err := json.Unmarshal(resp.Payload, &result); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}
	return HandleSuccess(h.logger, c, meetingdto.DownloadResponse{Filename: result.Filename})
}

// RetryWebhook re-posts the meeting at :index to the configured webhook.
func (h *Meetings) RetryWebhook(c echo.Context) error {
	index, err := h.indexParam(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	resp, err := h.dispatcher.Send(c.Request().Context(), bus.TypeRetryWebhookAtIndex, delivery.IndexPayload{Index: index})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if !resp.Success {
		return HandleError(h.logger, c, fmt.Errorf("%s", resp.Error))
	}
	return HandleSuccess(h.logger, c, nil)
}

// Recover finalizes any leftover capture state from an interrupted meeting.
func (h *Meetings) Recover(c echo.Context) error {
	resp, err := h.dispatcher.Send(c.Request().Context(), bus.TypeRecoverLastMeeting, nil)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if !resp.Success {
		return HandleError(h.logger, c, fmt.Errorf("%s", resp.Error))
	}

	var result delivery.FinalizeResult
	if len(resp.Payload) > 0 {
		if err := json.Unmarshal(resp.Payload, &result); err != nil {
			return HandleError(h.logger, c, apperrors.ErrInternal(err))
		}
	}
	return HandleSuccess(h.logger, c, result)
}

// ListArchive pages through the database archive, most recent first.
func (h *Meetings) ListArchive(c echo.Context) error {
	if h.archive == nil {
		return HandleError(h.logger, c, apperrors.ErrNotFound("meeting archive"))
	}

	var req meetingdto.ListArchiveRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid query parameters"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	records, err := h.archive.ListMeetings(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, records)
}

func (h *Meetings) indexParam(c echo.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return 0, apperrors.ErrInvalidArgument("index must be a non-negative integer")
	}
	return index, nil
}
