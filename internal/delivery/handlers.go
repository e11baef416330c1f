package delivery

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/bus"
)

// IndexPayload selects a meeting by its position in the history list.
type IndexPayload struct {
	Index int `json:"index"`
}

// FinalizeResult is the reply payload of a finalize-triggering message.
type FinalizeResult struct {
	MeetingID string `json:"meetingId,omitempty"`
}

// DownloadResult is the reply payload of a download message.
type DownloadResult struct {
	Filename string `json:"filename"`
}

// RegisterBusHandlers installs the delivery-side message handlers.
func (c *Coordinator) RegisterBusHandlers(d *bus.Dispatcher) {
	d.Register(bus.TypeMeetingEnded, func(ctx context.Context, req bus.Request, reply bus.ReplyFunc) {
		// Finalize can block on the webhook retry window; resolve the reply
		// when it completes rather than holding the dispatch.
		go func() {
			id, err := c.Finalize(ctx, TriggerExplicitEnd)
			if err != nil {
				reply(bus.Fail(err))
				return
			}
			reply(bus.OK(FinalizeResult{MeetingID: id}))
		}()
	})

	d.Register(bus.TypeRecoverLastMeeting, func(ctx context.Context, req bus.Request, reply bus.ReplyFunc) {
		go func() {
			id, err := c.Finalize(ctx, TriggerRecovery)
			if err != nil {
				reply(bus.Fail(err))
				return
			}
			reply(bus.OK(FinalizeResult{MeetingID: id}))
		}()
	})

	d.Register(bus.TypeDownloadTranscriptAtIdx, func(ctx context.Context, req bus.Request, reply bus.ReplyFunc) {
		var payload IndexPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			reply(bus.Fail(apperrors.ErrInvalidArgument("invalid index payload")))
			return
		}
		filename, err := c.DownloadAtIndex(ctx, payload.Index)
		if err != nil {
			reply(bus.Fail(err))
			return
		}
		reply(bus.OK(DownloadResult{Filename: filename}))
	})

	d.Register(bus.TypeRetryWebhookAtIndex, func(ctx context.Context, req bus.Request, reply bus.ReplyFunc) {
		var payload IndexPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			reply(bus.Fail(apperrors.ErrInvalidArgument("invalid index payload")))
			return
		}
		go func() {
			if err := c.RetryWebhookAtIndex(ctx, payload.Index); err != nil {
				reply(bus.Fail(err))
				return
			}
			reply(bus.OK(nil))
		}()
	})

	c.logger.Debug("delivery bus handlers registered", zap.Int("count", 4))
}
