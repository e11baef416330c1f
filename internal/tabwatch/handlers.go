package tabwatch

import (
	"context"
	"encoding/json"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/bus"
)

type bindPayload struct {
	TabID int `json:"tabId"`
}

// RegisterBusHandlers installs the meeting-start handler, which binds the
// live session to the agent's tab. A start message without a tab id is still
// acknowledged; the session just has no tab-close trigger.
func (w *Watcher) RegisterBusHandlers(d *bus.Dispatcher) {
	d.Register(bus.TypeNewMeetingStarted, func(ctx context.Context, req bus.Request, reply bus.ReplyFunc) {
		if len(req.Payload) == 0 {
			reply(bus.OK(nil))
			return
		}
		var payload bindPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			reply(bus.Fail(apperrors.ErrInvalidArgument("invalid tab payload")))
			return
		}
		if err := w.Bind(ctx, payload.TabID); err != nil {
			reply(bus.Fail(err))
			return
		}
		reply(bus.OK(nil))
	})
}
