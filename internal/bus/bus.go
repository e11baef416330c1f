// Package bus is the in-process message fabric between the capture side and
// the delivery side. Messages are typed requests with correlation ids;
// handlers reply immediately or hold the reply until their work resolves, and
// senders can wait with a context so an abandoned reply never wedges them.
package bus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
)

// MessageType discriminates requests on the bus.
type MessageType string

const (
	TypeNewMeetingStarted       MessageType = "new_meeting_started"
	TypeMeetingEnded            MessageType = "meeting_ended"
	TypeDownloadTranscriptAtIdx MessageType = "download_transcript_at_index"
	TypeRetryWebhookAtIndex     MessageType = "retry_webhook_at_index"
	TypeRecoverLastMeeting      MessageType = "recover_last_meeting"
	TypeGenerateSummary         MessageType = "generate_summary"
	TypeSearchTranscript        MessageType = "search_transcript"
)

// Request is a message sent to a registered handler. Payload carries
// type-specific arguments as raw JSON.
type Request struct {
	Type          MessageType     `json:"type"`
	CorrelationID string          `json:"correlationId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Response is the handler's reply.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ReplyFunc resolves a request. Calling it more than once is a no-op.
type ReplyFunc func(Response)

// Handler processes one message type. Implementations either call reply
// before returning or hand it to a goroutine that resolves it later.
type Handler func(ctx context.Context, req Request, reply ReplyFunc)

// Dispatcher routes requests to handlers by type.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[MessageType]Handler
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[MessageType]Handler),
		logger:   logger,
	}
}

// Register installs the handler for a message type, replacing any previous
// one.
func (d *Dispatcher) Register(t MessageType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = h
}

// Send dispatches the request and waits for the reply or ctx. A handler that
// never resolves its reply does not leak the sender: ctx bounds the wait.
func (d *Dispatcher) Send(ctx context.Context, t MessageType, payload interface{}) (Response, error) {
	req := Request{
		Type:          t,
		CorrelationID: uuid.NewString(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Response{}, apperrors.ErrInternal(err)
		}
		req.Payload = raw
	}

	d.mu.RLock()
	handler, ok := d.handlers[t]
	d.mu.RUnlock()
	if !ok {
		return Response{}, apperrors.ErrNotFound("message handler for " + string(t))
	}

	replyCh := make(chan Response, 1)
	var once sync.Once
	reply := func(resp Response) {
		once.Do(func() { replyCh <- resp })
	}

	d.logger.Debug("dispatching message",
		zap.String("type", string(t)),
		zap.String("correlation_id", req.CorrelationID))
	handler(ctx, req, reply)

	select {
	case resp := <-replyCh:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// OK builds a successful response carrying v as its payload.
func OK(v interface{}) Response {
	if v == nil {
		return Response{Success: true}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true, Payload: raw}
}

// Fail builds a failed response from err.
func Fail(err error) Response {
	return Response{Success: false, Error: err.Error()}
}
