package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
)

func TestSend_RoundTrip(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Register(TypeGenerateSummary, func(ctx context.Context, req Request, reply ReplyFunc) {
		var payload map[string]int
		require.NoError(t, json.Unmarshal(req.Payload, &payload))
		assert.NotEmpty(t, req.CorrelationID)
		reply(OK(map[string]int{"index": payload["index"] + 1}))
	})

	resp, err := d.Send(context.Background(), TypeGenerateSummary, map[string]int{"index": 1})
	require.NoError(t, err)
	require.True(t, resp.Success)

	var out map[string]int
	require.NoError(t, json.Unmarshal(resp.Payload, &out))
	assert.Equal(t, 2, out["index"])
}

func TestSend_UnknownType(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	_, err := d.Send(context.Background(), TypeMeetingEnded, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_NOT_FOUND))
}

func TestSend_DeferredReply(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Register(TypeMeetingEnded, func(ctx context.Context, req Request, reply ReplyFunc) {
		go func() {
			time.Sleep(20 * time.Millisecond)
			reply(OK(nil))
		}()
	})

	resp, err := d.Send(context.Background(), TypeMeetingEnded, nil)
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestSend_ContextBoundsWait(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Register(TypeRecoverLastMeeting, func(ctx context.Context, req Request, reply ReplyFunc) {
		// Never replies.
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := d.Send(ctx, TypeRecoverLastMeeting, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReply_ResolvesOnce(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Register(TypeMeetingEnded, func(ctx context.Context, req Request, reply ReplyFunc) {
		reply(OK(nil))
		reply(Fail(assert.AnError))
	})

	resp, err := d.Send(context.Background(), TypeMeetingEnded, nil)
	require.NoError(t, err)
	assert.True(t, resp.Success, "first resolution wins")
}

func TestFail_CarriesErrorMessage(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Register(TypeSearchTranscript, func(ctx context.Context, req Request, reply ReplyFunc) {
		reply(Fail(apperrors.ErrEmptyCapture()))
	})

	resp, err := d.Send(context.Background(), TypeSearchTranscript, nil)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}
