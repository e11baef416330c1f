package tabwatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Anvita004/transcriptpro/internal/delivery"
	"github.com/Anvita004/transcriptpro/internal/domain/entities"
	"github.com/Anvita004/transcriptpro/internal/hostpage"
	"github.com/Anvita004/transcriptpro/internal/infrastructure/cache"
	"github.com/Anvita004/transcriptpro/internal/settings"
	"github.com/Anvita004/transcriptpro/pkg/config"
)

func newTestCoordinator(t *testing.T, kv cache.Store) *delivery.Coordinator {
	t.Helper()
	logger := zap.NewNop()
	settingsSvc := settings.NewService(kv, &config.Config{}, logger)
	poster := delivery.NewWebhookPoster(config.WebhookConfig{
		RequestTimeout: time.Second,
		MaxElapsedTime: 100 * time.Millisecond,
	}, logger)
	return delivery.NewCoordinator(kv, delivery.NewFileWriter(t.TempDir(), logger), poster, settingsSvc, nil, nil, 10, logger)
}

func seedCapture(t *testing.T, kv cache.Store) {
	t.Helper()
	require.NoError(t, cache.SetJSON(context.Background(), kv, cache.KeyTranscript, []entities.TranscriptEntry{
		{SpeakerName: "Alice", Text: "we lost the tab", CapturedAtMs: 1700000001000},
	}))
}

func TestHandleClosed_BoundTabFinalizes(t *testing.T) {
	kv := cache.NewMemoryStore()
	coordinator := newTestCoordinator(t, kv)
	w := NewWatcher(kv, hostpage.NewFeed(zap.NewNop()), coordinator, nil, zap.NewNop())
	ctx := context.Background()

	seedCapture(t, kv)
	require.NoError(t, w.Bind(ctx, 42))

	w.handleClosed(ctx, 42)

	history, err := coordinator.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, ok, err := kv.Get(ctx, cache.KeyMeetingTabID)
	require.NoError(t, err)
	assert.False(t, ok, "binding should be cleared")
}

func TestHandleClosed_UnrelatedTabIgnored(t *testing.T) {
	kv := cache.NewMemoryStore()
	coordinator := newTestCoordinator(t, kv)
	w := NewWatcher(kv, hostpage.NewFeed(zap.NewNop()), coordinator, nil, zap.NewNop())
	ctx := context.Background()

	seedCapture(t, kv)
	require.NoError(t, w.Bind(ctx, 42))

	w.handleClosed(ctx, 7)

	history, err := coordinator.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, ok, err := kv.Get(ctx, cache.KeyTranscript)
	require.NoError(t, err)
	assert.True(t, ok, "capture state must survive unrelated closes")
}

type recordingEnder struct {
	calls int
}

func (e *recordingEnder) EndLiveSession() bool {
	e.calls++
	return true
}

func TestHandleClosed_EndsLiveSessionBeforeFinalize(t *testing.T) {
	kv := cache.NewMemoryStore()
	coordinator := newTestCoordinator(t, kv)
	ender := &recordingEnder{}
	w := NewWatcher(kv, hostpage.NewFeed(zap.NewNop()), coordinator, ender, zap.NewNop())
	ctx := context.Background()

	seedCapture(t, kv)
	require.NoError(t, w.Bind(ctx, 42))

	w.handleClosed(ctx, 42)
	assert.Equal(t, 1, ender.calls)

	// Unrelated closes never touch the session.
	require.NoError(t, w.Bind(ctx, 42))
	w.handleClosed(ctx, 7)
	assert.Equal(t, 1, ender.calls)
}

func TestHandleClosed_NoBinding(t *testing.T) {
	kv := cache.NewMemoryStore()
	coordinator := newTestCoordinator(t, kv)
	w := NewWatcher(kv, hostpage.NewFeed(zap.NewNop()), coordinator, nil, zap.NewNop())
	ctx := context.Background()

	seedCapture(t, kv)
	w.handleClosed(ctx, 42)

	history, err := coordinator.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRun_ConsumesFeedEvents(t *testing.T) {
	kv := cache.NewMemoryStore()
	coordinator := newTestCoordinator(t, kv)
	feed := hostpage.NewFeed(zap.NewNop())
	w := NewWatcher(kv, feed, coordinator, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedCapture(t, kv)
	require.NoError(t, w.Bind(ctx, 42))

	go w.Run(ctx)
	feed.PublishTabClosed(42)

	require.Eventually(t, func() bool {
		history, err := coordinator.History(ctx)
		return err == nil && len(history) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecoverOnStart_FinalizesLeftoverState(t *testing.T) {
	kv := cache.NewMemoryStore()
	coordinator := newTestCoordinator(t, kv)
	ctx := context.Background()

	seedCapture(t, kv)
	RecoverOnStart(ctx, kv, coordinator, time.Second, zap.NewNop())

	require.Eventually(t, func() bool {
		history, err := coordinator.History(ctx)
		return err == nil && len(history) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecoverOnStart_SkipsWhenNothingCaptured(t *testing.T) {
	kv := cache.NewMemoryStore()
	coordinator := newTestCoordinator(t, kv)
	ctx := context.Background()

	for _, raw := range []string{"", "[]", "null"} {
		if raw != "" {
			require.NoError(t, kv.Set(ctx, cache.KeyTranscript, raw))
		}
		RecoverOnStart(ctx, kv, coordinator, 100*time.Millisecond, zap.NewNop())
	}

	history, err := coordinator.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecoverOnStart_BoundedWait(t *testing.T) {
	kv := cache.NewMemoryStore()
	coordinator := newTestCoordinator(t, kv)
	ctx := context.Background()
	seedCapture(t, kv)

	start := time.Now()
	RecoverOnStart(ctx, kv, coordinator, 2*time.Second, zap.NewNop())
	assert.Less(t, time.Since(start), 2*time.Second, "a quick finalize should not wait out the full timeout")
}

// slowStore delays writes to simulate a recovery finalize that outlives the
// startup head start.
type slowStore struct {
	cache.Store
	delay time.Duration
}

func (s *slowStore) Set(ctx context.Context, key, value string) error {
	time.Sleep(s.delay)
	return s.Store.Set(ctx, key, value)
}

func TestRecoverOnStart_SlowFinalizeOutlivesWait(t *testing.T) {
	kv := &slowStore{Store: cache.NewMemoryStore(), delay: 30 * time.Millisecond}
	coordinator := newTestCoordinator(t, kv)
	ctx := context.Background()
	seedCapture(t, kv)

	start := time.Now()
	RecoverOnStart(ctx, kv, coordinator, 50*time.Millisecond, zap.NewNop())
	assert.Less(t, time.Since(start), 400*time.Millisecond, "startup must not wait out the finalize")

	// The background attempt still completes and its result is not lost.
	require.Eventually(t, func() bool {
		history, err := coordinator.History(ctx)
		return err == nil && len(history) == 1
	}, 5*time.Second, 20*time.Millisecond)
}
