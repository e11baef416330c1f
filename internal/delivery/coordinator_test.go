package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/domain/entities"
	"github.com/Anvita004/transcriptpro/internal/infrastructure/cache"
	"github.com/Anvita004/transcriptpro/internal/settings"
	"github.com/Anvita004/transcriptpro/pkg/config"
)

type coordinatorFixture struct {
	coordinator *Coordinator
	kv          *cache.MemoryStore
	settings    *settings.Service
	downloadDir string
}

func newCoordinatorFixture(t *testing.T, historySize int) *coordinatorFixture {
	t.Helper()
	kv := cache.NewMemoryStore()
	dir := t.TempDir()
	logger := zap.NewNop()

	settingsSvc := settings.NewService(kv, &config.Config{}, logger)
	poster := NewWebhookPoster(config.WebhookConfig{
		RequestTimeout: 2 * time.Second,
		MaxElapsedTime: 500 * time.Millisecond,
	}, logger)

	return &coordinatorFixture{
		coordinator: NewCoordinator(kv, NewFileWriter(dir, logger), poster, settingsSvc, nil, nil, historySize, logger),
		kv:          kv,
		settings:    settingsSvc,
		downloadDir: dir,
	}
}

func (f *coordinatorFixture) seedSession(t *testing.T, title string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, cache.SetJSON(ctx, f.kv, cache.KeyTranscript, []entities.TranscriptEntry{
		{SpeakerName: "Alice", Text: "we should ship on Friday", CapturedAtMs: 1700000001000},
	}))
	require.NoError(t, cache.SetJSON(ctx, f.kv, cache.KeyChatMessages, []entities.ChatEntry{
		{SpeakerName: "Bob", Text: "agenda link", CapturedAtMs: 1700000002000},
	}))
	require.NoError(t, cache.SetJSON(ctx, f.kv, cache.KeyMeetingTitle, title))
	require.NoError(t, cache.SetJSON(ctx, f.kv, cache.KeyMeetingStartTimestamp, int64(1700000000000)))
	require.NoError(t, cache.SetJSON(ctx, f.kv, cache.KeyMeetingTabID, 7))
}

func TestFinalize_HappyPath(t *testing.T) {
	f := newCoordinatorFixture(t, 10)
	ctx := context.Background()
	f.seedSession(t, "Release Sync")

	id, err := f.coordinator.Finalize(ctx, TriggerExplicitEnd)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Durable per-meeting keys exist.
	for _, key := range []string{cache.MeetingKey(id), cache.TranscriptKey(id), cache.ChatKey(id)} {
		_, ok, err := f.kv.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "missing %s", key)
	}

	history, err := f.coordinator.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
	assert.Equal(t, "Release Sync", history[0].Title)
	assert.Equal(t, 1, history[0].TranscriptLength)

	// Transcript file was written with the chat section appended.
	entries, err := os.ReadDir(f.downloadDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(filepath.Join(f.downloadDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "we should ship on Friday")
	assert.Contains(t, string(content), "CHAT MESSAGES")
	assert.Contains(t, string(content), "agenda link")

	// Transient state and tab binding are gone.
	for _, key := range []string{cache.KeyTranscript, cache.KeyChatMessages, cache.KeyMeetingTitle, cache.KeyMeetingStartTimestamp, cache.KeyMeetingTabID} {
		_, ok, err := f.kv.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "%s should be cleared", key)
	}
}

func TestRenderFileContent_BannerWithoutChat(t *testing.T) {
	content := renderFileContent([]entities.TranscriptEntry{
		{SpeakerName: "Alice", Text: "hello", CapturedAtMs: 1700000001000},
	}, nil)
	assert.Contains(t, content, "hello")
	assert.Contains(t, content, chatSectionBanner)
}

func TestFinalize_SecondTriggerIsNoOp(t *testing.T) {
	f := newCoordinatorFixture(t, 10)
	ctx := context.Background()
	f.seedSession(t, "Sync")

	id, err := f.coordinator.Finalize(ctx, TriggerExplicitEnd)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// A racing trigger (tab close, recovery) lands after the clear: success,
	// no new meeting, no second file.
	id2, err := f.coordinator.Finalize(ctx, TriggerTabClosed)
	require.NoError(t, err)
	assert.Empty(t, id2)

	history, err := f.coordinator.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	entries, err := os.ReadDir(f.downloadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFinalize_EmptyCapture(t *testing.T) {
	f := newCoordinatorFixture(t, 10)
	ctx := context.Background()

	// Keys present but both sequences empty: a meeting happened with nothing
	// said and nothing typed.
	require.NoError(t, cache.SetJSON(ctx, f.kv, cache.KeyTranscript, []entities.TranscriptEntry{}))
	require.NoError(t, cache.SetJSON(ctx, f.kv, cache.KeyChatMessages, []entities.ChatEntry{}))

	_, err := f.coordinator.Finalize(ctx, TriggerExplicitEnd)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_EMPTY_CAPTURE))

	// No side effects: no file, no history entry, keys untouched.
	entries, err := os.ReadDir(f.downloadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	history, err := f.coordinator.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
	_, ok, _ := f.kv.Get(ctx, cache.KeyTranscript)
	assert.True(t, ok)
}

func TestFinalize_LegacyStartTimestampKey(t *testing.T) {
	f := newCoordinatorFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, cache.SetJSON(ctx, f.kv, cache.KeyTranscript, []entities.TranscriptEntry{
		{SpeakerName: "Alice", Text: "old client data", CapturedAtMs: 1700000001000},
	}))
	require.NoError(t, cache.SetJSON(ctx, f.kv, cache.KeyMeetingStartTimestampLegacy, int64(1690000000000)))

	id, err := f.coordinator.Finalize(ctx, TriggerRecovery)
	require.NoError(t, err)

	history, err := f.coordinator.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
	assert.Equal(t, int64(1690000000000), history[0].StartedAtMs)
}

func TestFinalize_HistoryEviction(t *testing.T) {
	f := newCoordinatorFixture(t, 2)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		f.seedSession(t, "Sync")
		id, err := f.coordinator.Finalize(ctx, TriggerExplicitEnd)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	history, err := f.coordinator.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ids[1], history[0].ID)
	assert.Equal(t, ids[2], history[1].ID)

	// The evicted meeting's per-id keys are removed with it.
	_, ok, err := f.kv.Get(ctx, cache.TranscriptKey(ids[0]))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFinalize_WebhookFailureIsNonFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	f := newCoordinatorFixture(t, 10)
	ctx := context.Background()
	require.NoError(t, f.settings.Update(ctx, settings.Settings{
		OperationMode:   settings.ModeAuto,
		WebhookURL:      ts.URL,
		WebhookEnabled:  true,
		WebhookBodyType: settings.BodyTypeSimple,
	}))
	f.seedSession(t, "Sync")

	_, err := f.coordinator.Finalize(ctx, TriggerExplicitEnd)
	require.NoError(t, err, "webhook failure must not fail the finalize")

	history, err := f.coordinator.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entities.DeliveryStatusFailed, history[0].DeliveryStatus)

	// The transcript file still exists regardless of webhook outcome.
	entries, err := os.ReadDir(f.downloadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloadAtIndex(t *testing.T) {
	f := newCoordinatorFixture(t, 10)
	ctx := context.Background()
	f.seedSession(t, "Sync")
	_, err := f.coordinator.Finalize(ctx, TriggerExplicitEnd)
	require.NoError(t, err)

	filename, err := f.coordinator.DownloadAtIndex(ctx, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, filename)

	// Finalize wrote one file, the explicit download a second (uniquified).
	entries, err := os.ReadDir(f.downloadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDownloadAtIndex_OutOfRange(t *testing.T) {
	f := newCoordinatorFixture(t, 10)

	_, err := f.coordinator.DownloadAtIndex(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_NOT_FOUND))
}

func TestRetryWebhookAtIndex_UpdatesStatus(t *testing.T) {
	var received atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Store(true)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	f := newCoordinatorFixture(t, 10)
	ctx := context.Background()
	f.seedSession(t, "Sync")
	_, err := f.coordinator.Finalize(ctx, TriggerExplicitEnd)
	require.NoError(t, err)

	require.NoError(t, f.settings.Update(ctx, settings.Settings{
		OperationMode:   settings.ModeAuto,
		WebhookURL:      ts.URL,
		WebhookEnabled:  true,
		WebhookBodyType: settings.BodyTypeSimple,
	}))

	require.NoError(t, f.coordinator.RetryWebhookAtIndex(ctx, 0))
	assert.True(t, received.Load())

	history, err := f.coordinator.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entities.DeliveryStatusDelivered, history[0].DeliveryStatus)
}
