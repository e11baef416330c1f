package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/bus"
	"github.com/Anvita004/transcriptpro/internal/delivery"
	"github.com/Anvita004/transcriptpro/internal/domain/entities"
	"github.com/Anvita004/transcriptpro/internal/infrastructure/cache"
	"github.com/Anvita004/transcriptpro/internal/settings"
	"github.com/Anvita004/transcriptpro/pkg/ai"
	"github.com/Anvita004/transcriptpro/pkg/config"
)

type assistFixture struct {
	service     *Service
	coordinator *delivery.Coordinator
	kv          *cache.MemoryStore

	mu      sync.Mutex
	prompts []string
}

func (f *assistFixture) recordedPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func newAssistFixture(t *testing.T, answer string) *assistFixture {
	t.Helper()
	f := &assistFixture{kv: cache.NewMemoryStore()}
	logger := zap.NewNop()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.prompts = append(f.prompts, req.Contents[0].Parts[0].Text)
		f.mu.Unlock()
		body, _ := json.Marshal(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": answer}},
				}},
			},
		})
		w.Write(body)
	}))
	t.Cleanup(ts.Close)

	settingsSvc := settings.NewService(f.kv, &config.Config{}, logger)
	poster := delivery.NewWebhookPoster(config.WebhookConfig{
		RequestTimeout: time.Second,
		MaxElapsedTime: 100 * time.Millisecond,
	}, logger)
	f.coordinator = delivery.NewCoordinator(f.kv, delivery.NewFileWriter(t.TempDir(), logger), poster, settingsSvc, nil, nil, 10, logger)

	client := ai.NewGeminiClient(&config.AIConfig{
		Endpoint:       ts.URL,
		APIKey:         "test-key",
		RequestTimeout: 2 * time.Second,
	})
	f.service = NewService(f.coordinator, client, logger)
	return f
}

func (f *assistFixture) finalizeMeeting(t *testing.T, entries []entities.TranscriptEntry) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, cache.SetJSON(ctx, f.kv, cache.KeyTranscript, entries))
	_, err := f.coordinator.Finalize(ctx, delivery.TriggerExplicitEnd)
	require.NoError(t, err)
}

func TestSummary_CleansRenderedTranscript(t *testing.T) {
	f := newAssistFixture(t, "The team decided to ship on Friday.")
	f.finalizeMeeting(t, []entities.TranscriptEntry{
		{SpeakerName: "Alice", Text: "we should ship on friday", CapturedAtMs: 1700000001000},
		{SpeakerName: "Bob", Text: "agreed, friday works for me", CapturedAtMs: 1700000002000},
	})

	out, err := f.service.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "The team decided to ship on Friday.", out)

	prompts := f.recordedPrompts()
	require.Len(t, prompts, 1)
	// Speaker headers are stripped before prompting.
	assert.Contains(t, prompts[0], "we should ship on friday")
	assert.NotContains(t, prompts[0], "Alice (")
}

func TestSummary_IndexOutOfRange(t *testing.T) {
	f := newAssistFixture(t, "unused")

	_, err := f.service.Summary(context.Background(), 3)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_NOT_FOUND))
}

func TestSearch_AnswersQuestion(t *testing.T) {
	f := newAssistFixture(t, "They ship on Friday.")
	f.finalizeMeeting(t, []entities.TranscriptEntry{
		{SpeakerName: "Alice", Text: "we should ship on friday", CapturedAtMs: 1700000001000},
	})

	results, err := f.service.Search(context.Background(), 0, "when do they ship?")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "when do they ship?", results[0].Question)
	assert.Equal(t, "They ship on Friday.", results[0].Answer)

	prompts := f.recordedPrompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "when do they ship?")
}

func TestDistinctUtterances(t *testing.T) {
	entries := []entities.TranscriptEntry{
		{SpeakerName: "Alice", Text: "hello everyone"},
		{SpeakerName: "Bob", Text: "hello everyone"},
		{SpeakerName: "Alice", Text: "  "},
		{SpeakerName: "Alice", Text: "let's get started"},
		{SpeakerName: "Alice", Text: "hello everyone"},
	}
	assert.Equal(t, "hello everyone\n\nlet's get started", distinctUtterances(entries))
}

func TestBusHandlers_SummaryRoundTrip(t *testing.T) {
	f := newAssistFixture(t, "A short meeting about shipping.")
	f.finalizeMeeting(t, []entities.TranscriptEntry{
		{SpeakerName: "Alice", Text: "we should ship on friday", CapturedAtMs: 1700000001000},
	})

	d := bus.NewDispatcher(zap.NewNop())
	f.service.RegisterBusHandlers(d)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := d.Send(ctx, bus.TypeGenerateSummary, map[string]int{"index": 0})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Error)

	var result SummaryResult
	require.NoError(t, json.Unmarshal(resp.Payload, &result))
	assert.Equal(t, "A short meeting about shipping.", result.Summary)
}

func TestBusHandlers_SearchRejectsEmptyQuery(t *testing.T) {
	f := newAssistFixture(t, "unused")

	d := bus.NewDispatcher(zap.NewNop())
	f.service.RegisterBusHandlers(d)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := d.Send(ctx, bus.TypeSearchTranscript, map[string]interface{}{"index": 0, "query": "   "})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}
