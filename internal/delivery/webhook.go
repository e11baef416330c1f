package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/domain/entities"
	"github.com/Anvita004/transcriptpro/internal/normalize"
	"github.com/Anvita004/transcriptpro/internal/settings"
	"github.com/Anvita004/transcriptpro/pkg/config"
)

// simpleWebhookBody mirrors the transcript file: human-readable timestamps and
// pre-rendered transcript text.
type simpleWebhookBody struct {
	MeetingTitle          string `json:"meetingTitle"`
	MeetingStartTimestamp string `json:"meetingStartTimestamp"`
	MeetingEndTimestamp   string `json:"meetingEndTimestamp"`
	Transcript            string `json:"transcript"`
	ChatMessages          string `json:"chatMessages"`
}

// advancedWebhookBody carries machine-readable timestamps and the raw entry
// arrays for downstream processing.
type advancedWebhookBody struct {
	MeetingTitle          string                     `json:"meetingTitle"`
	MeetingStartTimestamp string                     `json:"meetingStartTimestamp"`
	MeetingEndTimestamp   string                     `json:"meetingEndTimestamp"`
	Transcript            []entities.TranscriptEntry `json:"transcript"`
	ChatMessages          []entities.ChatEntry       `json:"chatMessages"`
}

// WebhookPoster delivers finished meetings to a user-configured webhook URL
// with exponential-backoff retries.
type WebhookPoster struct {
	client     *http.Client
	maxElapsed time.Duration
	logger     *zap.Logger
}

// NewWebhookPoster creates a poster using the configured request timeout and
// retry window.
func NewWebhookPoster(cfg config.WebhookConfig, logger *zap.Logger) *WebhookPoster {
	return &WebhookPoster{
		client:     &http.Client{Timeout: cfg.RequestTimeout},
		maxElapsed: cfg.MaxElapsedTime,
		logger:     logger,
	}
}

// Post sends the meeting to url using the requested body type. Any non-2xx
// response counts as a failure; 4xx responses are not retried.
func (p *WebhookPoster) Post(ctx context.Context, url, bodyType string, rec *entities.MeetingRecord) error {
	payload, err := p.buildBody(bodyType, rec)
	if err != nil {
		return apperrors.ErrWebhookFailed(url, err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			p.logger.Warn("webhook request failed, will retry", zap.String("url", url), zap.Error(err))
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		statusErr := fmt.Errorf("webhook returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(statusErr)
		}
		p.logger.Warn("webhook rejected delivery, will retry", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return statusErr
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = p.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return apperrors.ErrWebhookFailed(url, err)
	}

	p.logger.Info("webhook delivered", zap.String("url", url), zap.String("meeting_id", rec.ID))
	return nil
}

func (p *WebhookPoster) buildBody(bodyType string, rec *entities.MeetingRecord) ([]byte, error) {
	switch bodyType {
	case settings.BodyTypeAdvanced:
		return json.Marshal(advancedWebhookBody{
			MeetingTitle:          rec.Title,
			MeetingStartTimestamp: time.UnixMilli(rec.StartedAtMs).UTC().Format(time.RFC3339),
			MeetingEndTimestamp:   time.UnixMilli(rec.EndedAtMs).UTC().Format(time.RFC3339),
			Transcript:            rec.Transcript,
			ChatMessages:          rec.Chat,
		})
	case settings.BodyTypeSimple, "":
		return json.Marshal(simpleWebhookBody{
			MeetingTitle:          rec.Title,
			MeetingStartTimestamp: normalize.FormatDisplayTime(rec.StartedAtMs),
			MeetingEndTimestamp:   normalize.FormatDisplayTime(rec.EndedAtMs),
			Transcript:            normalize.RenderTranscript(rec.Transcript),
			ChatMessages:          normalize.RenderChat(rec.Chat),
		})
	default:
		return nil, fmt.Errorf("unknown webhook body type %q", bodyType)
	}
}
