package delivery

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/domain/entities"
	"github.com/Anvita004/transcriptpro/internal/domain/repositories"
	"github.com/Anvita004/transcriptpro/internal/infrastructure/cache"
	"github.com/Anvita004/transcriptpro/internal/infrastructure/storage"
	"github.com/Anvita004/transcriptpro/internal/normalize"
	"github.com/Anvita004/transcriptpro/internal/settings"
)

// chatSectionBanner separates the transcript from the chat log in the
// delivered file.
const chatSectionBanner = "\n\n---------------\nCHAT MESSAGES\n---------------\n\n"

// Trigger identifies which path initiated a finalize.
type Trigger string

const (
	TriggerExplicitEnd Trigger = "explicit-end"
	TriggerTabClosed   Trigger = "tab-closed"
	TriggerRecovery    Trigger = "recovery"
)

// MeetingMeta is what the bounded history list and the per-meeting metadata
// key hold: everything about a finalized meeting except the entry arrays,
// which live under their own keys.
type MeetingMeta struct {
	ID                 string                  `json:"id"`
	Title              string                  `json:"title"`
	StartedAtMs        int64                   `json:"startedAtMs"`
	EndedAtMs          int64                   `json:"endedAtMs"`
	TranscriptLength   int                     `json:"transcriptLength"`
	ChatMessagesLength int                     `json:"chatMessagesLength"`
	DeliveryStatus     entities.DeliveryStatus `json:"deliveryStatus"`
}

// Coordinator owns the finalize pipeline: it turns the transient capture
// state into a durable meeting record, writes the transcript file, posts the
// webhook, and clears the transient keys exactly once. All entry points are
// serialized so concurrent triggers (explicit end racing a tab close, or the
// recovery probe) cannot double-deliver.
type Coordinator struct {
	mu sync.Mutex

	kv          cache.Store
	files       *FileWriter
	webhook     *WebhookPoster
	settings    *settings.Service
	archive     repositories.MeetingRepository // nil when the database is disabled
	backup      *storage.TranscriptBackup      // nil when object storage is disabled
	historySize int
	logger      *zap.Logger
}

// NewCoordinator wires the delivery pipeline. archive and backup may be nil.
func NewCoordinator(
	kv cache.Store,
	files *FileWriter,
	webhook *WebhookPoster,
	settingsSvc *settings.Service,
	archive repositories.MeetingRepository,
	backup *storage.TranscriptBackup,
	historySize int,
	logger *zap.Logger,
) *Coordinator {
	if historySize <= 0 {
		historySize = 10
	}
	return &Coordinator{
		kv:          kv,
		files:       files,
		webhook:     webhook,
		settings:    settingsSvc,
		archive:     archive,
		backup:      backup,
		historySize: historySize,
		logger:      logger,
	}
}

// Finalize runs the full delivery pipeline. It returns the new meeting id,
// or "" with a nil error when there was no transient state to finalize
// (a second trigger arriving after the first already cleared everything).
func (c *Coordinator) Finalize(ctx context.Context, trigger Trigger) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, present, err := c.readTransient(ctx)
	if err != nil {
		return "", err
	}
	if !present {
		// Nothing captured and nothing to clear: an earlier finalize won.
		c.logger.Debug("finalize found no transient state", zap.String("trigger", string(trigger)))
		return "", nil
	}
	if session.IsEmpty() {
		return "", apperrors.ErrEmptyCapture()
	}

	rec := entities.NewMeetingRecord(session, time.Now().UnixMilli())
	c.logger.Info("finalizing meeting",
		zap.String("trigger", string(trigger)),
		zap.String("meeting_id", rec.ID),
		zap.String("title", rec.Title),
		zap.Int("transcript_entries", len(rec.Transcript)),
		zap.Int("chat_entries", len(rec.Chat)))

	if err := c.persistRecord(ctx, rec); err != nil {
		return "", err
	}

	// Delivery legs after this point must not lose the already-persisted
	// record: file fallback recovers filename problems, and a webhook failure
	// is recorded on the record rather than surfaced.
	content := renderFileContent(rec.Transcript, rec.Chat)
	filename, err := c.writeFile(rec, content)
	if err != nil {
		return "", err
	}

	if c.backup != nil {
		if err := c.backup.UploadTranscript(ctx, rec.ID, filename, content); err != nil {
			c.logger.Warn("transcript backup failed", zap.String("meeting_id", rec.ID), zap.Error(err))
		}
	}

	c.deliverWebhook(ctx, rec)
	c.archiveRecord(ctx, rec)

	if err := c.clearTransient(ctx); err != nil {
		return "", err
	}

	c.logger.Info("meeting finalized", zap.String("meeting_id", rec.ID))
	return rec.ID, nil
}

// readTransient loads the live capture state. The second return reports
// whether either capture key existed at all, which is how a finalize that
// already ran is distinguished from a meeting where nothing was said.
func (c *Coordinator) readTransient(ctx context.Context) (entities.CaptureSession, bool, error) {
	var session entities.CaptureSession

	haveTranscript, err := cache.GetJSON(ctx, c.kv, cache.KeyTranscript, &session.Transcript)
	if err != nil {
		return session, false, apperrors.ErrCacheFailed("get "+cache.KeyTranscript, err)
	}
	haveChat, err := cache.GetJSON(ctx, c.kv, cache.KeyChatMessages, &session.Chat)
	if err != nil {
		return session, false, apperrors.ErrCacheFailed("get "+cache.KeyChatMessages, err)
	}
	if !haveTranscript && !haveChat {
		return session, false, nil
	}

	if _, err := cache.GetJSON(ctx, c.kv, cache.KeyMeetingTitle, &session.Title); err != nil {
		return session, false, apperrors.ErrCacheFailed("get "+cache.KeyMeetingTitle, err)
	}

	found, err := cache.GetJSON(ctx, c.kv, cache.KeyMeetingStartTimestamp, &session.StartedAtMs)
	if err != nil {
		return session, false, apperrors.ErrCacheFailed("get "+cache.KeyMeetingStartTimestamp, err)
	}
	if !found {
		// Migrate the old key casing in place so later reads use the
		// canonical name.
		if found, err = cache.GetJSON(ctx, c.kv, cache.KeyMeetingStartTimestampLegacy, &session.StartedAtMs); err != nil {
			return session, false, apperrors.ErrCacheFailed("get "+cache.KeyMeetingStartTimestampLegacy, err)
		}
		if found {
			if err := cache.SetJSON(ctx, c.kv, cache.KeyMeetingStartTimestamp, session.StartedAtMs); err != nil {
				return session, false, apperrors.ErrCacheFailed("set "+cache.KeyMeetingStartTimestamp, err)
			}
			if err := c.kv.Delete(ctx, cache.KeyMeetingStartTimestampLegacy); err != nil {
				return session, false, apperrors.ErrCacheFailed("delete "+cache.KeyMeetingStartTimestampLegacy, err)
			}
		}
	}

	return session, true, nil
}

// persistRecord writes the per-meeting keys and appends to the bounded
// history, then reads everything back to confirm durability before any
// delivery leg runs.
func (c *Coordinator) persistRecord(ctx context.Context, rec *entities.MeetingRecord) error {
	meta := metaOf(rec)

	if err := cache.SetJSON(ctx, c.kv, cache.MeetingKey(rec.ID), meta); err != nil {
		return apperrors.ErrPersistFailure(cache.MeetingKey(rec.ID), err)
	}
	if err := cache.SetJSON(ctx, c.kv, cache.TranscriptKey(rec.ID), rec.Transcript); err != nil {
		return apperrors.ErrPersistFailure(cache.TranscriptKey(rec.ID), err)
	}
	if err := cache.SetJSON(ctx, c.kv, cache.ChatKey(rec.ID), rec.Chat); err != nil {
		return apperrors.ErrPersistFailure(cache.ChatKey(rec.ID), err)
	}

	history, err := c.History(ctx)
	if err != nil {
		return err
	}
	history = append(history, meta)
	if len(history) > c.historySize {
		evicted := history[:len(history)-c.historySize]
		history = history[len(history)-c.historySize:]
		for _, old := range evicted {
			if err := c.kv.Delete(ctx, cache.MeetingKey(old.ID), cache.TranscriptKey(old.ID), cache.ChatKey(old.ID)); err != nil {
				c.logger.Warn("failed to evict old meeting keys", zap.String("meeting_id", old.ID), zap.Error(err))
			}
		}
	}
	if err := cache.SetJSON(ctx, c.kv, cache.KeyMeetings, history); err != nil {
		return apperrors.ErrPersistFailure(cache.KeyMeetings, err)
	}

	// Read-back verification: transient state may only be cleared once the
	// durable copy is provably in place.
	for _, key := range []string{cache.MeetingKey(rec.ID), cache.TranscriptKey(rec.ID), cache.ChatKey(rec.ID)} {
		if _, ok, err := c.kv.Get(ctx, key); err != nil || !ok {
			return apperrors.ErrPersistFailure(key, err)
		}
	}
	return nil
}

// writeFile writes the transcript file, falling back to a plain name when the
// title-derived one is rejected by the filesystem.
func (c *Coordinator) writeFile(rec *entities.MeetingRecord, content string) (string, error) {
	filename := Filename(rec.Title, rec.StartedAtMs)
	if _, err := c.files.Write(filename, content); err != nil {
		c.logger.Warn("transcript filename rejected, retrying with fallback",
			zap.String("filename", filename), zap.Error(err))
		filename = FallbackFilename
		if _, err := c.files.Write(filename, content); err != nil {
			return "", apperrors.ErrFilenameFailure(filename, err)
		}
	}
	return filename, nil
}

// deliverWebhook posts the record when a webhook is configured and records
// the outcome on the persisted record. Webhook failures never fail the
// finalize.
func (c *Coordinator) deliverWebhook(ctx context.Context, rec *entities.MeetingRecord) {
	cfg, err := c.settings.Get(ctx)
	if err != nil {
		c.logger.Warn("could not read webhook settings", zap.Error(err))
		return
	}
	if !cfg.WebhookEnabled || cfg.WebhookURL == "" {
		return
	}

	status := entities.DeliveryStatusDelivered
	if err := c.webhook.Post(ctx, cfg.WebhookURL, cfg.WebhookBodyType, rec); err != nil {
		c.logger.Warn("webhook delivery failed", zap.String("meeting_id", rec.ID), zap.Error(err))
		status = entities.DeliveryStatusFailed
	}
	rec.DeliveryStatus = status
	if err := c.setDeliveryStatus(ctx, rec.ID, status); err != nil {
		c.logger.Warn("could not record delivery status", zap.String("meeting_id", rec.ID), zap.Error(err))
	}
}

// archiveRecord mirrors the record into the database archive, best effort.
func (c *Coordinator) archiveRecord(ctx context.Context, rec *entities.MeetingRecord) {
	if c.archive == nil {
		return
	}
	if err := c.archive.CreateMeeting(ctx, rec); err != nil {
		c.logger.Warn("meeting archive write failed", zap.String("meeting_id", rec.ID), zap.Error(err))
	}
}

// clearTransient removes the live-session keys and the tab binding. This is
// the single place they are cleared, after every required pipeline step
// succeeded.
func (c *Coordinator) clearTransient(ctx context.Context) error {
	err := c.kv.Delete(ctx,
		cache.KeyTranscript,
		cache.KeyChatMessages,
		cache.KeyMeetingTitle,
		cache.KeyMeetingStartTimestamp,
		cache.KeyMeetingStartTimestampLegacy,
		cache.KeyMeetingTabID,
	)
	if err != nil {
		return apperrors.ErrCacheFailed("clear transient keys", err)
	}
	return nil
}

// History returns the bounded list of recent meetings, oldest first.
func (c *Coordinator) History(ctx context.Context) ([]MeetingMeta, error) {
	var history []MeetingMeta
	if _, err := cache.GetJSON(ctx, c.kv, cache.KeyMeetings, &history); err != nil {
		return nil, apperrors.ErrCacheFailed("get "+cache.KeyMeetings, err)
	}
	return history, nil
}

// RecordAtIndex loads a fully assembled meeting record by its position in the
// history list.
func (c *Coordinator) RecordAtIndex(ctx context.Context, index int) (*entities.MeetingRecord, error) {
	history, err := c.History(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(history) {
		return nil, apperrors.ErrNotFound("meeting index " + strconv.Itoa(index))
	}
	return c.loadRecord(ctx, history[index])
}

func (c *Coordinator) loadRecord(ctx context.Context, meta MeetingMeta) (*entities.MeetingRecord, error) {
	rec := &entities.MeetingRecord{
		ID:             meta.ID,
		Title:          meta.Title,
		StartedAtMs:    meta.StartedAtMs,
		EndedAtMs:      meta.EndedAtMs,
		DeliveryStatus: meta.DeliveryStatus,
	}
	if found, err := cache.GetJSON(ctx, c.kv, cache.TranscriptKey(meta.ID), &rec.Transcript); err != nil {
		return nil, apperrors.ErrCacheFailed("get "+cache.TranscriptKey(meta.ID), err)
	} else if !found {
		return nil, apperrors.ErrNotFound("meeting transcript")
	}
	if _, err := cache.GetJSON(ctx, c.kv, cache.ChatKey(meta.ID), &rec.Chat); err != nil {
		return nil, apperrors.ErrCacheFailed("get "+cache.ChatKey(meta.ID), err)
	}
	return rec, nil
}

// DownloadAtIndex re-writes the transcript file for a past meeting from the
// history list.
func (c *Coordinator) DownloadAtIndex(ctx context.Context, index int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.RecordAtIndex(ctx, index)
	if err != nil {
		return "", err
	}
	return c.writeFile(rec, renderFileContent(rec.Transcript, rec.Chat))
}

// RetryWebhookAtIndex re-posts a past meeting to the currently configured
// webhook and updates its delivery status.
func (c *Coordinator) RetryWebhookAtIndex(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.RecordAtIndex(ctx, index)
	if err != nil {
		return err
	}

	cfg, err := c.settings.Get(ctx)
	if err != nil {
		return err
	}
	if cfg.WebhookURL == "" {
		return apperrors.ErrInvalidArgument("no webhook URL configured")
	}

	postErr := c.webhook.Post(ctx, cfg.WebhookURL, cfg.WebhookBodyType, rec)
	status := entities.DeliveryStatusDelivered
	if postErr != nil {
		status = entities.DeliveryStatusFailed
	}
	if err := c.setDeliveryStatus(ctx, rec.ID, status); err != nil {
		c.logger.Warn("could not record delivery status", zap.String("meeting_id", rec.ID), zap.Error(err))
	}
	return postErr
}

// setDeliveryStatus updates the status in the per-meeting metadata, the
// history list, and the archive when present.
func (c *Coordinator) setDeliveryStatus(ctx context.Context, id string, status entities.DeliveryStatus) error {
	var meta MeetingMeta
	if found, err := cache.GetJSON(ctx, c.kv, cache.MeetingKey(id), &meta); err != nil {
		return apperrors.ErrCacheFailed("get "+cache.MeetingKey(id), err)
	} else if found {
		meta.DeliveryStatus = status
		if err := cache.SetJSON(ctx, c.kv, cache.MeetingKey(id), meta); err != nil {
			return apperrors.ErrCacheFailed("set "+cache.MeetingKey(id), err)
		}
	}

	history, err := c.History(ctx)
	if err != nil {
		return err
	}
	for i := range history {
		if history[i].ID == id {
			history[i].DeliveryStatus = status
		}
	}
	if err := cache.SetJSON(ctx, c.kv, cache.KeyMeetings, history); err != nil {
		return apperrors.ErrCacheFailed("set "+cache.KeyMeetings, err)
	}

	if c.archive != nil {
		if err := c.archive.UpdateDeliveryStatus(ctx, id, status); err != nil {
			c.logger.Warn("archive status update failed", zap.String("meeting_id", id), zap.Error(err))
		}
	}
	return nil
}

func metaOf(rec *entities.MeetingRecord) MeetingMeta {
	return MeetingMeta{
		ID:                 rec.ID,
		Title:              rec.Title,
		StartedAtMs:        rec.StartedAtMs,
		EndedAtMs:          rec.EndedAtMs,
		TranscriptLength:   len(rec.Transcript),
		ChatMessagesLength: len(rec.Chat),
		DeliveryStatus:     rec.DeliveryStatus,
	}
}

func renderFileContent(transcript []entities.TranscriptEntry, chat []entities.ChatEntry) string {
	return normalize.RenderTranscript(transcript) + chatSectionBanner + normalize.RenderChat(chat)
}
