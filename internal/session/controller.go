// Package session drives the capture lifecycle: wait for a meeting to begin,
// attach the caption and chat watchers, follow the title as it settles, and
// hand the finished session to delivery when the meeting ends. One session is
// live at a time; the loop re-arms for the next meeting instance.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/bridge"
	"github.com/Anvita004/transcriptpro/internal/bus"
	"github.com/Anvita004/transcriptpro/internal/capture"
	"github.com/Anvita004/transcriptpro/internal/domain/entities"
	"github.com/Anvita004/transcriptpro/internal/hostpage"
	"github.com/Anvita004/transcriptpro/internal/infrastructure/cache"
	"github.com/Anvita004/transcriptpro/internal/settings"
	"github.com/Anvita004/transcriptpro/pkg/config"
)

// tabBindPayload rides the meeting-start message so the tab watcher can bind
// the session to the closing-tab signal.
type tabBindPayload struct {
	TabID int `json:"tabId"`
}

// Controller runs the meeting state machine.
type Controller struct {
	feed       *hostpage.Feed
	variant    hostpage.UIVariant
	transcript *capture.Store[entities.TranscriptEntry]
	chat       *capture.Store[entities.ChatEntry]
	kv         cache.Store
	settings   *settings.Service
	dispatcher *bus.Dispatcher
	cfg        config.CaptureConfig
	logger     *zap.Logger

	mu         sync.Mutex
	directives []hostpage.Control
	degraded   bool

	sessionMu       sync.Mutex
	sessionCancel   context.CancelFunc
	sessionExternal bool
}

// NewController wires the session state machine.
func NewController(
	feed *hostpage.Feed,
	variant hostpage.UIVariant,
	transcript *capture.Store[entities.TranscriptEntry],
	chat *capture.Store[entities.ChatEntry],
	kv cache.Store,
	settingsSvc *settings.Service,
	dispatcher *bus.Dispatcher,
	cfg config.CaptureConfig,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		feed:       feed,
		variant:    variant,
		transcript: transcript,
		chat:       chat,
		kv:         kv,
		settings:   settingsSvc,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run loops over meeting instances until ctx is done. Each iteration waits
// for the meeting-end control to appear (the page is in a call exactly when
// it is present), runs the live session, and re-arms.
func (c *Controller) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if !c.settings.IsActive(ctx) || !c.captureAllowed(ctx) {
			if !sleepCtx(ctx, c.cfg.PollInterval) {
				return
			}
			continue
		}

		if !c.waitForControl(ctx, c.variant.MeetingEnd, c.cfg.WaitTimeout) {
			continue
		}
		c.runSession(ctx)
	}
}

// captureAllowed consults the stored status record: anything but 200
// suppresses capture and its message stands until the record clears.
func (c *Controller) captureAllowed(ctx context.Context) bool {
	status, err := c.settings.GetStatus(ctx)
	if err != nil {
		c.logger.Warn("could not read capture status", zap.Error(err))
		return true
	}
	if status.Status != 200 {
		c.logger.Warn("capture suppressed by stored status",
			zap.Int("status", status.Status),
			zap.String("message", status.Message))
		return false
	}
	return true
}

// waitForControl polls the latest control snapshot until the control shows
// up. Returns false on timeout or cancellation.
func (c *Controller) waitForControl(ctx context.Context, control hostpage.Control, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			c.logger.Warn("control did not appear",
				zap.String("selector", control.Selector),
				zap.String("label", control.Label))
			return false
		case <-ticker.C:
			if snap, ok := c.feed.LatestControls(); ok && snap.Has(control) {
				return true
			}
		}
	}
}

func (c *Controller) runSession(ctx context.Context) {
	startedAt := time.Now().UnixMilli()
	title := c.feed.Title()
	c.logger.Info("meeting started", zap.String("title", title))

	if err := c.persistSessionStart(ctx, title, startedAt); err != nil {
		c.logger.Error("could not persist session start", zap.Error(err))
		return
	}
	if err := c.settings.SetStatus(ctx, settings.StatusOK()); err != nil {
		c.logger.Warn("could not write status", zap.Error(err))
	}

	c.announceStart(ctx)

	sessionCtx, cancel := context.WithCancel(ctx)
	c.sessionMu.Lock()
	c.sessionCancel = cancel
	c.sessionExternal = false
	c.sessionMu.Unlock()
	defer func() {
		cancel()
		c.sessionMu.Lock()
		c.sessionCancel = nil
		c.sessionMu.Unlock()
		c.clearDegraded()
	}()

	captions := bridge.New(hostpage.TargetCaptions, hostpage.FieldCaptionSpeaker, hostpage.FieldCaptionText,
		c.appendTranscript, c, c.logger)
	chat := bridge.New(hostpage.TargetChat, hostpage.FieldChatSender, hostpage.FieldChatText,
		c.appendChat, c, c.logger)
	go captions.Run(sessionCtx, c.feed.Regions(hostpage.TargetCaptions))
	go chat.Run(sessionCtx, c.feed.Regions(hostpage.TargetChat))

	c.maybeEnableCaptions(ctx)

	// The page title is a placeholder until the host finishes loading;
	// re-read it once it had time to settle.
	titleTimer := time.AfterFunc(c.cfg.TitleSettleDelay, func() {
		if sessionCtx.Err() != nil {
			return
		}
		if settled := c.feed.Title(); settled != "" && settled != title {
			if err := cache.SetJSON(sessionCtx, c.kv, cache.KeyMeetingTitle, settled); err != nil {
				c.logger.Warn("could not update settled title", zap.Error(err))
			} else {
				c.logger.Info("meeting title settled", zap.String("title", settled))
			}
		}
	})
	defer titleTimer.Stop()

	c.waitForMeetingEnd(sessionCtx)
	if ctx.Err() != nil {
		return
	}
	c.sessionMu.Lock()
	external := c.sessionExternal
	c.sessionMu.Unlock()
	if external {
		// The tab watcher or a deactivation ended this session; whoever did
		// owns the transient state, so nothing may be flushed back.
		c.logger.Info("session ended externally")
		return
	}

	cancel()
	c.transcript.Flush(ctx)
	c.chat.Flush(ctx)
	c.logger.Info("meeting ended",
		zap.Int("transcript_entries", c.transcript.Len()),
		zap.Int("chat_entries", c.chat.Len()))

	resp, err := c.dispatcher.Send(ctx, bus.TypeMeetingEnded, nil)
	if err != nil {
		c.logger.Error("meeting-ended dispatch failed", zap.Error(err))
		return
	}
	if !resp.Success {
		c.logger.Error("meeting finalize reported failure", zap.String("error", resp.Error))
	}
}

// EndLiveSession cancels the live session and drops its in-memory capture
// buffers, so nothing flushes back after the caller disposes of the transient
// state. Reports whether a session was live. Called by the tab watcher when
// the meeting tab disappears.
func (c *Controller) EndLiveSession() bool {
	c.sessionMu.Lock()
	cancel := c.sessionCancel
	if cancel != nil {
		c.sessionExternal = true
		c.sessionCancel = nil
	}
	c.sessionMu.Unlock()
	if cancel == nil {
		return false
	}

	cancel()
	c.transcript.Reset()
	c.chat.Reset()
	c.logger.Info("live session ended externally")
	return true
}

// AbortLiveSession ends the live session and discards everything it captured,
// in memory and in the transient keys. Used when capture is switched off
// mid-meeting.
func (c *Controller) AbortLiveSession(ctx context.Context) error {
	if !c.EndLiveSession() {
		return nil
	}
	c.logger.Info("live session aborted, captured state discarded")
	err := c.kv.Delete(ctx,
		cache.KeyTranscript,
		cache.KeyChatMessages,
		cache.KeyMeetingTitle,
		cache.KeyMeetingStartTimestamp,
		cache.KeyMeetingTabID,
	)
	if err != nil {
		return apperrors.ErrCacheFailed("clear aborted session keys", err)
	}
	return nil
}

// persistSessionStart seeds the transient keys so a crash mid-meeting leaves
// recoverable state from the first second on.
func (c *Controller) persistSessionStart(ctx context.Context, title string, startedAt int64) error {
	c.transcript.Clear(ctx)
	c.chat.Clear(ctx)
	if err := cache.SetJSON(ctx, c.kv, cache.KeyMeetingTitle, title); err != nil {
		return apperrors.ErrCacheFailed("set "+cache.KeyMeetingTitle, err)
	}
	if err := cache.SetJSON(ctx, c.kv, cache.KeyMeetingStartTimestamp, startedAt); err != nil {
		return apperrors.ErrCacheFailed("set "+cache.KeyMeetingStartTimestamp, err)
	}
	return nil
}

// announceStart tells the delivery side a meeting began, carrying the agent's
// tab id so the tab watcher can bind it.
func (c *Controller) announceStart(ctx context.Context) {
	var payload interface{}
	if tabID, ok := c.feed.AgentTab(); ok {
		payload = tabBindPayload{TabID: tabID}
	}
	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := c.dispatcher.Send(sendCtx, bus.TypeNewMeetingStarted, payload); err != nil {
		c.logger.Warn("meeting-start announcement failed", zap.Error(err))
	}
}

// maybeEnableCaptions queues a click on the captions toggle when running in
// auto mode. The agent picks the directive up with its next snapshot post.
func (c *Controller) maybeEnableCaptions(ctx context.Context) {
	cfg, err := c.settings.Get(ctx)
	if err != nil {
		c.logger.Warn("could not read operation mode", zap.Error(err))
		return
	}
	if cfg.OperationMode != settings.ModeAuto {
		return
	}

	if snap, ok := c.feed.LatestControls(); !ok || !snap.Has(c.variant.CaptionsToggle) {
		c.NotifyDegraded(hostpage.TargetCaptions,
			fmt.Errorf("captions toggle %s %q not present", c.variant.CaptionsToggle.Selector, c.variant.CaptionsToggle.Label))
		return
	}
	c.queueDirective(c.variant.CaptionsToggle)
	c.logger.Info("queued captions-toggle click")
}

func (c *Controller) waitForMeetingEnd(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case click := <-c.feed.Clicks():
			if click.Control == c.variant.MeetingEnd {
				return
			}
		}
	}
}

func (c *Controller) appendTranscript(speaker, text string, capturedAtMs int64) bool {
	return c.transcript.TryAppend(entities.TranscriptEntry{
		SpeakerName:  speaker,
		Text:         text,
		CapturedAtMs: capturedAtMs,
	})
}

func (c *Controller) appendChat(speaker, text string, capturedAtMs int64) bool {
	return c.chat.TryAppend(entities.ChatEntry{
		SpeakerName:  speaker,
		Text:         text,
		CapturedAtMs: capturedAtMs,
	})
}

// NotifyDegraded implements bridge.Notifier: a capture target lost its
// expected page structure, so the user-visible status flips to a warning
// while the session keeps running on whatever still works.
func (c *Controller) NotifyDegraded(target hostpage.Target, err error) {
	c.logger.Warn("capture target degraded", zap.String("target", string(target)), zap.Error(err))
	c.mu.Lock()
	c.degraded = true
	c.mu.Unlock()
	status := settings.Status{
		Status:  400,
		Message: fmt.Sprintf("Capture of %s is degraded for this meeting. The page layout may have changed.", target),
	}
	if setErr := c.settings.SetStatus(context.Background(), status); setErr != nil {
		c.logger.Error("could not record degraded status", zap.Error(setErr))
	}
}

// clearDegraded resets a degraded status written during the session that
// just ended. The record says "for this meeting"; external suppressing
// records were never overwritten and stay.
func (c *Controller) clearDegraded() {
	c.mu.Lock()
	wasDegraded := c.degraded
	c.degraded = false
	c.mu.Unlock()
	if !wasDegraded {
		return
	}
	if err := c.settings.SetStatus(context.Background(), settings.StatusOK()); err != nil {
		c.logger.Warn("could not reset degraded status", zap.Error(err))
	}
}

// queueDirective appends a click directive for the agent.
func (c *Controller) queueDirective(control hostpage.Control) {
	c.mu.Lock()
	c.directives = append(c.directives, control)
	c.mu.Unlock()
}

// DrainDirectives hands out and clears the pending click directives. Called
// by the ingest surface when building a snapshot response.
func (c *Controller) DrainDirectives() []hostpage.Control {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.directives
	c.directives = nil
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
