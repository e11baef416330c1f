// Package tabwatch reacts to the host tab disappearing. A meeting tab that
// closes without an explicit end click still has transient capture state in
// the store, so the close event triggers the same finalize pipeline, and a
// fresh process start probes for leftovers from a crash.
package tabwatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/delivery"
	"github.com/Anvita004/transcriptpro/internal/hostpage"
	"github.com/Anvita004/transcriptpro/internal/infrastructure/cache"
)

// SessionEnder ends the live capture session so its watchers detach and its
// buffers drop before the transient state is finalized.
type SessionEnder interface {
	EndLiveSession() bool
}

// Watcher binds the live meeting to a tab id and finalizes when that tab
// closes. Closes of unrelated tabs are ignored.
type Watcher struct {
	kv          cache.Store
	feed        *hostpage.Feed
	coordinator *delivery.Coordinator
	ender       SessionEnder
	logger      *zap.Logger
}

// NewWatcher creates the tab watcher. ender may be nil when no live session
// controller exists (tests, partial deployments).
func NewWatcher(kv cache.Store, feed *hostpage.Feed, coordinator *delivery.Coordinator, ender SessionEnder, logger *zap.Logger) *Watcher {
	return &Watcher{kv: kv, feed: feed, coordinator: coordinator, ender: ender, logger: logger}
}

// Bind associates the live session with a tab id.
func (w *Watcher) Bind(ctx context.Context, tabID int) error {
	if err := cache.SetJSON(ctx, w.kv, cache.KeyMeetingTabID, tabID); err != nil {
		return apperrors.ErrCacheFailed("set "+cache.KeyMeetingTabID, err)
	}
	w.logger.Info("meeting tab bound", zap.Int("tab_id", tabID))
	return nil
}

// Clear drops the tab binding without touching the capture state.
func (w *Watcher) Clear(ctx context.Context) error {
	if err := w.kv.Delete(ctx, cache.KeyMeetingTabID); err != nil {
		return apperrors.ErrCacheFailed("delete "+cache.KeyMeetingTabID, err)
	}
	return nil
}

// Run consumes tab-close events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case tabID := <-w.feed.TabsClosed():
			w.handleClosed(ctx, tabID)
		}
	}
}

func (w *Watcher) handleClosed(ctx context.Context, tabID int) {
	var bound int
	found, err := cache.GetJSON(ctx, w.kv, cache.KeyMeetingTabID, &bound)
	if err != nil {
		w.logger.Error("could not read tab binding", zap.Error(err))
		return
	}
	if !found || bound != tabID {
		return
	}

	w.logger.Info("meeting tab closed, finalizing", zap.Int("tab_id", tabID))

	// The session must die before its state is finalized, or a stale bridge
	// keeps appending and resurrects the cleared keys with already-delivered
	// entries.
	if w.ender != nil && w.ender.EndLiveSession() {
		w.logger.Info("live session ended for closed tab", zap.Int("tab_id", tabID))
	}

	if _, err := w.coordinator.Finalize(ctx, delivery.TriggerTabClosed); err != nil {
		if apperrors.IsCode(err, apperrors.ErrorCode_EMPTY_CAPTURE) {
			w.logger.Info("tab closed with empty capture, nothing delivered")
		} else {
			w.logger.Error("finalize after tab close failed", zap.Error(err))
		}
	}

	// The binding is cleared even when finalize failed: the tab is gone
	// either way. Transient capture keys stay for the recovery probe.
	if err := w.Clear(ctx); err != nil {
		w.logger.Error("could not clear tab binding", zap.Error(err))
	}
}

// RecoverOnStart finalizes capture state left behind by a crash or forced
// shutdown. The recovery attempt gets a bounded head start; when it does not
// resolve within timeout the caller proceeds and the attempt keeps running in
// the background, where the coordinator's serialization protects against a
// concurrent live-session finalize.
func RecoverOnStart(ctx context.Context, kv cache.Store, coordinator *delivery.Coordinator, timeout time.Duration, logger *zap.Logger) {
	raw, ok, err := kv.Get(ctx, cache.KeyTranscript)
	if err != nil {
		logger.Error("recovery probe could not read capture state", zap.Error(err))
		return
	}
	if !ok || raw == "" || raw == "[]" || raw == "null" {
		return
	}

	logger.Info("found unfinalized capture state, recovering")
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := coordinator.Finalize(ctx, delivery.TriggerRecovery); err != nil {
			if apperrors.IsCode(err, apperrors.ErrorCode_EMPTY_CAPTURE) {
				logger.Info("recovered state was empty, nothing delivered")
			} else {
				logger.Error("recovery finalize failed", zap.Error(err))
			}
		}
	}()

	select {
	case <-done:
		logger.Info("recovery finalize completed")
	case <-time.After(timeout):
		logger.Warn("recovery finalize still running, continuing startup")
	case <-ctx.Done():
	}
}
