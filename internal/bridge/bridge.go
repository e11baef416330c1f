// Package bridge translates host-page mutations into capture-store appends.
// Every snapshot carries the full current set of items for its region - the
// host page's structure makes incremental diffing unreliable, so the bridge
// always re-extracts everything and lets the store's dedup drop what it has
// already seen. This is intentional, not an oversight; it is O(all items) per
// mutation, which is acceptable for expected meeting durations.
package bridge

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/hostpage"
)

// Appender stores one extracted (speaker, text) pair and reports whether it
// was genuinely new.
type Appender func(speaker, text string, capturedAtMs int64) bool

// Notifier surfaces a one-time degraded-mode warning to the user.
type Notifier interface {
	NotifyDegraded(target hostpage.Target, err error)
}

// Bridge is one change-watcher, bound to a single capture target for the
// lifetime of a session.
type Bridge struct {
	target       hostpage.Target
	speakerField string
	textField    string
	appendEntry  Appender
	notifier     Notifier
	logger       *zap.Logger

	// Degraded-mode notification fires at most once per session per target.
	domErrorCaptured bool
}

// New creates a bridge for target extracting the given item fields.
func New(target hostpage.Target, speakerField, textField string, appendEntry Appender, notifier Notifier, logger *zap.Logger) *Bridge {
	return &Bridge{
		target:       target,
		speakerField: speakerField,
		textField:    textField,
		appendEntry:  appendEntry,
		notifier:     notifier,
		logger:       logger,
	}
}

// Run consumes region snapshots until the context is cancelled. A snapshot
// with missing structure degrades the target but never stops the loop; the
// session continues on the other target.
func (b *Bridge) Run(ctx context.Context, snapshots <-chan hostpage.RegionSnapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			// A snapshot buffered behind the cancellation belongs to a session
			// that no longer exists.
			if ctx.Err() != nil {
				return
			}
			b.Handle(snap)
		}
	}
}

// Handle processes one region snapshot.
func (b *Bridge) Handle(snap hostpage.RegionSnapshot) {
	if snap.Missing {
		b.degrade(errors.ErrDomStructure(string(b.target), nil))
		return
	}

	capturedAt := snap.ObservedAtMs
	if capturedAt == 0 {
		capturedAt = time.Now().UnixMilli()
	}

	appended := 0
	for _, item := range snap.Items {
		speaker := strings.TrimSpace(item.Fields[b.speakerField])
		text := strings.TrimSpace(item.Fields[b.textField])
		// Skip items where either field is empty or unextractable.
		if speaker == "" || text == "" {
			continue
		}
		if b.appendEntry(speaker, text, capturedAt) {
			appended++
		}
	}

	if appended > 0 {
		b.logger.Debug("captured new entries",
			zap.String("target", string(b.target)),
			zap.Int("count", appended),
		)
	}
}

func (b *Bridge) degrade(err error) {
	if b.domErrorCaptured {
		return
	}
	b.domErrorCaptured = true
	b.logger.Error("capture target structure not recognized",
		zap.String("target", string(b.target)),
		zap.Error(err),
	)
	if b.notifier != nil {
		b.notifier.NotifyDegraded(b.target, err)
	}
}
