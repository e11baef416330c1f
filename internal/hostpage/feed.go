package hostpage

import (
	"sync"

	"go.uber.org/zap"
)

const feedBuffer = 64

// Feed is the hub between the agent-facing ingest surfaces and the capture
// subsystems. Each event class has a single consumer, so channels are owned
// by the feed and handed out directly. Publishing never blocks: when a
// consumer falls behind, the event is dropped and logged - the next full
// region snapshot carries the complete state anyway.
type Feed struct {
	mu       sync.RWMutex
	regions  map[Target]chan RegionSnapshot
	clicks   chan ClickEvent
	tabs     chan int
	controls ControlSnapshot
	hasCtrls bool
	title    string
	agentTab int
	hasTab   bool
	logger   *zap.Logger
}

// NewFeed creates the event hub.
func NewFeed(logger *zap.Logger) *Feed {
	return &Feed{
		regions: map[Target]chan RegionSnapshot{
			TargetCaptions: make(chan RegionSnapshot, feedBuffer),
			TargetChat:     make(chan RegionSnapshot, feedBuffer),
		},
		clicks: make(chan ClickEvent, feedBuffer),
		tabs:   make(chan int, feedBuffer),
		logger: logger,
	}
}

// Regions returns the snapshot channel for a capture target.
func (f *Feed) Regions(target Target) <-chan RegionSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.regions[target]
}

// Clicks returns the control click channel.
func (f *Feed) Clicks() <-chan ClickEvent { return f.clicks }

// TabsClosed returns the tab removal channel.
func (f *Feed) TabsClosed() <-chan int { return f.tabs }

// PublishRegion delivers a region snapshot to its consumer.
func (f *Feed) PublishRegion(snap RegionSnapshot) {
	f.mu.RLock()
	ch, ok := f.regions[snap.Target]
	f.mu.RUnlock()
	if !ok {
		f.logger.Warn("region snapshot for unknown target", zap.String("target", string(snap.Target)))
		return
	}
	select {
	case ch <- snap:
	default:
		f.logger.Warn("dropping region snapshot, consumer behind", zap.String("target", string(snap.Target)))
	}
}

// PublishControls records the latest control snapshot for pollers.
func (f *Feed) PublishControls(snap ControlSnapshot) {
	f.mu.Lock()
	f.controls = snap
	f.hasCtrls = true
	f.mu.Unlock()
}

// LatestControls returns the most recent control snapshot, if any was seen.
func (f *Feed) LatestControls() (ControlSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.controls, f.hasCtrls
}

// PublishClick delivers a control click to its consumer.
func (f *Feed) PublishClick(ev ClickEvent) {
	select {
	case f.clicks <- ev:
	default:
		f.logger.Warn("dropping click event, consumer behind")
	}
}

// PublishTabClosed delivers a tab removal notification.
func (f *Feed) PublishTabClosed(tabID int) {
	select {
	case f.tabs <- tabID:
	default:
		f.logger.Warn("dropping tab-closed event, consumer behind")
	}
}

// SetAgentTab records the tab id the agent is reporting from.
func (f *Feed) SetAgentTab(tabID int) {
	f.mu.Lock()
	f.agentTab = tabID
	f.hasTab = true
	f.mu.Unlock()
}

// AgentTab returns the reporting tab id, if the agent announced one.
func (f *Feed) AgentTab() (int, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.agentTab, f.hasTab
}

// PublishTitle records the current host-page title.
func (f *Feed) PublishTitle(title string) {
	f.mu.Lock()
	f.title = title
	f.mu.Unlock()
}

// Title returns the last observed host-page title.
func (f *Feed) Title() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.title
}
