package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Anvita004/transcriptpro/internal/hostpage"
)

type recordingAppender struct {
	entries map[string]struct{}
	order   []string
}

func newRecordingAppender() *recordingAppender {
	return &recordingAppender{entries: make(map[string]struct{})}
}

func (r *recordingAppender) append(speaker, text string, _ int64) bool {
	key := speaker + "\x00" + text
	if _, dup := r.entries[key]; dup {
		return false
	}
	r.entries[key] = struct{}{}
	r.order = append(r.order, speaker+": "+text)
	return true
}

type countingNotifier struct {
	calls   int
	targets []hostpage.Target
}

func (n *countingNotifier) NotifyDegraded(target hostpage.Target, err error) {
	n.calls++
	n.targets = append(n.targets, target)
}

func snapshot(items ...map[string]string) hostpage.RegionSnapshot {
	snap := hostpage.RegionSnapshot{Target: hostpage.TargetCaptions, ObservedAtMs: 1000}
	for _, fields := range items {
		snap.Items = append(snap.Items, hostpage.Item{Fields: fields})
	}
	return snap
}

func TestHandle_ExtractsSpeakerAndText(t *testing.T) {
	app := newRecordingAppender()
	b := New(hostpage.TargetCaptions, hostpage.FieldCaptionSpeaker, hostpage.FieldCaptionText, app.append, nil, zap.NewNop())

	b.Handle(snapshot(
		map[string]string{"speaker": "Alice", "text": "hello"},
		map[string]string{"speaker": "Bob", "text": "hi"},
	))

	assert.Equal(t, []string{"Alice: hello", "Bob: hi"}, app.order)
}

func TestHandle_FullResnapshotDedups(t *testing.T) {
	app := newRecordingAppender()
	b := New(hostpage.TargetCaptions, hostpage.FieldCaptionSpeaker, hostpage.FieldCaptionText, app.append, nil, zap.NewNop())

	// Every mutation delivers the full region content; already-seen pairs
	// must not duplicate.
	b.Handle(snapshot(map[string]string{"speaker": "Alice", "text": "hello"}))
	b.Handle(snapshot(
		map[string]string{"speaker": "Alice", "text": "hello"},
		map[string]string{"speaker": "Alice", "text": "hello world"},
	))

	assert.Equal(t, []string{"Alice: hello", "Alice: hello world"}, app.order)
}

func TestHandle_SkipsItemsWithEmptyFields(t *testing.T) {
	app := newRecordingAppender()
	b := New(hostpage.TargetCaptions, hostpage.FieldCaptionSpeaker, hostpage.FieldCaptionText, app.append, nil, zap.NewNop())

	b.Handle(snapshot(
		map[string]string{"speaker": "Alice", "text": "   "},
		map[string]string{"speaker": "", "text": "orphan"},
		map[string]string{"speaker": "Bob", "text": "kept"},
	))

	assert.Equal(t, []string{"Bob: kept"}, app.order)
}

func TestHandle_MissingStructureDegradesOnce(t *testing.T) {
	app := newRecordingAppender()
	notifier := &countingNotifier{}
	b := New(hostpage.TargetCaptions, hostpage.FieldCaptionSpeaker, hostpage.FieldCaptionText, app.append, notifier, zap.NewNop())

	missing := hostpage.RegionSnapshot{Target: hostpage.TargetCaptions, Missing: true}
	b.Handle(missing)
	b.Handle(missing)
	b.Handle(missing)

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, hostpage.TargetCaptions, notifier.targets[0])

	// A degraded target still processes later well-formed snapshots.
	b.Handle(snapshot(map[string]string{"speaker": "Alice", "text": "back"}))
	assert.Equal(t, []string{"Alice: back"}, app.order)
}
