// Package hostpage models the host page as an external push-based event
// source. A thin in-page agent relays raw observations - full region
// snapshots, control-element snapshots, clicks, title changes, tab removal -
// and the collector interprets them. The agent carries no capture logic.
package hostpage

// Target is one of the two watched host-page regions.
type Target string

const (
	TargetCaptions Target = "captions"
	TargetChat     Target = "chat"
)

// Item is one caption/chat item element, flattened to its extracted text
// fields keyed by the container-scoped sub-selector that produced them.
type Item struct {
	Fields map[string]string `json:"fields"`
}

// RegionSnapshot is the full current content of a capture target, re-queried
// on every host-page mutation. Missing marks the expected container structure
// as absent (markup changed, or an unknown UI variant is in use).
type RegionSnapshot struct {
	Target       Target `json:"target"`
	Items        []Item `json:"items"`
	Missing      bool   `json:"missing"`
	ObservedAtMs int64  `json:"observedAtMs"`
}

// Control is a host-page control element, identified by the icon selector
// class and its label text.
type Control struct {
	Selector string `json:"selector"`
	Label    string `json:"label"`
}

// ControlSnapshot is the set of control elements currently present.
type ControlSnapshot struct {
	Controls     []Control `json:"controls"`
	ObservedAtMs int64     `json:"observedAtMs"`
}

// Has reports whether the snapshot contains the given control.
func (s ControlSnapshot) Has(c Control) bool {
	for _, ctrl := range s.Controls {
		if ctrl.Selector == c.Selector && ctrl.Label == c.Label {
			return true
		}
	}
	return false
}

// ClickEvent is a user click on a host-page control.
type ClickEvent struct {
	Control      Control `json:"control"`
	ObservedAtMs int64   `json:"observedAtMs"`
}
