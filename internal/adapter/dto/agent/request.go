// Package agent holds the wire types of the agent-facing ingest API.
package agent

// RegisterRequest announces an agent instance and the tab it reports from.
type RegisterRequest struct {
	AgentID string `json:"agentId" validate:"required"`
	TabID   int    `json:"tabId" validate:"required"`
}

// ItemPayload is one observed caption or chat item.
type ItemPayload struct {
	Fields map[string]string `json:"fields" validate:"required"`
}

// RegionSnapshotRequest carries the full current content of a capture region.
type RegionSnapshotRequest struct {
	TabID        int           `json:"tabId"`
	Target       string        `json:"target" validate:"required,oneof=captions chat"`
	Items        []ItemPayload `json:"items"`
	Missing      bool          `json:"missing"`
	ObservedAtMs int64         `json:"observedAtMs" validate:"required"`
}

// ControlPayload identifies a host-page control element.
type ControlPayload struct {
	Selector string `json:"selector" validate:"required"`
	Label    string `json:"label" validate:"required"`
}

// ControlSnapshotRequest carries the set of control elements currently
// present on the page.
type ControlSnapshotRequest struct {
	TabID        int              `json:"tabId"`
	Controls     []ControlPayload `json:"controls"`
	ObservedAtMs int64            `json:"observedAtMs" validate:"required"`
}

// ClickRequest reports a user click on a control element.
type ClickRequest struct {
	TabID        int            `json:"tabId"`
	Control      ControlPayload `json:"control" validate:"required"`
	ObservedAtMs int64          `json:"observedAtMs" validate:"required"`
}

// TitleRequest reports the current host-page title.
type TitleRequest struct {
	TabID int    `json:"tabId"`
	Title string `json:"title" validate:"required"`
}

// TabClosedRequest reports that a tab was removed.
type TabClosedRequest struct {
	TabID int `json:"tabId" validate:"required"`
}
