package agent

// RegisterResponse acknowledges an agent, carrying a bearer token when the
// ingest API runs with token auth.
type RegisterResponse struct {
	Token string `json:"token,omitempty"`
}

// SnapshotResponse is returned for snapshot posts. Directives are controls
// the agent should click on the collector's behalf.
type SnapshotResponse struct {
	Directives []ControlPayload `json:"directives,omitempty"`
}
