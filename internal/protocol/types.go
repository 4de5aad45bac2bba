package protocol

// Wire types shared by the repolens service and the browser shim. The shim
// is an untrusted reporter: everything here is advisory input or derived
// output, never authoritative page state.

// TabEventRequest is one navigation/tab-update event observed by the
// privileged background context.
type TabEventRequest struct {
	TabID int    `json:"tab_id"`
	URL   string `json:"url"`
}

type TabEventResponse struct {
	Accepted bool `json:"accepted"`
}

// SnapshotLine is one rendered manifest line: its render-pass-scoped key,
// text content, and vertical offset in page coordinates.
type SnapshotLine struct {
	Key  string `json:"key"`
	Text string `json:"text"`
	Top  int    `json:"top"`
}

// SnapshotRequest is one observation of the rendered manifest view.
type SnapshotRequest struct {
	URL              string         `json:"url,omitempty"`
	ContainerPresent bool           `json:"container_present"`
	AnchorPresent    bool           `json:"anchor_present"`
	AnchorX          int            `json:"anchor_x"`
	Lines            []SnapshotLine `json:"lines"`
}

type SnapshotResponse struct {
	Accepted bool   `json:"accepted"`
	State    string `json:"state"`
}

// ViewportRequest signals a scroll or resize without content change.
type ViewportRequest struct {
	Kind string `json:"kind,omitempty"`
}

// ControlPlacement is one shortcut control the shim should draw: where, and
// which HTTPS URL a user activation opens in a new unprivileged context.
type ControlPlacement struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	LineKey string `json:"line_key"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

type ControlsResponse struct {
	State    string             `json:"state"`
	Controls []ControlPlacement `json:"controls"`
}

type SessionStateResponse struct {
	State       string `json:"state"`
	LastURL     string `json:"last_url"`
	RecordCount int    `json:"record_count"`
}

type ServerInfo struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	MinShimVersion string `json:"min_shim_version"`
	SiteDomain     string `json:"site_domain"`
	ManifestMarker string `json:"manifest_marker"`
}

// ManifestViewSummary is one manifest page the service has parsed, as kept
// in the history store.
type ManifestViewSummary struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	FirstSeenUTC string `json:"first_seen_utc"`
	LastSeenUTC  string `json:"last_seen_utc"`
	ParseCount   int    `json:"parse_count"`
	Repositories int    `json:"repositories"`
}

// ManifestRepository is one stored repository record of a manifest view.
type ManifestRepository struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	URL     string `json:"url"`
	Version string `json:"version,omitempty"`
}
