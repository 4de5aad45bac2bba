package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rvbeek/repolens/internal/manifest"
	"github.com/rvbeek/repolens/internal/navigation"
	"github.com/rvbeek/repolens/internal/overlay"
	"github.com/rvbeek/repolens/internal/protocol"
	"github.com/rvbeek/repolens/internal/version"
)

const shimVersionHeader = "X-Repolens-Shim-Version"

func (s *state) healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *state) serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.ServerInfo{
		Name:           "repolens",
		Version:        version.Current(),
		MinShimVersion: version.MinShimVersion,
		SiteDomain:     s.cfg.SiteDomain,
		ManifestMarker: s.cfg.ManifestMarker,
	})
}

func (s *state) tabEventHandler(w http.ResponseWriter, r *http.Request) {
	if !s.shimSupported(w, r) {
		return
	}

	var req protocol.TabEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.TabID < 0 {
		http.Error(w, "tab_id must be >= 0", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	s.watcher.HandleTabEvent(navigation.TabEvent{TabID: req.TabID, URL: req.URL})
	writeJSON(w, http.StatusOK, protocol.TabEventResponse{Accepted: true})
}

func (s *state) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	if !s.shimSupported(w, r) {
		return
	}

	tabID, ok := tabIDFromRequest(w, r)
	if !ok {
		return
	}

	var req protocol.SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	snap := overlay.Snapshot{
		ContainerPresent: req.ContainerPresent,
		AnchorPresent:    req.AnchorPresent,
		AnchorX:          req.AnchorX,
		Lines:            make([]manifest.Line, 0, len(req.Lines)),
		LineTops:         make(map[string]int, len(req.Lines)),
	}
	for _, line := range req.Lines {
		snap.Lines = append(snap.Lines, manifest.Line{Key: line.Key, Text: line.Text})
		snap.LineTops[line.Key] = line.Top
	}

	s.manager.ApplySnapshot(tabID, req.URL, snap)
	writeJSON(w, http.StatusOK, protocol.SnapshotResponse{
		Accepted: true,
		State:    s.manager.Tab(tabID).Session.State().String(),
	})
}

func (s *state) viewportHandler(w http.ResponseWriter, r *http.Request) {
	if !s.shimSupported(w, r) {
		return
	}

	tabID, ok := tabIDFromRequest(w, r)
	if !ok {
		return
	}

	var req protocol.ViewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	s.manager.NotifyViewport(tabID)
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

func (s *state) controlsHandler(w http.ResponseWriter, r *http.Request) {
	tabID, ok := tabIDFromRequest(w, r)
	if !ok {
		return
	}

	tab := s.manager.Tab(tabID)
	controls := tab.Surface.Controls()
	out := make([]protocol.ControlPlacement, 0, len(controls))
	for _, c := range controls {
		out = append(out, protocol.ControlPlacement{
			Name:    c.Name,
			URL:     c.URL,
			LineKey: c.LineKey,
			X:       c.Pos.X,
			Y:       c.Pos.Y,
		})
	}

	writeJSON(w, http.StatusOK, protocol.ControlsResponse{
		State:    tab.Session.State().String(),
		Controls: out,
	})
}

func (s *state) sessionStateHandler(w http.ResponseWriter, r *http.Request) {
	tabID, ok := tabIDFromRequest(w, r)
	if !ok {
		return
	}

	sess := s.manager.Tab(tabID).Session
	writeJSON(w, http.StatusOK, protocol.SessionStateResponse{
		State:       sess.State().String(),
		LastURL:     sess.LastURL(),
		RecordCount: sess.RecordCount(),
	})
}

func (s *state) historyHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history store unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	views, err := s.history.RecentViews(limit)
	if err != nil {
		slog.Error("list manifest views failed", "error", err)
		http.Error(w, "list manifest views failed", http.StatusInternalServerError)
		return
	}
	if views == nil {
		views = []protocol.ManifestViewSummary{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *state) historyRepositoriesHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history store unavailable", http.StatusServiceUnavailable)
		return
	}

	viewID, err := strconv.ParseInt(chi.URLParam(r, "viewID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid view id", http.StatusBadRequest)
		return
	}

	repos, err := s.history.ViewRepositories(viewID)
	if err != nil {
		slog.Error("list manifest repositories failed", "view", viewID, "error", err)
		http.Error(w, "list manifest repositories failed", http.StatusInternalServerError)
		return
	}
	if repos == nil {
		repos = []protocol.ManifestRepository{}
	}
	writeJSON(w, http.StatusOK, repos)
}

// shimSupported gates shim write endpoints on the reported shim version.
// Requests without the header are allowed through for local development.
func (s *state) shimSupported(w http.ResponseWriter, r *http.Request) bool {
	v := strings.TrimSpace(r.Header.Get(shimVersionHeader))
	if v == "" {
		return true
	}
	if !version.ShimSupported(v) {
		http.Error(w, "shim version "+v+" is no longer supported, minimum is "+version.MinShimVersion, http.StatusUpgradeRequired)
		return false
	}
	return true
}

func tabIDFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	tabID, err := strconv.Atoi(chi.URLParam(r, "tabID"))
	if err != nil || tabID < 0 {
		http.Error(w, "invalid tab id", http.StatusBadRequest)
		return 0, false
	}
	return tabID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode JSON response failed", "error", err)
	}
}
