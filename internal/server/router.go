package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func buildRouter(s *state) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Health/info
	r.Get("/healthz", s.healthzHandler)
	r.Get("/api/v1/server-info", s.serverInfoHandler)

	// Shim API
	r.Post("/api/v1/tabs/events", s.tabEventHandler)
	r.Post("/api/v1/tabs/{tabID}/snapshot", s.snapshotHandler)
	r.Post("/api/v1/tabs/{tabID}/viewport", s.viewportHandler)
	r.Get("/api/v1/tabs/{tabID}/controls", s.controlsHandler)
	r.Get("/api/v1/tabs/{tabID}/state", s.sessionStateHandler)

	// History API
	r.Get("/api/v1/history", s.historyHandler)
	r.Get("/api/v1/history/{viewID}/repositories", s.historyRepositoriesHandler)

	return r
}
