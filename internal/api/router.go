// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stagrim/castad/internal/catalog"
	"github.com/stagrim/castad/internal/media"
)

// NewRouter builds the whole controller surface on a single mux: CRUD for
// Display, Playlist and Schedule under /api, the media ingestion surface
// under /media, liveness/readiness probes under /healthz, Prometheus
// scraping under /metrics, and (if viewerHandler is non-nil) the viewer
// WebSocket upgrade endpoint at /ws. schedulerReady gates both Ready and the
// /ws upgrade on the Scheduler Loop's startup resolution.
//
// Grounded on the teacher's chi_router.go route-mounting style, trimmed to
// this surface's much smaller set of concerns (no auth/authz: per the
// specification, authentication is explicitly out of scope), and on
// original_source/sasta/src/main.rs's single axum Router serving both the
// /api tree and the viewer's WebSocket route from one listener.
func NewRouter(store *catalog.Store, mediaStore *media.Store, viewerHandler http.Handler, schedulerReady <-chan struct{}) http.Handler {
	h := New(store)
	health := NewHealthHandler(schedulerReady)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestDeadline))
	r.Use(requestIDLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/healthz", func(r chi.Router) {
		r.Get("/live", health.Live)
		r.Get("/ready", health.Ready)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/display", func(r chi.Router) {
		r.Get("/", h.ListDisplays)
		r.Post("/", h.CreateDisplay)
		r.Put("/{uuid}", h.ReplaceDisplay)
		r.Delete("/{uuid}", h.DeleteDisplay)
	})

	r.Route("/api/playlist", func(r chi.Router) {
		r.Get("/", h.ListPlaylists)
		r.Post("/", h.CreatePlaylist)
		r.Put("/{uuid}", h.ReplacePlaylist)
		r.Delete("/{uuid}", h.DeletePlaylist)
	})

	r.Route("/api/schedule", func(r chi.Router) {
		r.Get("/", h.ListSchedules)
		r.Post("/", h.CreateSchedule)
		r.Put("/{uuid}", h.ReplaceSchedule)
		r.Delete("/{uuid}", h.DeleteSchedule)
	})

	if mediaStore != nil {
		media.Mount(r, mediaStore)
	}

	if viewerHandler != nil {
		// A viewer connection outlives requestDeadline, so it runs on a
		// context detached from the Timeout middleware's cancellation.
		r.Handle("/ws", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			select {
			case <-schedulerReady:
			case <-req.Context().Done():
				return
			}
			viewerHandler.ServeHTTP(w, req.WithContext(context.WithoutCancel(req.Context())))
		}))
	}

	return r
}
