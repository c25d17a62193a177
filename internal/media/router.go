// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import "github.com/go-chi/chi/v5"

// Mount attaches the media ingestion surface to r under /media.
func Mount(r chi.Router, store *Store) {
	h := New(store)
	r.Route("/media", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Get("/{hash}", h.Serve)
		r.Delete("/{hash}", h.Delete)
	})
}
