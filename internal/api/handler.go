// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"github.com/stagrim/castad/internal/catalog"
)

// Handler holds the dependencies shared by every admin REST endpoint.
type Handler struct {
	store *catalog.Store
}

// New constructs a Handler backed by store.
func New(store *catalog.Store) *Handler {
	return &Handler{store: store}
}
