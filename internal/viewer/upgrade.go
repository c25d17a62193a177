// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewer

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/stagrim/castad/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewer devices are headless kiosk clients on a trusted network, not
	// browsers subject to third-party-site CORS concerns.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// UpgradeHandler returns an http.Handler that upgrades each request to a
// WebSocket connection and runs it through Handler.Serve until it closes.
func (h *Handler) UpgradeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.WithComponent("viewer").Warn().Err(err).Str("remote_addr", r.RemoteAddr).
				Msg("websocket upgrade failed")
			return
		}
		h.Serve(r.Context(), conn, r.RemoteAddr)
	})
}
