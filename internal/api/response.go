// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the admin REST surface: CRUD over Displays,
// Playlists and Schedules, plus the uniqueness and referential-integrity
// checks the Catalog Store itself does not perform. Cron validity is checked
// by the Catalog Store; its error is reported here as codeInvalidCron.
//
// Grounded on the teacher's internal/api response.go envelope and
// handlers_helpers.go's validator wiring, simplified to the integer
// {code, message} error shape the wire contract specifies.
package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/stagrim/castad/internal/logging"
)

// errorResponse is the JSON shape of every non-2xx admin API response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes data as a JSON body with the given HTTP status.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.WithComponent("api").Error().Err(err).Msg("failed to encode response body")
	}
}

// writeError writes the standard {code, message} error envelope.
func writeError(w http.ResponseWriter, status int, code int, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeNoContent writes a 204 with no body, used by successful deletes.
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// requestDeadline bounds an admin handler's Catalog Store round trip. The
// store itself never blocks for more than a lock acquisition; this guards
// against a wedged client holding the handler goroutine open.
const requestDeadline = 10 * time.Second
