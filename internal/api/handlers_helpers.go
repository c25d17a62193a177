// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stagrim/castad/internal/logging"
)

// decodeAndValidate decodes r's JSON body into dst and runs struct-tag
// validation, writing the appropriate error response and returning false
// on any failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeMalformedBody, "request body is not valid JSON: "+err.Error())
		return false
	}
	if err := validatorInstance().Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return false
	}
	return true
}

// pathUUID parses the chi URL parameter named "uuid", writing a 400 on
// failure and returning ok=false.
func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "uuid")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeMalformedBody, "path uuid is not a valid UUID: "+raw)
		return uuid.Nil, false
	}
	return id, true
}

func logHandlerError(r *http.Request, msg string, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(msg)
}
