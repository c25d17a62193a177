// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stagrim/castad/internal/models"
)

// ListDisplays handles GET /api/display.
func (h *Handler) ListDisplays(w http.ResponseWriter, r *http.Request) {
	content := h.store.Read()
	writeJSON(w, http.StatusOK, content.Displays)
}

// CreateDisplay handles POST /api/display. The Display's UUID is
// server-generated; the client never supplies one at creation time.
func (h *Handler) CreateDisplay(w http.ResponseWriter, r *http.Request) {
	var req DisplayRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	content := h.store.Read()
	if nameTakenDisplay(content.Displays, req.Name, uuid.Nil) {
		writeError(w, http.StatusConflict, codeNameConflict, "a display named "+req.Name+" already exists")
		return
	}
	if _, ok := content.Schedules[req.Schedule]; !ok {
		writeError(w, http.StatusBadRequest, codeDanglingReference, "schedule "+req.Schedule.String()+" does not exist")
		return
	}

	id := uuid.New()
	if err := h.store.CreateDisplay(id, req.toModel()); err != nil {
		logHandlerError(r, "create display failed", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create display")
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		UUID uuid.UUID `json:"uuid"`
	}{id})
}

// ReplaceDisplay handles PUT /api/display/:uuid.
func (h *Handler) ReplaceDisplay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req DisplayRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	content := h.store.Read()
	if nameTakenDisplay(content.Displays, req.Name, id) {
		writeError(w, http.StatusConflict, codeNameConflict, "a display named "+req.Name+" already exists")
		return
	}
	if _, ok := content.Schedules[req.Schedule]; !ok {
		writeError(w, http.StatusBadRequest, codeDanglingReference, "schedule "+req.Schedule.String()+" does not exist")
		return
	}

	if err := h.store.UpdateDisplay(id, req.toModel()); err != nil {
		logHandlerError(r, "replace display failed", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to replace display")
		return
	}
	writeNoContent(w)
}

// DeleteDisplay handles DELETE /api/display/:uuid.
func (h *Handler) DeleteDisplay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteDisplay(id); err != nil {
		logHandlerError(r, "delete display failed", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete display")
		return
	}
	writeNoContent(w)
}

func nameTakenDisplay(displays map[uuid.UUID]models.Display, name string, exclude uuid.UUID) bool {
	for id, d := range displays {
		if id != exclude && d.Name == name {
			return true
		}
	}
	return false
}
