// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stagrim/castad/internal/models"
)

// ListSchedules handles GET /api/schedule.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	content := h.store.Read()
	writeJSON(w, http.StatusOK, content.Schedules)
}

// CreateSchedule handles POST /api/schedule.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.checkScheduleRequest(w, req, uuid.Nil) {
		return
	}

	id := uuid.New()
	if err := h.store.CreateSchedule(id, req.toModel()); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidCron, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		UUID uuid.UUID `json:"uuid"`
	}{id})
}

// ReplaceSchedule handles PUT /api/schedule/:uuid.
func (h *Handler) ReplaceSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req ScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.checkScheduleRequest(w, req, id) {
		return
	}

	if err := h.store.UpdateSchedule(id, req.toModel()); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidCron, err.Error())
		return
	}
	writeNoContent(w)
}

// DeleteSchedule handles DELETE /api/schedule/:uuid. A Schedule referenced
// by any Display cannot be deleted.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	content := h.store.Read()
	if scheduleReferenced(content.Displays, id) {
		writeError(w, http.StatusConflict, codeReferencedByDisplay,
			"schedule is referenced by at least one display and cannot be deleted")
		return
	}

	if err := h.store.DeleteSchedule(id); err != nil {
		logHandlerError(r, "delete schedule failed", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete schedule")
		return
	}
	writeNoContent(w)
}

// checkScheduleRequest runs the checks that precede a Create/Replace write:
// name uniqueness, every referenced Playlist existing, and no two rules
// targeting the same Playlist. It writes the response itself on failure.
func (h *Handler) checkScheduleRequest(w http.ResponseWriter, req ScheduleRequest, exclude uuid.UUID) bool {
	content := h.store.Read()

	if nameTakenSchedule(content.Schedules, req.Name, exclude) {
		writeError(w, http.StatusConflict, codeNameConflict, "a schedule named "+req.Name+" already exists")
		return false
	}
	if _, ok := content.Playlists[req.FallbackPlaylist]; !ok {
		writeError(w, http.StatusBadRequest, codeDanglingReference,
			"fallback playlist "+req.FallbackPlaylist.String()+" does not exist")
		return false
	}
	for _, rule := range req.Rules {
		if _, ok := content.Playlists[rule.Playlist]; !ok {
			writeError(w, http.StatusBadRequest, codeDanglingReference,
				"rule playlist "+rule.Playlist.String()+" does not exist")
			return false
		}
	}
	if duplicatePlaylistInRules(req) {
		writeError(w, http.StatusBadRequest, codeDuplicatePlaylist,
			"two rules in this schedule target the same playlist")
		return false
	}
	return true
}

func nameTakenSchedule(schedules map[uuid.UUID]models.Schedule, name string, exclude uuid.UUID) bool {
	for id, sc := range schedules {
		if id != exclude && sc.Name == name {
			return true
		}
	}
	return false
}

func scheduleReferenced(displays map[uuid.UUID]models.Display, scheduleID uuid.UUID) bool {
	for _, d := range displays {
		if d.Schedule == scheduleID {
			return true
		}
	}
	return false
}
