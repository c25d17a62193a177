// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stagrim/castad/internal/models"
)

// ListPlaylists handles GET /api/playlist.
func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	content := h.store.Read()
	writeJSON(w, http.StatusOK, content.Playlists)
}

// CreatePlaylist handles POST /api/playlist.
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	content := h.store.Read()
	if nameTakenPlaylist(content.Playlists, req.Name, uuid.Nil) {
		writeError(w, http.StatusConflict, codeNameConflict, "a playlist named "+req.Name+" already exists")
		return
	}

	id := uuid.New()
	if err := h.store.CreatePlaylist(id, req.toModel()); err != nil {
		logHandlerError(r, "create playlist failed", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create playlist")
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		UUID uuid.UUID `json:"uuid"`
	}{id})
}

// ReplacePlaylist handles PUT /api/playlist/:uuid.
func (h *Handler) ReplacePlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req PlaylistRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	content := h.store.Read()
	if nameTakenPlaylist(content.Playlists, req.Name, id) {
		writeError(w, http.StatusConflict, codeNameConflict, "a playlist named "+req.Name+" already exists")
		return
	}

	if err := h.store.UpdatePlaylist(id, req.toModel()); err != nil {
		logHandlerError(r, "replace playlist failed", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to replace playlist")
		return
	}
	writeNoContent(w)
}

// DeletePlaylist handles DELETE /api/playlist/:uuid. A Playlist referenced
// by any Schedule (as fallback or rule target) cannot be deleted.
func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	content := h.store.Read()
	if playlistReferenced(content.Schedules, id) {
		writeError(w, http.StatusConflict, codeReferencedBySched,
			"playlist is referenced by at least one schedule and cannot be deleted")
		return
	}

	if err := h.store.DeletePlaylist(id); err != nil {
		logHandlerError(r, "delete playlist failed", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete playlist")
		return
	}
	writeNoContent(w)
}

func nameTakenPlaylist(playlists map[uuid.UUID]models.Playlist, name string, exclude uuid.UUID) bool {
	for id, p := range playlists {
		if id != exclude && p.Name == name {
			return true
		}
	}
	return false
}

func playlistReferenced(schedules map[uuid.UUID]models.Schedule, playlistID uuid.UUID) bool {
	for _, sc := range schedules {
		if sc.Fallback == playlistID {
			return true
		}
		for _, rule := range sc.Rules {
			if rule.Playlist == playlistID {
				return true
			}
		}
	}
	return false
}
