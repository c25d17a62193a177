// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	json "github.com/goccy/go-json"

	"github.com/stagrim/castad/internal/metrics"
)

const maxUploadSize = 64 << 20 // 64 MiB, generous for signage images/short clips

// Handler serves the media ingestion surface: POST /media (upload),
// GET /media/{hash} (serve), DELETE /media/{hash}.
//
// Grounded on original_source/sasta/src/file_server/file_server.rs's
// add_files/get_file handlers, adapted from its Redis-backed Directory tree
// to this package's content-addressed Store.
type Handler struct {
	store *Store
}

// New constructs a Handler backed by store.
func New(store *Store) *Handler {
	return &Handler{store: store}
}

type uploadResponse struct {
	Hash        string `json:"hash"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeMalformedUpload = 2000
	codeNotFound        = 2001
	codeInternal        = 2002
)

func writeError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}

// Upload handles POST /media: a single multipart file field named "file".
// The stored object is named by the SHA-256 hash of its bytes, so
// re-uploading identical content returns the existing hash rather than
// writing a second copy.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, codeMalformedUpload, "malformed multipart upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeMalformedUpload, "missing \"file\" form field")
		return
	}
	defer file.Close() //nolint:errcheck // best-effort close of an upload stream we only read

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	meta, deduplicated, err := h.store.Put(header.Filename, contentType, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "store upload: "+err.Error())
		return
	}
	metrics.RecordMediaUpload(deduplicated, meta.Size)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(uploadResponse{
		Hash:        meta.Hash,
		URL:         "/media/" + meta.Hash,
		ContentType: meta.ContentType,
		Size:        meta.Size,
	})
}

// Serve handles GET /media/{hash}: streams the stored file with its
// recorded Content-Type and a Content-Disposition naming the original
// filename.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	path, meta, ok := h.store.Get(hash)
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "no media object with that hash")
		return
	}

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", meta.Filename))
	http.ServeFile(w, r, path)
}

// Delete handles DELETE /media/{hash}. Any Playlist item still referencing
// this hash is left dangling; deletion does not cascade into the Catalog
// Store.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if err := h.store.Delete(hash); err != nil {
		if err == ErrNotFound {
			writeError(w, http.StatusNotFound, codeNotFound, "no media object with that hash")
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "delete: "+err.Error())
		return
	}
	metrics.RecordMediaDelete()
	w.WriteHeader(http.StatusNoContent)
}
