// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package media implements the content-addressed file ingestion surface:
// uploads are named by the SHA-256 hash of their bytes, so re-uploading an
// identical asset is a no-op rather than a duplicate write.
//
// Grounded on the teacher's internal/backup checksum-on-write conventions
// (manager_archive.go's hasher-over-io.Copy pattern) and on
// original_source/sasta/src/file_server/file_server.rs's upload/serve/delete
// surface, with content-addressing substituted for the original's
// UUID-per-upload naming (see DESIGN.md).
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Metadata describes one stored file, keyed by its content hash.
type Metadata struct {
	Hash        string    `json:"hash"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store is a content-addressed file store rooted at a single directory.
// Files live at <root>/objects/<hash>; a manifest file alongside them
// records each hash's original filename, content type and size so GET can
// serve a sensible Content-Type and Content-Disposition.
//
// Grounded on the teacher's backup.Manager: disk-backed storage guarded by
// a mutex, with a JSON sidecar for metadata in place of the original's
// Redis-backed Directory tree (no Redis dependency is wired elsewhere in
// this module, so persistence here follows the teacher's file-based
// pattern instead).
type Store struct {
	root         string
	manifestPath string

	mu    sync.RWMutex
	items map[string]Metadata
}

// Open loads (or initializes) a content-addressed store rooted at dir.
func Open(dir string) (*Store, error) {
	objectsDir := filepath.Join(dir, "objects")
	if err := os.MkdirAll(objectsDir, 0o750); err != nil {
		return nil, fmt.Errorf("media: create object dir: %w", err)
	}

	s := &Store{
		root:         dir,
		manifestPath: filepath.Join(dir, "manifest.json"),
		items:        make(map[string]Metadata),
	}
	if err := s.loadManifest(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadManifest() error {
	data, err := os.ReadFile(s.manifestPath) //nolint:gosec // fixed path under our own root
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("media: read manifest: %w", err)
	}
	var items map[string]Metadata
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("media: decode manifest: %w", err)
	}
	s.items = items
	return nil
}

// saveManifest persists the metadata index. Called with mu held.
func (s *Store) saveManifest() error {
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("media: encode manifest: %w", err)
	}
	tmp := s.manifestPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("media: write manifest: %w", err)
	}
	if err := os.Rename(tmp, s.manifestPath); err != nil {
		return fmt.Errorf("media: replace manifest: %w", err)
	}
	return nil
}

func (s *Store) objectPath(hash string) string {
	return filepath.Join(s.root, "objects", hash)
}

// Put streams r to disk, hashing as it writes, and returns the resulting
// Metadata. If a file with the same content hash already exists, the new
// bytes are discarded and the existing Metadata is returned unchanged:
// re-uploading an identical asset is a deduplicating no-op, reported via
// the deduplicated return value.
func (s *Store) Put(filename, contentType string, r io.Reader) (meta Metadata, deduplicated bool, err error) {
	tmp, err := os.CreateTemp(filepath.Join(s.root, "objects"), "upload-*.tmp")
	if err != nil {
		return Metadata{}, false, fmt.Errorf("media: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup; no-op once renamed

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Metadata{}, false, fmt.Errorf("media: write upload: %w", err)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[hash]; ok {
		return existing, true, nil
	}

	if err := os.Rename(tmpPath, s.objectPath(hash)); err != nil {
		return Metadata{}, false, fmt.Errorf("media: store object: %w", err)
	}

	meta = Metadata{
		Hash:        hash,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  time.Now(),
	}
	s.items[hash] = meta
	if err := s.saveManifest(); err != nil {
		return Metadata{}, false, err
	}
	return meta, false, nil
}

// Get returns the stored path and Metadata for hash, or ok=false if no such
// object exists.
func (s *Store) Get(hash string) (path string, meta Metadata, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok = s.items[hash]
	if !ok {
		return "", Metadata{}, false
	}
	return s.objectPath(hash), meta, true
}

// Delete removes hash from the store. Any Playlist item still referencing
// it is left dangling: deletion does not cascade into the Catalog Store,
// per spec's documented open question on dangling media references.
func (s *Store) Delete(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[hash]; !ok {
		return ErrNotFound
	}
	if err := os.Remove(s.objectPath(hash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("media: remove object: %w", err)
	}
	delete(s.items, hash)
	return s.saveManifest()
}

// ErrNotFound is returned by Delete when the hash has no stored object.
var ErrNotFound = fmt.Errorf("media: object not found")
