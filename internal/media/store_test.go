// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"os"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "castad-media-test-*")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	meta, deduplicated, err := store.Put("poster.png", "image/png", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if deduplicated {
		t.Error("first upload should not be reported as deduplicated")
	}
	if meta.Size != int64(len("hello world")) {
		t.Errorf("size = %d, want %d", meta.Size, len("hello world"))
	}

	path, got, ok := store.Get(meta.Hash)
	if !ok {
		t.Fatal("Get: not found")
	}
	if got.Filename != "poster.png" || got.ContentType != "image/png" {
		t.Errorf("metadata mismatch: %+v", got)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is from our own store
	if err != nil {
		t.Fatalf("read stored object: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("stored content = %q, want %q", data, "hello world")
	}
}

func TestPutDeduplicatesIdenticalContent(t *testing.T) {
	store := newTestStore(t)

	first, dedupFirst, err := store.Put("a.txt", "text/plain", strings.NewReader("same bytes"))
	if err != nil {
		t.Fatalf("Put first: %v", err)
	}
	if dedupFirst {
		t.Error("first upload should not be reported as deduplicated")
	}
	second, dedupSecond, err := store.Put("b.txt", "text/plain", strings.NewReader("same bytes"))
	if err != nil {
		t.Fatalf("Put second: %v", err)
	}
	if !dedupSecond {
		t.Error("second upload of identical content should be reported as deduplicated")
	}
	if first.Hash != second.Hash {
		t.Fatalf("hashes differ for identical content: %s vs %s", first.Hash, second.Hash)
	}
	if second.Filename != "a.txt" {
		t.Errorf("dedup should preserve first upload's metadata, got filename %q", second.Filename)
	}
}

func TestGetMissingHash(t *testing.T) {
	store := newTestStore(t)
	if _, _, ok := store.Get("deadbeef"); ok {
		t.Fatal("Get: expected not found for unknown hash")
	}
}

func TestDeleteRemovesObjectAndManifestEntry(t *testing.T) {
	store := newTestStore(t)

	meta, _, err := store.Put("x.bin", "application/octet-stream", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(meta.Hash); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, ok := store.Get(meta.Hash); ok {
		t.Fatal("Get: expected not found after Delete")
	}
	if err := store.Delete(meta.Hash); err != ErrNotFound {
		t.Fatalf("second Delete: got %v, want ErrNotFound", err)
	}
}

func TestManifestSurvivesReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "castad-media-test-*")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	meta, _, err := store.Put("keep.txt", "text/plain", strings.NewReader("persisted"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_, got, ok := reopened.Get(meta.Hash)
	if !ok {
		t.Fatal("Get after reopen: not found")
	}
	if got.Filename != "keep.txt" {
		t.Errorf("filename after reopen = %q, want keep.txt", got.Filename)
	}
}
