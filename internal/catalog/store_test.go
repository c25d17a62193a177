// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"io"
	"os"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/stagrim/castad/internal/bus"
	"github.com/stagrim/castad/internal/logging"
	"github.com/stagrim/castad/internal/models"
)

//nolint:gochecknoinits // keep test output quiet
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dir, err := os.MkdirTemp("", "castad-catalog-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db, bus.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestCreateGetDeleteDisplay(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()
	sched := uuid.New()

	if err := s.CreateDisplay(id, models.Display{Name: "lobby", Schedule: sched}); err != nil {
		t.Fatalf("CreateDisplay: %v", err)
	}

	got, ok := s.GetDisplay(id)
	if !ok || got.Name != "lobby" || got.Schedule != sched {
		t.Fatalf("GetDisplay = %+v, %v, want {lobby %v} true", got, ok, sched)
	}

	if err := s.DeleteDisplay(id); err != nil {
		t.Fatalf("DeleteDisplay: %v", err)
	}
	if _, ok := s.GetDisplay(id); ok {
		t.Error("expected display to be gone after delete")
	}

	if err := s.DeleteDisplay(id); err != nil {
		t.Errorf("DeleteDisplay on missing id should be a no-op, got %v", err)
	}
}

func TestCreateDisplayOverridesExisting(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()

	if err := s.CreateDisplay(id, models.Display{Name: "first"}); err != nil {
		t.Fatalf("CreateDisplay: %v", err)
	}
	if err := s.CreateDisplay(id, models.Display{Name: "second"}); err != nil {
		t.Fatalf("CreateDisplay (override): %v", err)
	}

	got, ok := s.GetDisplay(id)
	if !ok || got.Name != "second" {
		t.Fatalf("GetDisplay = %+v, %v, want {second} true", got, ok)
	}
}

func TestPublishesChangeOnMutation(t *testing.T) {
	s := newTestStore(t)
	sub := s.bus.Subscribe()
	defer sub.Unsubscribe()

	id := uuid.New()
	if err := s.CreateDisplay(id, models.Display{Name: "lobby"}); err != nil {
		t.Fatalf("CreateDisplay: %v", err)
	}

	select {
	case ev := <-sub.Recv():
		if ev.Change.Kind != "display" || !ev.Change.Contains(id) {
			t.Errorf("unexpected change: %+v", ev.Change)
		}
	default:
		t.Fatal("expected a change to be published synchronously")
	}
}

func TestScheduleCreateRejectsInvalidCron(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()
	playlist := uuid.New()

	err := s.CreateSchedule(id, models.Schedule{
		Name:     "bad",
		Fallback: playlist,
		Rules: []models.ScheduledRule{
			{Start: "not a cron expression", Playlist: playlist},
		},
	})
	if err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
	if _, ok := s.GetSchedule(id); ok {
		t.Error("schedule should not have been stored after a validation failure")
	}
}

func TestScheduleUpdatePreservesActivePlaylist(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()
	fallback := uuid.New()
	playlistA := uuid.New()
	playlistB := uuid.New()

	if err := s.CreateSchedule(id, models.Schedule{Name: "s1", Fallback: fallback}); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if err := s.SetScheduleActivePlaylists(map[uuid.UUID]uuid.UUID{id: playlistA}); err != nil {
		t.Fatalf("SetScheduleActivePlaylists: %v", err)
	}

	if err := s.UpdateSchedule(id, models.Schedule{
		Name:     "s1-renamed",
		Fallback: fallback,
		Rules:    []models.ScheduledRule{{Start: "* * * * * * *", Playlist: playlistB}},
	}); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}

	got, ok := s.GetSchedule(id)
	if !ok {
		t.Fatal("expected schedule to still exist")
	}
	if got.ActivePlaylist != playlistA {
		t.Errorf("ActivePlaylist = %v, want preserved %v", got.ActivePlaylist, playlistA)
	}
	if got.Name != "s1-renamed" {
		t.Errorf("Name = %q, want s1-renamed", got.Name)
	}
}

func TestGetDisplayEffectivePlaylistItems(t *testing.T) {
	s := newTestStore(t)
	displayID := uuid.New()
	scheduleID := uuid.New()
	playlistID := uuid.New()

	if err := s.CreatePlaylist(playlistID, models.Playlist{
		Name: "loop",
		Items: []models.PlaylistItem{
			{Kind: models.KindText, Name: "hello", Settings: models.ItemSettings{Text: &models.TextData{Text: "hi", Duration: 5}}},
		},
	}); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if err := s.CreateSchedule(scheduleID, models.Schedule{Name: "sched", Fallback: playlistID}); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if err := s.SetScheduleActivePlaylists(map[uuid.UUID]uuid.UUID{scheduleID: playlistID}); err != nil {
		t.Fatalf("SetScheduleActivePlaylists: %v", err)
	}
	if err := s.CreateDisplay(displayID, models.Display{Name: "lobby", Schedule: scheduleID}); err != nil {
		t.Fatalf("CreateDisplay: %v", err)
	}

	items, ok := s.GetDisplayEffectivePlaylistItems(displayID)
	if !ok {
		t.Fatal("expected a resolvable playlist")
	}
	if len(items) != 1 || items[0].Name != "hello" {
		t.Errorf("items = %+v, want a single 'hello' item", items)
	}

	schedID, activePlaylistID, ok := s.GetDisplayRefs(displayID)
	if !ok || schedID != scheduleID || activePlaylistID != playlistID {
		t.Errorf("GetDisplayRefs = %v %v %v, want %v %v true", schedID, activePlaylistID, ok, scheduleID, playlistID)
	}
}

func TestGetDisplayEffectivePlaylistItemsEmptyPlaylistIsSubstituted(t *testing.T) {
	s := newTestStore(t)
	displayID := uuid.New()
	scheduleID := uuid.New()
	playlistID := uuid.New()

	if err := s.CreatePlaylist(playlistID, models.Playlist{Name: "empty"}); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if err := s.CreateSchedule(scheduleID, models.Schedule{Name: "sched", Fallback: playlistID}); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if err := s.SetScheduleActivePlaylists(map[uuid.UUID]uuid.UUID{scheduleID: playlistID}); err != nil {
		t.Fatalf("SetScheduleActivePlaylists: %v", err)
	}
	if err := s.CreateDisplay(displayID, models.Display{Name: "lobby", Schedule: scheduleID}); err != nil {
		t.Fatalf("CreateDisplay: %v", err)
	}

	items, ok := s.GetDisplayEffectivePlaylistItems(displayID)
	if !ok || len(items) != 1 || items[0].Kind != models.KindText || items[0].Settings.Text.Text != "No Playlist added" {
		t.Errorf("items = %+v, %v, want the pending placeholder", items, ok)
	}
}

func TestGetDisplayEffectivePlaylistItemsReferentialBreakage(t *testing.T) {
	s := newTestStore(t)
	displayID := uuid.New()

	if err := s.CreateDisplay(displayID, models.Display{Name: "lobby", Schedule: uuid.New()}); err != nil {
		t.Fatalf("CreateDisplay: %v", err)
	}

	if _, ok := s.GetDisplayEffectivePlaylistItems(displayID); ok {
		t.Error("expected referential breakage to report ok=false")
	}
	if _, _, ok := s.GetDisplayRefs(displayID); ok {
		t.Error("expected referential breakage to report ok=false")
	}
}

func TestReadReturnsIndependentSnapshot(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()
	if err := s.CreatePlaylist(id, models.Playlist{
		Name:  "loop",
		Items: []models.PlaylistItem{{Kind: models.KindText, Name: "a", Settings: models.ItemSettings{Text: &models.TextData{}}}},
	}); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	snapshot := s.Read()
	snapshot.Playlists[id].Items[0].Name = "mutated"

	got, _ := s.GetPlaylist(id)
	if got.Items[0].Name != "a" {
		t.Errorf("mutating a snapshot affected store state: got %q, want %q", got.Items[0].Name, "a")
	}
}

func TestPersistedContentSurvivesReload(t *testing.T) {
	dir, err := os.MkdirTemp("", "castad-catalog-reload-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}

	s, err := New(db, bus.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id := uuid.New()
	if err := s.CreateDisplay(id, models.Display{Name: "lobby"}); err != nil {
		t.Fatalf("CreateDisplay: %v", err)
	}
	db.Close()

	db2, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("reopen badger: %v", err)
	}
	defer db2.Close()

	s2, err := New(db2, bus.New())
	if err != nil {
		t.Fatalf("New (reload): %v", err)
	}
	got, ok := s2.GetDisplay(id)
	if !ok || got.Name != "lobby" {
		t.Fatalf("GetDisplay after reload = %+v, %v, want {lobby} true", got, ok)
	}
}
