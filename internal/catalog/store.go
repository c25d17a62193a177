// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog implements the Catalog Store: the in-memory authoritative
// state for Displays, Playlists and Schedules, guarded by a single
// reader-writer lock. Every mutation is applied under exclusive access,
// persisted to BadgerDB as a warm (non-transactional) tier, and published as
// a Change on the bus — in that order, and never rolled back on a
// persistence failure.
//
// Grounded on the teacher's BadgerDB session store for the transaction
// shape, and on its gobreaker wiring for treating the KV tier as a
// best-effort dependency rather than a hard one.
package catalog

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/stagrim/castad/internal/bus"
	"github.com/stagrim/castad/internal/logging"
	"github.com/stagrim/castad/internal/metrics"
	"github.com/stagrim/castad/internal/models"
	"github.com/stagrim/castad/internal/schedule"
)

// contentKey is the single well-known BadgerDB key holding the full
// serialized Content document.
const contentKey = "content:v1"

// Store is the Catalog Store. The zero value is not usable; construct with
// New.
type Store struct {
	mu      sync.RWMutex
	content models.Content

	db      *badger.DB
	breaker *gobreaker.CircuitBreaker[any]
	bus     *bus.Bus
}

// New constructs a Store backed by db, loading any previously persisted
// Content or starting from empty maps if none exists.
func New(db *badger.DB, b *bus.Bus) (*Store, error) {
	s := &Store{
		db:      db,
		bus:     b,
		breaker: newPersistBreaker(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func newPersistBreaker() *gobreaker.CircuitBreaker[any] {
	settings := gobreaker.Settings{
		Name:        "catalog-persist",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.WithComponent("catalog").Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("persistence circuit breaker changed state")
		},
	}
	return gobreaker.NewCircuitBreaker[any](settings)
}

func (s *Store) load() error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(contentKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("catalog: load content: %w", err)
		}
		return item.Value(func(val []byte) error {
			var c models.Content
			if err := json.Unmarshal(val, &c); err != nil {
				return fmt.Errorf("catalog: unmarshal content: %w", err)
			}
			s.content = c
			return nil
		})
	})
	if err != nil {
		return err
	}

	if s.content.Displays == nil {
		s.content.Displays = make(map[uuid.UUID]models.Display)
	}
	if s.content.Playlists == nil {
		s.content.Playlists = make(map[uuid.UUID]models.Playlist)
	}
	if s.content.Schedules == nil {
		s.content.Schedules = make(map[uuid.UUID]models.Schedule)
	}
	return nil
}

// mutateFunc applies a change to content (held exclusively) and reports the
// Change to publish, or ok=false if nothing actually changed (a no-op
// delete, or setting a value to what it already was).
type mutateFunc func(c *models.Content) (change models.Change, ok bool, err error)

// write is the single path every mutation goes through: lock, mutate,
// marshal while still locked (for a consistent snapshot), unlock, persist,
// publish. A persistence failure is logged, never rolled back and never
// returned to the caller — the KV store is a warm tier, not the source of
// truth.
func (s *Store) write(mutate mutateFunc) error {
	s.mu.Lock()
	change, ok, err := mutate(&s.content)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !ok {
		s.mu.Unlock()
		return nil
	}
	data, marshalErr := json.Marshal(s.content)
	s.mu.Unlock()

	if marshalErr != nil {
		logging.WithComponent("catalog").Error().Err(marshalErr).Msg("failed to marshal content for persistence")
	} else if persistErr := s.persist(data); persistErr != nil {
		logging.WithComponent("catalog").Error().Err(persistErr).Msg("failed to persist content, continuing with in-memory state")
	}

	s.bus.Publish(change)
	return nil
}

func (s *Store) persist(data []byte) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(contentKey), data)
		})
	})
	return err
}

// CreateDisplay stores a Display under id, overriding any existing Display
// with the same id.
func (s *Store) CreateDisplay(id uuid.UUID, d models.Display) error {
	return s.writeDisplay("create", id, d)
}

// UpdateDisplay replaces the Display stored under id in full.
func (s *Store) UpdateDisplay(id uuid.UUID, d models.Display) error {
	return s.writeDisplay("update", id, d)
}

func (s *Store) writeDisplay(op string, id uuid.UUID, d models.Display) error {
	start := time.Now()
	err := s.write(func(c *models.Content) (models.Change, bool, error) {
		c.Displays[id] = d
		return models.NewChange(models.ChangeDisplay, id), true, nil
	})
	metrics.RecordCatalogWrite("display", op, time.Since(start), err)
	return err
}

// DeleteDisplay removes the Display stored under id. Deleting a
// nonexistent id is a no-op.
func (s *Store) DeleteDisplay(id uuid.UUID) error {
	start := time.Now()
	err := s.write(func(c *models.Content) (models.Change, bool, error) {
		if _, ok := c.Displays[id]; !ok {
			return models.Change{}, false, nil
		}
		delete(c.Displays, id)
		return models.NewChange(models.ChangeDisplay, id), true, nil
	})
	metrics.RecordCatalogWrite("display", "delete", time.Since(start), err)
	return err
}

// CreatePlaylist stores a Playlist under id, overriding any existing
// Playlist with the same id.
func (s *Store) CreatePlaylist(id uuid.UUID, p models.Playlist) error {
	return s.writePlaylist("create", id, p)
}

// UpdatePlaylist replaces the Playlist stored under id in full.
func (s *Store) UpdatePlaylist(id uuid.UUID, p models.Playlist) error {
	return s.writePlaylist("update", id, p)
}

func (s *Store) writePlaylist(op string, id uuid.UUID, p models.Playlist) error {
	start := time.Now()
	err := s.write(func(c *models.Content) (models.Change, bool, error) {
		c.Playlists[id] = p
		return models.NewChange(models.ChangePlaylist, id), true, nil
	})
	metrics.RecordCatalogWrite("playlist", op, time.Since(start), err)
	return err
}

// DeletePlaylist removes the Playlist stored under id. Deleting a
// nonexistent id is a no-op.
func (s *Store) DeletePlaylist(id uuid.UUID) error {
	start := time.Now()
	err := s.write(func(c *models.Content) (models.Change, bool, error) {
		if _, ok := c.Playlists[id]; !ok {
			return models.Change{}, false, nil
		}
		delete(c.Playlists, id)
		return models.NewChange(models.ChangePlaylist, id), true, nil
	})
	metrics.RecordCatalogWrite("playlist", "delete", time.Since(start), err)
	return err
}

// CreateSchedule validates input's cron expressions, stores it under id with
// its active-playlist reset (the Scheduler Loop is the sole writer of that
// field), and publishes a ScheduleInput Change: the rules changed but the
// active playlist has not yet been re-resolved.
func (s *Store) CreateSchedule(id uuid.UUID, input models.Schedule) error {
	if _, err := schedule.NewEvaluator(input); err != nil {
		return fmt.Errorf("catalog: invalid schedule %q: %w", input.Name, err)
	}
	input.ActivePlaylist = uuid.Nil
	start := time.Now()
	err := s.write(func(c *models.Content) (models.Change, bool, error) {
		c.Schedules[id] = input
		return models.NewChange(models.ChangeScheduleInput, id), true, nil
	})
	metrics.RecordCatalogWrite("schedule", "create", time.Since(start), err)
	return err
}

// UpdateSchedule validates input's cron expressions and replaces the
// Schedule's name/fallback/rules while preserving its existing
// active-playlist value, publishing ScheduleInput.
func (s *Store) UpdateSchedule(id uuid.UUID, input models.Schedule) error {
	if _, err := schedule.NewEvaluator(input); err != nil {
		return fmt.Errorf("catalog: invalid schedule %q: %w", input.Name, err)
	}
	start := time.Now()
	err := s.write(func(c *models.Content) (models.Change, bool, error) {
		if existing, ok := c.Schedules[id]; ok {
			input.ActivePlaylist = existing.ActivePlaylist
		} else {
			input.ActivePlaylist = uuid.Nil
		}
		c.Schedules[id] = input
		return models.NewChange(models.ChangeScheduleInput, id), true, nil
	})
	metrics.RecordCatalogWrite("schedule", "update", time.Since(start), err)
	return err
}

// DeleteSchedule removes the Schedule stored under id. Deleting a
// nonexistent id is a no-op. Unlike Create/Update, this publishes a Schedule
// Change directly: there is no active-playlist left to re-resolve, and
// Connection Handlers need to react to the removal itself.
func (s *Store) DeleteSchedule(id uuid.UUID) error {
	start := time.Now()
	err := s.write(func(c *models.Content) (models.Change, bool, error) {
		if _, ok := c.Schedules[id]; !ok {
			return models.Change{}, false, nil
		}
		delete(c.Schedules, id)
		return models.NewChange(models.ChangeSchedule, id), true, nil
	})
	metrics.RecordCatalogWrite("schedule", "delete", time.Since(start), err)
	return err
}

// SetScheduleActivePlaylists is the Scheduler Loop's sole write path: it
// batches every Schedule whose active-playlist changed at this transition
// into one Catalog write and one Schedule Change covering all of them, so
// Connection Handlers see exactly one restart trigger per transition.
func (s *Store) SetScheduleActivePlaylists(resolved map[uuid.UUID]uuid.UUID) error {
	start := time.Now()
	err := s.write(func(c *models.Content) (models.Change, bool, error) {
		var ids []uuid.UUID
		for id, playlist := range resolved {
			sched, ok := c.Schedules[id]
			if !ok {
				continue
			}
			if sched.ActivePlaylist == playlist {
				continue
			}
			sched.ActivePlaylist = playlist
			c.Schedules[id] = sched
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return models.Change{}, false, nil
		}
		return models.NewChange(models.ChangeSchedule, ids...), true, nil
	})
	metrics.RecordCatalogWrite("schedule", "transition", time.Since(start), err)
	return err
}

// GetDisplay returns a copy of the Display stored under id.
func (s *Store) GetDisplay(id uuid.UUID) (models.Display, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.content.Displays[id]
	return d, ok
}

// GetPlaylist returns a copy of the Playlist stored under id.
func (s *Store) GetPlaylist(id uuid.UUID) (models.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.content.Playlists[id]
	if !ok {
		return models.Playlist{}, false
	}
	return copyPlaylist(p), true
}

// GetSchedule returns a copy of the Schedule stored under id.
func (s *Store) GetSchedule(id uuid.UUID) (models.Schedule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.content.Schedules[id]
	if !ok {
		return models.Schedule{}, false
	}
	return copySchedule(sc), true
}

// GetDisplayRefs returns the Schedule and currently-resolved active Playlist
// a Display points to. It reads the Schedule's stored active-playlist field
// (the Scheduler Loop's resolution), never re-evaluates the cron rules
// itself. ok is false if the Display or its Schedule does not exist.
func (s *Store) GetDisplayRefs(id uuid.UUID) (scheduleID, activePlaylistID uuid.UUID, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.content.Displays[id]
	if !exists {
		return uuid.Nil, uuid.Nil, false
	}
	sched, exists := s.content.Schedules[d.Schedule]
	if !exists {
		return uuid.Nil, uuid.Nil, false
	}
	return d.Schedule, sched.ActivePlaylist, true
}

// GetDisplayEffectivePlaylistItems resolves a Display all the way to the
// ordered sequence of PlaylistItem it should currently render: Display ->
// Schedule -> active Playlist -> items. An empty Playlist is substituted by
// the implicit pending-text placeholder. ok is false on any referential
// break in that chain.
func (s *Store) GetDisplayEffectivePlaylistItems(id uuid.UUID) ([]models.PlaylistItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.content.Displays[id]
	if !ok {
		return nil, false
	}
	sched, ok := s.content.Schedules[d.Schedule]
	if !ok {
		return nil, false
	}
	playlist, ok := s.content.Playlists[sched.ActivePlaylist]
	if !ok {
		return nil, false
	}
	if len(playlist.Items) == 0 {
		return []models.PlaylistItem{models.PendingTextItem()}, true
	}
	items := make([]models.PlaylistItem, len(playlist.Items))
	copy(items, playlist.Items)
	return items, true
}

// Read returns a value-copy snapshot of the whole Catalog. Callers own the
// result outright; mutating it never affects Store state.
func (s *Store) Read() models.Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyContent(s.content)
}

func copyContent(c models.Content) models.Content {
	out := models.NewContent()
	for id, d := range c.Displays {
		out.Displays[id] = d
	}
	for id, p := range c.Playlists {
		out.Playlists[id] = copyPlaylist(p)
	}
	for id, sc := range c.Schedules {
		out.Schedules[id] = copySchedule(sc)
	}
	return out
}

func copyPlaylist(p models.Playlist) models.Playlist {
	items := make([]models.PlaylistItem, len(p.Items))
	copy(items, p.Items)
	return models.Playlist{Name: p.Name, Items: items}
}

func copySchedule(sc models.Schedule) models.Schedule {
	rules := make([]models.ScheduledRule, len(sc.Rules))
	copy(rules, sc.Rules)
	sc.Rules = rules
	return sc
}
