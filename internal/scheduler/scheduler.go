// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scheduler implements the Scheduler Loop: the single long-lived
// task that keeps every Schedule's active-playlist field resolved against
// the current time, reacting to both cron firings and admin edits.
//
// Grounded on the reference schedule_loop algorithm: a startup phase that
// resolves every Schedule once (with a one-shot ready signal so the HTTP
// server doesn't accept viewer connections against stale scheduling state),
// followed by a main loop that sleeps to the next transition, interruptibly,
// racing the Change Bus. The Serve/String shape mirrors the teacher's
// suture-service wrappers (its WebSocketHubService, which delegates to a
// RunWithContext-style method), implemented directly here rather than
// through an adapter since this package owns its own domain logic end to
// end.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stagrim/castad/internal/bus"
	"github.com/stagrim/castad/internal/catalog"
	"github.com/stagrim/castad/internal/logging"
	"github.com/stagrim/castad/internal/metrics"
	"github.com/stagrim/castad/internal/models"
	"github.com/stagrim/castad/internal/schedule"
)

// Scheduler is a suture.Service (Serve + String) that keeps the Catalog
// Store's Schedule.active-playlist fields resolved.
type Scheduler struct {
	store *catalog.Store
	bus   *bus.Bus
	ready chan struct{}
}

// New constructs a Scheduler over store, reacting to and publishing through
// b.
func New(store *catalog.Store, b *bus.Bus) *Scheduler {
	return &Scheduler{store: store, bus: b, ready: make(chan struct{})}
}

// Ready is closed once the startup phase has resolved every Schedule's
// active-playlist for the first time. The HTTP server should hold off
// accepting viewer connections until this fires.
func (s *Scheduler) Ready() <-chan struct{} {
	return s.ready
}

// String implements fmt.Stringer for suture's logging.
func (s *Scheduler) String() string {
	return "scheduler"
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	sub := s.bus.Subscribe()
	defer sub.Unsubscribe()

	if err := s.resolveNow(); err != nil {
		return fmt.Errorf("scheduler: startup resolution: %w", err)
	}
	s.signalReady()

	currentMoment := time.Now()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		schedules := s.store.Read().Schedules
		moments := computeMoments(schedules, currentMoment)

		if len(moments) == 0 {
			if err := s.waitForSchedulableInput(ctx, sub); err != nil {
				return err
			}
			continue
		}

		tStar := earliestTime(moments)
		tied := tiedAt(moments, tStar)

		advanced, err := s.sleepUntil(ctx, sub, tStar, tied)
		if err != nil {
			return err
		}
		if advanced {
			currentMoment = tStar
		}
	}
}

func (s *Scheduler) signalReady() {
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
}

// resolveNow computes currentPlaylist(time.Now()) for every Schedule and
// writes them all in a single Catalog batch.
func (s *Scheduler) resolveNow() error {
	start := time.Now()
	schedules := s.store.Read().Schedules
	now := time.Now()

	resolved := make(map[uuid.UUID]uuid.UUID, len(schedules))
	for id, sc := range schedules {
		ev, err := schedule.NewEvaluator(sc)
		if err != nil {
			logging.WithComponent("scheduler").Error().Err(err).
				Str("schedule", sc.Name).Msg("skipping schedule with invalid cron expressions")
			continue
		}
		resolved[id] = ev.CurrentPlaylist(now)
	}
	if len(resolved) == 0 {
		metrics.RecordSchedulerResolve(time.Since(start), 0, nil)
		return nil
	}
	err := s.store.SetScheduleActivePlaylists(resolved)
	metrics.RecordSchedulerResolve(time.Since(start), len(resolved), err)
	return err
}

// waitForSchedulableInput blocks until a ScheduleInput Change arrives whose
// UUID set includes at least one Schedule that currently has rules (an
// empty-rule Schedule can never produce a Moment, so waking for it would
// just spin).
func (s *Scheduler) waitForSchedulableInput(ctx context.Context, sub *bus.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.Recv():
			if !ok {
				return fmt.Errorf("scheduler: change bus subscription closed")
			}
			if ev.Lagged != nil {
				logging.WithComponent("scheduler").Warn().Int("dropped", ev.Lagged.Dropped).
					Msg("change bus lagged while idle, re-checking schedules")
				return nil
			}
			if ev.Change.Kind != models.ChangeScheduleInput {
				continue
			}

			schedules := s.store.Read().Schedules
			for id, sc := range schedules {
				if ev.Change.Contains(id) && len(sc.Rules) > 0 {
					return nil
				}
			}
		}
	}
}

// sleepUntil sleeps interruptibly until deadline. If a ScheduleInput Change
// (or a Lagged notice, whose dropped events may have included one) arrives
// first, it re-resolves every Schedule against the current time
// immediately and returns (false, nil) so the caller restarts the loop
// without advancing its moment reference. On a clean deadline it writes the
// tied active-playlist resolutions and returns (true, nil).
func (s *Scheduler) sleepUntil(ctx context.Context, sub *bus.Subscription, deadline time.Time, tied map[uuid.UUID]uuid.UUID) (bool, error) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case ev, ok := <-sub.Recv():
			if !ok {
				return false, fmt.Errorf("scheduler: change bus subscription closed")
			}
			if ev.Lagged != nil {
				logging.WithComponent("scheduler").Warn().Int("dropped", ev.Lagged.Dropped).
					Msg("change bus lagged mid-sleep, re-checking schedules")
				if err := s.resolveNow(); err != nil {
					return false, fmt.Errorf("scheduler: re-resolving after change bus lag: %w", err)
				}
				return false, nil
			}
			if ev.Change.Kind != models.ChangeScheduleInput {
				continue
			}
			if err := s.resolveNow(); err != nil {
				return false, fmt.Errorf("scheduler: re-resolving after schedule input: %w", err)
			}
			return false, nil
		case <-timer.C:
			if err := s.store.SetScheduleActivePlaylists(tied); err != nil {
				return false, fmt.Errorf("scheduler: writing resolved playlists: %w", err)
			}
			return true, nil
		}
	}
}

func computeMoments(schedules map[uuid.UUID]models.Schedule, from time.Time) map[uuid.UUID]models.Moment {
	moments := make(map[uuid.UUID]models.Moment, len(schedules))
	for id, sc := range schedules {
		ev, err := schedule.NewEvaluator(sc)
		if err != nil {
			logging.WithComponent("scheduler").Error().Err(err).
				Str("schedule", sc.Name).Msg("skipping schedule with invalid cron expressions")
			continue
		}
		if m, ok := ev.NextMoment(from); ok {
			moments[id] = m
		}
	}
	return moments
}

func earliestTime(moments map[uuid.UUID]models.Moment) time.Time {
	var earliest time.Time
	first := true
	for _, m := range moments {
		if first || m.Time.Before(earliest) {
			earliest = m.Time
			first = false
		}
	}
	return earliest
}

func tiedAt(moments map[uuid.UUID]models.Moment, t time.Time) map[uuid.UUID]uuid.UUID {
	tied := make(map[uuid.UUID]uuid.UUID)
	for id, m := range moments {
		if m.Time.Equal(t) {
			tied[id] = m.Playlist
		}
	}
	return tied
}
