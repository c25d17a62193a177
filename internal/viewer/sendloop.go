// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stagrim/castad/internal/bus"
	"github.com/stagrim/castad/internal/logging"
	"github.com/stagrim/castad/internal/metrics"
	"github.com/stagrim/castad/internal/models"
	"github.com/stagrim/castad/internal/protocol"
)

// sendLoop resolves the viewer's Display name (entering a Pending holding
// pattern until one exists), sends the Welcome frame, then repeatedly
// cycles through the Display's effective Playlist, restarting whenever a
// Change arrives that could affect it.
func (h *Handler) sendLoop(ctx context.Context, conn *websocket.Conn, sendMu *sync.Mutex, hello protocol.Hello) error {
	sub := h.bus.Subscribe()
	defer sub.Unsubscribe()

	name, err := h.awaitDisplayName(ctx, conn, sendMu, sub, hello)
	if err != nil {
		return err
	}

	if err := h.sendWelcome(conn, sendMu, hello, name); err != nil {
		return err
	}

	for {
		if err := h.runCycle(ctx, conn, sendMu, sub, hello); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// awaitDisplayName blocks, sending Pending frames, until the Catalog Store
// has a Display matching hello.UUID.
func (h *Handler) awaitDisplayName(ctx context.Context, conn *websocket.Conn, sendMu *sync.Mutex, sub *bus.Subscription, hello protocol.Hello) (string, error) {
	for {
		if d, ok := h.store.GetDisplay(hello.UUID); ok {
			return d.Name, nil
		}

		if err := h.sendPending(conn, sendMu, hello); err != nil {
			return "", err
		}

		if err := h.waitForDisplayChange(ctx, sub, hello.UUID); err != nil {
			return "", err
		}
	}
}

// waitForDisplayChange blocks until a Change arrives that might mean the
// viewer's Display now exists (either a Lagged notice, since a dropped
// Change could have been exactly this one, or a Display Change naming this
// viewer's UUID).
func (h *Handler) waitForDisplayChange(ctx context.Context, sub *bus.Subscription, displayID uuid.UUID) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.Recv():
			if !ok {
				return fmt.Errorf("viewer: change bus subscription closed")
			}
			if ev.Lagged != nil {
				return nil
			}
			if ev.Change.Kind == models.ChangeDisplay && ev.Change.Contains(displayID) {
				return nil
			}
		}
	}
}

func (h *Handler) sendPending(conn *websocket.Conn, sendMu *sync.Mutex, hello protocol.Hello) error {
	if hello.HTMX {
		return send(conn, sendMu, protocol.PendingHTMX())
	}
	frame, err := protocol.EncodePending(true)
	if err != nil {
		return err
	}
	return send(conn, sendMu, frame)
}

// sendWelcome always sends the JSON Welcome envelope, even in htmx mode:
// it carries metadata (the display name, an asset hash) for the viewer's
// own page script to consume, not renderable content.
func (h *Handler) sendWelcome(conn *websocket.Conn, sendMu *sync.Mutex, hello protocol.Hello, name string) error {
	var hash *string
	if hello.HTMX {
		hash = &h.htmxHash
	}
	frame, err := protocol.EncodeWelcome(name, hash)
	if err != nil {
		return err
	}
	return send(conn, sendMu, frame)
}

// runCycle resolves the Display's current references and effective
// Playlist once, then loops its items indefinitely, returning nil (to be
// called again) whenever a relevant Change invalidates the cycle, and a
// non-nil error when the connection itself should close.
func (h *Handler) runCycle(ctx context.Context, conn *websocket.Conn, sendMu *sync.Mutex, sub *bus.Subscription, hello protocol.Hello) error {
	scheduleID, playlistID, ok := h.store.GetDisplayRefs(hello.UUID)
	if !ok {
		return fmt.Errorf("viewer: display %s has no resolvable schedule", hello.UUID)
	}
	items, ok := h.store.GetDisplayEffectivePlaylistItems(hello.UUID)
	if !ok || len(items) == 0 {
		return fmt.Errorf("viewer: display %s has no resolvable playlist", hello.UUID)
	}

	i := 0
	for {
		item := items[i%len(items)]
		i++

		if err := h.sendItem(conn, sendMu, hello, item); err != nil {
			return err
		}

		var timerC <-chan time.Time
		if d := item.Duration(); d > 0 {
			timer := time.NewTimer(time.Duration(d) * time.Second)
			defer timer.Stop()
			timerC = timer.C
		}

		restart, err := h.waitForCycleEvent(ctx, sub, timerC, hello.UUID, scheduleID, playlistID)
		if err != nil {
			return err
		}
		if restart {
			return nil
		}
	}
}

func (h *Handler) sendItem(conn *websocket.Conn, sendMu *sync.Mutex, hello protocol.Hello, item models.PlaylistItem) error {
	if item.Kind == models.KindBackgroundAudio {
		// Dispatch is unimplemented; log and skip the item rather than
		// silently dropping it or tearing down the connection.
		logging.WithComponent("viewer").Warn().Str("item", item.Name).
			Msg("background audio dispatch is not yet supported, skipping item")
		return nil
	}

	var frame []byte
	var err error
	if hello.HTMX {
		frame, err = protocol.EncodeDisplayHTMX(item)
	} else {
		frame, err = protocol.EncodeDisplay(item)
	}
	if err != nil {
		return err
	}
	if err := send(conn, sendMu, frame); err != nil {
		return err
	}
	metrics.RecordViewerItemSent(string(item.Kind))
	return nil
}

// waitForCycleEvent sleeps until timerC fires (false, nil: advance to the
// next item) or a Change arrives that invalidates the whole cycle (true,
// nil: the caller must re-resolve refs and playlist from scratch). A Lagged
// notice is logged and also restarts the cycle: a dropped Change may have
// been one that affects this Display, and the restart re-reads refs and
// playlist from the Catalog Store.
func (h *Handler) waitForCycleEvent(ctx context.Context, sub *bus.Subscription, timerC <-chan time.Time, displayID, scheduleID, playlistID uuid.UUID) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timerC:
			return false, nil
		case ev, ok := <-sub.Recv():
			if !ok {
				return false, fmt.Errorf("viewer: change bus subscription closed")
			}
			if ev.Lagged != nil {
				logging.WithComponent("viewer").Warn().Int("dropped", ev.Lagged.Dropped).
					Msg("change bus lagged mid-cycle, restarting cycle")
				return true, nil
			}
			switch ev.Change.Kind {
			case models.ChangeDisplay:
				if ev.Change.Contains(displayID) {
					return true, nil
				}
			case models.ChangePlaylist:
				if ev.Change.Contains(playlistID) {
					return true, nil
				}
			case models.ChangeSchedule:
				if ev.Change.Contains(scheduleID) {
					return true, nil
				}
			}
			// Unrelated or still-pending change: keep waiting.
		}
	}
}
