// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stagrim/castad/internal/logging"
	"github.com/stagrim/castad/internal/metrics"
)

// heartbeat owns the connection's receive half for the remainder of the
// connection's life. It pumps frames through gorilla's control-frame
// dispatch (Pong/Close handlers fire from inside ReadMessage) while driving
// an explicit ping/await-pong cycle every heartbeatInterval, matching
// spec's per-tick discipline rather than gorilla's usual continuous
// deadline-reset idiom.
func (h *Handler) heartbeat(ctx context.Context, conn *websocket.Conn, sendMu *sync.Mutex) error {
	log := logging.Ctx(ctx)

	// The handshake's Hello read left a 20-second deadline on the
	// connection; liveness from here on is enforced by the ping/pong
	// cycle below, not by a read deadline, so clear it.
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("viewer: clear read deadline: %w", err)
	}

	pongCh := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pongCh <- struct{}{}:
		default:
		}
		return nil
	})

	readErrCh := make(chan error, 1)
	go pumpReads(conn, readErrCh, log)

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErrCh:
			return err
		case <-ticker.C:
		}

		sendMu.Lock()
		writeErr := conn.SetWriteDeadline(time.Now().Add(writeWait))
		if writeErr == nil {
			writeErr = conn.WriteMessage(websocket.PingMessage, nil)
		}
		sendMu.Unlock()
		if writeErr != nil {
			log.Warn().Err(writeErr).Msg("heartbeat could not ping, closing connection")
			return fmt.Errorf("viewer: heartbeat ping: %w", writeErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErrCh:
			return err
		case <-pongCh:
			log.Debug().Msg("heartbeat pong received")
		case <-time.After(h.pongTimeout):
			log.Warn().Msg("heartbeat timed out waiting for pong, closing connection")
			metrics.RecordViewerHeartbeatFailure()
			return errors.New("viewer: heartbeat pong timeout")
		}
	}
}

// pumpReads continuously reads frames so gorilla's internal Pong/Close
// dispatch fires. Any genuine data frame received after the handshake is
// unexpected on this connection and is logged, not treated as an error.
func pumpReads(conn *websocket.Conn, errCh chan<- error, log *zerolog.Logger) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			errCh <- fmt.Errorf("viewer: connection closed: %w", err)
			return
		}
		log.Debug().Int("message_type", msgType).Int("length", len(data)).Msg("received unexpected frame from viewer")
	}
}
