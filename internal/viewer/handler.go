// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package viewer implements the Connection Handler: one goroutine pair per
// connected viewer, running a cyclic Playlist send loop alongside an
// independent heartbeat, both sharing a single send lock over the
// underlying gorilla/websocket connection.
//
// Grounded on the teacher's internal/websocket/client.go (read/write pump
// split, ping ticker, pong-driven read deadline), generalized to the
// Hello/Pending/Welcome/Display state machine and shared-send-lock
// discipline of original_source/sasta/src/connection/connection.rs.
package viewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stagrim/castad/internal/bus"
	"github.com/stagrim/castad/internal/catalog"
	"github.com/stagrim/castad/internal/config"
	"github.com/stagrim/castad/internal/logging"
	"github.com/stagrim/castad/internal/metrics"
	"github.com/stagrim/castad/internal/protocol"
)

const (
	maxHelloFrameSize = 4 * 1024
	writeWait         = 10 * time.Second
)

// Handler serves one viewer connection's whole lifecycle: Hello handshake,
// name resolution (with a Pending holding pattern), then the repeating
// Display send loop, racing a heartbeat task that owns the connection's
// receive half once the handshake completes.
type Handler struct {
	store    *catalog.Store
	bus      *bus.Bus
	htmxHash string

	helloReadTimeout  time.Duration
	heartbeatInterval time.Duration
	pongTimeout       time.Duration
}

// New constructs a Handler. htmxHash is advertised in the Welcome frame to
// htmx-mode viewers so they can detect a stale companion page. cfg supplies
// the heartbeat cadence and the Hello-phase read timeout.
func New(store *catalog.Store, b *bus.Bus, htmxHash string, cfg config.Config) *Handler {
	return &Handler{
		store:             store,
		bus:               b,
		htmxHash:          htmxHash,
		helloReadTimeout:  cfg.Viewer.ReadTimeout,
		heartbeatInterval: cfg.Heartbeat.Interval,
		pongTimeout:       cfg.Heartbeat.PongTimeout,
	}
}

// Serve runs a single connection to completion, blocking until the
// connection is torn down (by the peer, a read/write error, or ctx
// cancellation). The caller owns conn and is responsible for having
// accepted the upgrade; Serve always leaves conn closed on return.
func (h *Handler) Serve(ctx context.Context, conn *websocket.Conn, remoteAddr string) {
	connID := logging.GenerateConnectionID()
	ctx = logging.ContextWithConnectionID(ctx, connID)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	log := logging.Ctx(ctx)

	hello, err := h.readHello(conn, log)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", remoteAddr).Msg("viewer connection failed during handshake")
		return
	}
	log.Info().Str("remote_addr", remoteAddr).Str("viewer_uuid", hello.UUID.String()).Bool("htmx", hello.HTMX).
		Msg("viewer connected")

	metrics.TrackViewerConnection(true)
	defer metrics.TrackViewerConnection(false)

	var sendMu sync.Mutex

	results := make(chan error, 2)
	go func() {
		err := h.heartbeat(ctx, conn, &sendMu)
		cancel()
		results <- err
	}()
	go func() {
		err := h.sendLoop(ctx, conn, &sendMu, hello)
		cancel()
		results <- err
	}()

	first := <-results
	second := <-results
	log.Info().Str("remote_addr", remoteAddr).Err(first).AnErr("secondary", second).Msg("viewer disconnected")
}

// readHello blocks for the first Hello frame, which must arrive within
// helloReadTimeout of the connection being accepted. Non-Hello and
// malformed frames are logged and skipped rather than failing the
// handshake, per the HELLO_WAIT state's "ignore malformed frames (log,
// loop)" rule.
func (h *Handler) readHello(conn *websocket.Conn, log *zerolog.Logger) (protocol.Hello, error) {
	conn.SetReadLimit(maxHelloFrameSize)
	if err := conn.SetReadDeadline(time.Now().Add(h.helloReadTimeout)); err != nil {
		return protocol.Hello{}, fmt.Errorf("viewer: set hello read deadline: %w", err)
	}
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return protocol.Hello{}, fmt.Errorf("viewer: read hello frame: %w", err)
		}
		if msgType != websocket.TextMessage {
			log.Warn().Int("frame_type", msgType).Msg("viewer sent a non-text frame while awaiting hello, ignoring")
			continue
		}
		hello, err := protocol.ParseHello(data)
		if err != nil {
			log.Warn().Err(err).Msg("viewer sent a malformed hello frame, ignoring")
			continue
		}
		return hello, nil
	}
}

// send writes a single text frame under the shared send lock.
func send(conn *websocket.Conn, mu *sync.Mutex, frame []byte) error {
	mu.Lock()
	defer mu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("viewer: set write deadline: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}
