// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	connectionIDKey contextKey = "connection_id"
	requestIDKey    contextKey = "request_id"
)

// GenerateConnectionID creates a short id used to correlate log lines across
// a single viewer connection's send loop and heartbeat task.
func GenerateConnectionID() string {
	return uuid.New().String()[:8]
}

// GenerateRequestID creates a full UUID for an admin HTTP request.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithConnectionID attaches a viewer connection id to ctx.
func ContextWithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionIDKey, id)
}

// ConnectionIDFromContext retrieves the connection id, or "" if absent.
func ConnectionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(connectionIDKey).(string)
	return id
}

// ContextWithRequestID attaches an HTTP request id to ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request id, or "" if absent.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Ctx returns a logger enriched with whichever of connection_id/request_id
// are present on ctx. This is the standard way to log inside a connection
// handler or an HTTP handler.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger().With().Logger()
	if id := ConnectionIDFromContext(ctx); id != "" {
		l = l.With().Str("connection_id", id).Logger()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}
