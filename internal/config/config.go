// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads the controller's configuration from layered sources:
// struct defaults, an optional YAML file, then environment variables, in
// that order of increasing priority.
package config

import "time"

// ServerConfig controls the admin REST and viewer WebSocket listeners.
type ServerConfig struct {
	// ListenAddr is the address the HTTP server binds, e.g. ":8040".
	ListenAddr string `koanf:"listen_addr"`
	// BindAddr is an optional bind address, loaded from configuration
	// (env CASTA_BIND_ADDR). No component reads it in this build; the
	// HTTP server binds ListenAddr only.
	BindAddr string `koanf:"bind_addr"`
}

// StoreConfig controls Catalog Store persistence.
type StoreConfig struct {
	// KVPath is the BadgerDB data directory.
	KVPath string `koanf:"kv_path"`
	// KVConnString is an alternate connection-string form of KVPath,
	// accepted for parity with deployments that configure KV access
	// through a single connection string rather than a bare path.
	KVConnString string `koanf:"kv_conn"`
}

// MediaConfig controls the file ingestion surface.
type MediaConfig struct {
	UploadDir string `koanf:"upload_dir"`
}

// LoggingConfig controls the logging package.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// HeartbeatConfig controls the per-connection heartbeat task.
type HeartbeatConfig struct {
	Interval    time.Duration `koanf:"interval"`
	PongTimeout time.Duration `koanf:"pong_timeout"`
}

// ViewerConfig controls the Connection Handler's read discipline.
type ViewerConfig struct {
	// ReadTimeout is the read deadline for the viewer's Hello frame, the one
	// read outside the heartbeat; the heartbeat clears it after the handshake.
	ReadTimeout time.Duration `koanf:"read_timeout"`
}

// Config is the fully resolved controller configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Media     MediaConfig     `koanf:"media"`
	Logging   LoggingConfig   `koanf:"logging"`
	Heartbeat HeartbeatConfig `koanf:"heartbeat"`
	Viewer    ViewerConfig    `koanf:"viewer"`
}
