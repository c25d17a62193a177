// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package main is the entry point for the castad controller process.

castad is a digital signage control plane: a handful of operators manage a
small catalog of Displays, Playlists and Schedules, and the controller keeps
many headless viewer devices in sync over persistent WebSocket connections.

# Application Architecture

The process implements a layered architecture with Suture v4 process
supervision:

	RootSupervisor ("castad")
	├── DataSupervisor ("data-layer")
	│   (reserved; no services registered in this build)
	├── MessagingSupervisor ("messaging-layer")
	│   └── Scheduler (resolves Schedule active-playlists)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (one listener: admin REST, media, health, metrics
	        and the viewer WebSocket upgrade at /ws)

Component initialization order:

 1. Configuration: Koanf v2, defaults -> optional YAML file -> environment
 2. Logging: zerolog, bridged to slog for the supervisor's event hook
 3. Change Bus: in-process broadcast of Catalog writes
 4. Catalog Store: BadgerDB-backed Display/Playlist/Schedule storage
 5. Media Store: content-addressed file ingestion surface (optional)
 6. Scheduler Loop: on start resolves every Schedule once, then closes its
    Ready signal; /healthz/ready and viewer upgrades at /ws wait for it
 7. Combined HTTP server (admin REST plus viewer WebSocket upgrade): added
    to the supervisor tree and started together with the Scheduler Loop

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority
wins): environment variables (CASTA_-prefixed) override an optional YAML
file, which overrides struct defaults. See internal/config for the full set
of keys.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Cancels the root context
 2. Each supervised HTTP server stops accepting connections and drains
    in-flight requests (10s timeout)
 3. The Scheduler Loop exits its sleep/wait loop
 4. Any services that failed to stop within the timeout are logged

# See Also

  - internal/config: configuration loading
  - internal/supervisor: process supervision
  - internal/catalog: Catalog Store
  - internal/scheduler: Scheduler Loop
  - internal/viewer: viewer WebSocket transport
  - internal/api: admin REST surface
*/
package main
