// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package supervisor provides process supervision for castad using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of every long-running service in the controller process: the
Scheduler Loop and the combined admin+viewer HTTP server. It provides
Erlang/OTP-style supervision with automatic restart, failure isolation, and
graceful shutdown.

# Overview

The supervisor tree organizes services into three layers for failure
isolation:

	RootSupervisor ("castad")
	├── DataSupervisor ("data-layer")
	│   (reserved for future Catalog Store maintenance services)
	├── MessagingSupervisor ("messaging-layer")
	│   └── Scheduler (the Scheduler Loop)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (admin REST + viewer WebSocket upgrade +
	        health + metrics, all served from one listener)

This hierarchy ensures that a crash resolving a Schedule doesn't take down
the HTTP listener serving viewer connections and the admin API.

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Failure Isolation:
  - Services are organized into logical groups
  - Child supervisor failures don't propagate upward
  - Each layer has independent failure counting

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via the sutureslog adapter

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    log.Fatal(err)
	}

	tree.AddMessagingService(schedulerLoop)
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second).WithName("admin-and-viewer-server"))

	errCh := tree.ServeBackground(ctx)

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,
	    FailureDecay:     30.0,
	    FailureBackoff:   15 * time.Second,
	    ShutdownTimeout:  10 * time.Second,
	}

Default values match suture's production-ready defaults.

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return nil on clean stop, an error on crash (the service is restarted), and
return promptly once ctx is canceled.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("service didn't stop: %v", svc)
	}
*/
package supervisor
