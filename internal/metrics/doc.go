// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package metrics provides Prometheus metrics collection and export for
observability of the control plane.

# Overview

The package provides metrics for:
  - Catalog Store write throughput and latency
  - Change Bus publish volume and subscriber lag
  - Scheduler Loop resolution passes and active-playlist transitions
  - Viewer WebSocket connection counts and heartbeat failures
  - Media ingestion uploads and deletes

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8040/metrics

# Usage

Record a Catalog Store write:

	start := time.Now()
	err := store.CreateDisplay(id, display)
	metrics.RecordCatalogWrite("display", "create", time.Since(start), err)

Track viewer connections:

	metrics.TrackViewerConnection(true)
	defer metrics.TrackViewerConnection(false)
*/
package metrics
