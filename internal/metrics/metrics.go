// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides comprehensive instrumentation for:
// - Catalog Store writes
// - Change Bus publish/lag behavior
// - Scheduler Loop resolution passes and transitions
// - Viewer WebSocket connection counts and heartbeat failures
// - Media ingestion

var (
	// Catalog Store Metrics
	CatalogWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castad_catalog_writes_total",
			Help: "Total number of committed Catalog Store mutations",
		},
		[]string{"entity", "op"}, // entity: display|playlist|schedule, op: create|update|delete|transition
	)

	CatalogWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castad_catalog_write_errors_total",
			Help: "Total number of Catalog Store mutations that returned an error (persistence failures are logged, not counted)",
		},
		[]string{"entity", "op"},
	)

	CatalogPersistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "castad_catalog_persist_duration_seconds",
			Help:    "Duration of successful Catalog Store mutation calls, end to end including the BadgerDB write",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Change Bus Metrics
	BusPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castad_bus_publish_total",
			Help: "Total number of Change values published on the Change Bus",
		},
		[]string{"kind"},
	)

	BusSubscriberLagTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "castad_bus_subscriber_lag_total",
			Help: "Total number of Lagged notices delivered to slow subscribers",
		},
	)

	BusSubscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "castad_bus_subscribers_active",
			Help: "Current number of active Change Bus subscriptions",
		},
	)

	// Scheduler Loop Metrics
	SchedulerTransitionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "castad_scheduler_transitions_total",
			Help: "Total number of Scheduler Loop active-playlist transitions",
		},
	)

	SchedulerResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "castad_scheduler_resolve_duration_seconds",
			Help:    "Duration of a full Scheduler Loop resolution pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulerResolveErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "castad_scheduler_resolve_errors_total",
			Help: "Total number of Scheduler Loop resolution passes whose Catalog write returned an error",
		},
	)

	// Viewer Transport Metrics
	ViewerConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "castad_viewer_connections_active",
			Help: "Current number of active viewer WebSocket connections",
		},
	)

	ViewerConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "castad_viewer_connections_total",
			Help: "Total number of viewer WebSocket connections accepted",
		},
	)

	ViewerHeartbeatFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "castad_viewer_heartbeat_failures_total",
			Help: "Total number of viewer connections closed for a missed heartbeat pong",
		},
	)

	ViewerItemsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castad_viewer_items_sent_total",
			Help: "Total number of Playlist items dispatched to a Display",
		},
		[]string{"kind"},
	)

	// Media Ingestion Metrics
	MediaUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castad_media_uploads_total",
			Help: "Total number of media uploads by outcome",
		},
		[]string{"outcome"}, // stored|deduplicated
	)

	MediaUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "castad_media_upload_bytes",
			Help:    "Size in bytes of media uploads",
			Buckets: []float64{1 << 10, 1 << 16, 1 << 20, 8 << 20, 32 << 20, 64 << 20},
		},
	)

	MediaDeletesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "castad_media_deletes_total",
			Help: "Total number of media objects deleted",
		},
	)
)

// RecordCatalogWrite records a Catalog Store mutation's outcome and, on
// success, the time the whole mutation call took.
func RecordCatalogWrite(entity, op string, duration time.Duration, err error) {
	if err != nil {
		CatalogWriteErrors.WithLabelValues(entity, op).Inc()
		return
	}
	CatalogWritesTotal.WithLabelValues(entity, op).Inc()
	CatalogPersistDuration.Observe(duration.Seconds())
}

// RecordBusPublish records a Change published on the Change Bus.
func RecordBusPublish(kind string) {
	BusPublishTotal.WithLabelValues(kind).Inc()
}

// RecordBusLag records a Lagged notice delivered to a slow subscriber.
func RecordBusLag() {
	BusSubscriberLagTotal.Inc()
}

// SetBusSubscribers sets the current Change Bus subscriber count.
func SetBusSubscribers(n int) {
	BusSubscribersActive.Set(float64(n))
}

// RecordSchedulerResolve records one Scheduler Loop resolution pass.
func RecordSchedulerResolve(duration time.Duration, transitions int, err error) {
	if err != nil {
		SchedulerResolveErrors.Inc()
		return
	}
	SchedulerResolveDuration.Observe(duration.Seconds())
	SchedulerTransitionsTotal.Add(float64(transitions))
}

// TrackViewerConnection increments or decrements the active viewer
// connection gauge and, on connect, the lifetime connection counter.
func TrackViewerConnection(connected bool) {
	if connected {
		ViewerConnectionsActive.Inc()
		ViewerConnectionsTotal.Inc()
		return
	}
	ViewerConnectionsActive.Dec()
}

// RecordViewerHeartbeatFailure records a connection torn down for a missed
// heartbeat pong.
func RecordViewerHeartbeatFailure() {
	ViewerHeartbeatFailuresTotal.Inc()
}

// RecordViewerItemSent records a Playlist item dispatched to a Display.
func RecordViewerItemSent(kind string) {
	ViewerItemsSentTotal.WithLabelValues(kind).Inc()
}

// RecordMediaUpload records a media upload's outcome and, when it resulted
// in a new stored object, its size.
func RecordMediaUpload(deduplicated bool, size int64) {
	if deduplicated {
		MediaUploadsTotal.WithLabelValues("deduplicated").Inc()
		return
	}
	MediaUploadsTotal.WithLabelValues("stored").Inc()
	MediaUploadBytes.Observe(float64(size))
}

// RecordMediaDelete records a media object being deleted.
func RecordMediaDelete() {
	MediaDeletesTotal.Inc()
}
