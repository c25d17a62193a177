// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package services provides suture.Service wrappers for castad components.

This package adapts a component's native lifecycle to suture v4's
context-aware Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the ListenAndServe/Shutdown pattern to Serve
  - Used once in cmd/server/main.go for the combined listener that serves
    the admin REST surface, health/metrics, and the viewer WebSocket
    upgrade endpoint (api layer)

The Scheduler Loop (internal/scheduler.Scheduler) already implements
Serve/String directly and is added to the tree without a wrapper.

# Usage Example

	tree, _ := supervisor.NewSupervisorTree(logger, config)

	httpSvc := services.NewHTTPServerService(httpServer, 10*time.Second).
	    WithName("admin-and-viewer-server")
	tree.AddAPIService(httpSvc)

	tree.Serve(ctx)

# ListenAndServe Pattern

	type Listener interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (s *HTTPServerService) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

# Error Handling

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Service Identification

All services implement fmt.Stringer for logging:

	func (h *HTTPServerService) String() string {
	    return "http-server"
	}

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: underlying supervision library
*/
package services
