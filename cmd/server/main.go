// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/stagrim/castad/internal/api"
	"github.com/stagrim/castad/internal/bus"
	"github.com/stagrim/castad/internal/catalog"
	"github.com/stagrim/castad/internal/config"
	"github.com/stagrim/castad/internal/logging"
	"github.com/stagrim/castad/internal/media"
	"github.com/stagrim/castad/internal/scheduler"
	"github.com/stagrim/castad/internal/supervisor"
	"github.com/stagrim/castad/internal/supervisor/services"
	"github.com/stagrim/castad/internal/viewer"
)

// protocolVersion seeds the htmx companion page's cache-busting hash. There
// is no embedded static asset tree in this controller (htmx fragments are
// rendered server-side per request by internal/protocol), so the hash only
// needs to change when the fragment-rendering logic itself changes.
const protocolVersion = "castad-protocol-v1"

//nolint:gocyclo // sequential startup wiring, mirrors the teacher's main()
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().Msg("starting castad with supervisor tree")

	opts := badger.DefaultOptions(cfg.Store.KVPath)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Store.KVPath).Msg("failed to open catalog kv store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing catalog kv store")
		}
	}()

	changeBus := bus.New()

	store, err := catalog.New(db, changeBus)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load catalog store")
	}
	logging.Info().Msg("catalog store loaded")

	var mediaStore *media.Store
	if cfg.Media.UploadDir != "" {
		mediaStore, err = media.Open(cfg.Media.UploadDir)
		if err != nil {
			logging.Fatal().Err(err).Str("dir", cfg.Media.UploadDir).Msg("failed to open media store")
		}
		logging.Info().Str("dir", cfg.Media.UploadDir).Msg("media store opened")
	} else {
		logging.Info().Msg("media ingestion disabled (no upload directory configured)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	schedulerLoop := scheduler.New(store, changeBus)
	tree.AddMessagingService(schedulerLoop)

	htmxSum := sha256.Sum256([]byte(protocolVersion))
	htmxHash := hex.EncodeToString(htmxSum[:])
	viewerHandler := viewer.New(store, changeBus, htmxHash, *cfg)

	router := api.NewRouter(store, mediaStore, viewerHandler.UpgradeHandler(), schedulerLoop.Ready())
	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second).WithName("admin-and-viewer-server"))
	logging.Info().Str("addr", cfg.Server.ListenAddr).Msg("http server added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("castad stopped gracefully")
}
