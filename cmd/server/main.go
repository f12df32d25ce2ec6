// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/baskygate/internal/api"
	"github.com/tomtom215/baskygate/internal/config"
	"github.com/tomtom215/baskygate/internal/database"
	"github.com/tomtom215/baskygate/internal/dispatch"
	"github.com/tomtom215/baskygate/internal/fanout"
	"github.com/tomtom215/baskygate/internal/logging"
	"github.com/tomtom215/baskygate/internal/persistence"
	"github.com/tomtom215/baskygate/internal/registry"
	"github.com/tomtom215/baskygate/internal/supervisor"
	"github.com/tomtom215/baskygate/internal/supervisor/services"
	"github.com/tomtom215/baskygate/internal/wal"
	ws "github.com/tomtom215/baskygate/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Sequential wiring of optional components
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Database.Path).
		Bool("wal_enabled", cfg.WAL.Enabled).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Baskygate with supervisor tree")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === DATA LAYER ===

	var sinkOpts []persistence.Option
	if cfg.WAL.Enabled {
		spool, err := wal.Open(cfg.WAL)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open WAL")
		}
		defer func() {
			if err := spool.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing WAL")
			}
		}()
		sinkOpts = append(sinkOpts, persistence.WithSpool(spool))
		tree.AddDataService(wal.NewCompactor(spool, cfg.WAL.GCInterval))
	}

	sink := persistence.New(db, cfg.Persistence, sinkOpts...)

	// Replay spooled records before devices can produce new ones.
	recovered, err := sink.Recover(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("WAL recovery failed; pending entries stay spooled")
	} else if recovered > 0 {
		logging.Info().Int("records", recovered).Msg("Recovered spooled telemetry")
	}
	tree.AddDataService(sink)

	// === MESSAGING LAYER ===

	reg := registry.New()
	broker := fanout.NewBroker(cfg.Fanout.SubscriberBuffer)

	var publisher message.Publisher
	if cfg.NATS.Enabled {
		natsURL := cfg.NATS.URL
		if cfg.NATS.EmbeddedServer {
			embedded, err := fanout.StartEmbeddedServer(cfg.NATS.EmbeddedHost, cfg.NATS.EmbeddedPort)
			if err != nil {
				logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
			}
			natsURL = embedded.ClientURL()
			tree.AddMessagingService(services.NewNATSServerService(embedded, cfg.Supervisor.ShutdownTimeout))
			logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
		}

		publisher, err = fanout.NewNATSPublisher(natsURL, cfg.NATS, fanout.NewWatermillLogger())
		if err != nil {
			logging.Fatal().Err(err).Str("url", natsURL).Msg("Failed to create NATS publisher")
		}
		tree.AddMessagingService(fanout.NewBridge(broker, publisher, cfg.NATS.SubjectPrefix))
		logging.Info().Str("subject_prefix", cfg.NATS.SubjectPrefix).Msg("NATS fan-out bridge enabled")
	}

	// === API LAYER ===

	gateway := ws.NewGateway(cfg.Gateway, reg, sink, broker)
	dispatcher := dispatch.New(reg)
	handler := api.NewHandler(db, dispatcher, sink, cfg.API, version)
	router := api.NewRouter(handler, gateway)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	server.RegisterOnShutdown(gateway.Shutdown)

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	// === START SUPERVISOR TREE ===

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing NATS publisher")
		}
	}

	checkpointCtx, cancelCheckpoint := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.Checkpoint(checkpointCtx); err != nil {
		logging.Warn().Err(err).Msg("Final database checkpoint failed")
	}
	cancelCheckpoint()

	logging.Info().Msg("Application stopped gracefully")
}
