// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package supervisor runs the gateway's long-lived services under a suture v4
supervision tree.

	baskygate (root)
	├── data-layer       persistence sink workers, WAL compactor
	├── messaging-layer  embedded NATS server, fan-out bridge
	└── api-layer        HTTP server (device sockets, control API)

A service that returns an error or panics is restarted with backoff. Each
layer has its own failure budget, so a crashing NATS bridge never takes
device connections down with it. Supervisor events are logged through
sutureslog into the zerolog-backed slog handler.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	tree.AddDataService(sink)
	tree.AddMessagingService(bridge)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
