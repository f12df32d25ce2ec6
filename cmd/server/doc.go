// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package main is the entry point for the Baskygate server.

Baskygate terminates persistent WebSocket connections from therapy-assist
devices, records their status, sensor and network telemetry in DuckDB, and
lets operators push commands to connected devices over a REST API. Live
telemetry is fanned out to dashboard sockets and, optionally, to NATS.

# Application Architecture

The server runs under a Suture v4 supervision tree:

	RootSupervisor ("baskygate")
	├── DataSupervisor ("data-layer")
	│   ├── Persistence sink (sharded DuckDB writers)
	│   └── WAL compactor (optional, WAL_ENABLED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Embedded NATS server (optional, NATS_EMBEDDED=true)
	│   └── Fan-out bridge (optional, NATS_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (device/dashboard sockets, REST API, metrics)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Logging: zerolog, with an slog bridge for the supervisor
 3. Database: DuckDB telemetry store
 4. WAL: BadgerDB spool, replayed into DuckDB before accepting devices
 5. Registry, fan-out broker and optional NATS bridge
 6. Gateway, command dispatcher and HTTP router

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server stops
accepting connections and closes every device session, the persistence
sink drains its queues, and the database and WAL are closed last.

# Example Usage

	export HTTP_PORT=8080
	export DUCKDB_PATH=/data/baskygate.duckdb
	export WAL_ENABLED=true
	export NATS_ENABLED=true NATS_EMBEDDED=true
	./baskygate
*/
package main
