// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package services provides suture.Service wrappers for gateway components
whose lifecycle is not already a Serve(ctx) loop.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the blocking ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

Embedded NATS (NATSServerService):
  - Owns the lifetime of an already started fanout.EmbeddedServer
  - Fails the service when the server stops on its own, so the
    supervisor logs and restarts dependent bridges
  - Shuts the server down when the tree stops

The persistence sink, WAL compactor and fan-out bridge implement
suture.Service directly and need no wrapper.

# Example

	server := &http.Server{Addr: ":8080", Handler: router.SetupChi()}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
*/
package services
