// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/baskygate/internal/fanout"
)

// DeviceGateway terminates WebSocket connections. *websocket.Gateway satisfies it.
type DeviceGateway interface {
	ServeDevice(w http.ResponseWriter, r *http.Request)
	ServeDashboard(w http.ResponseWriter, r *http.Request, deviceID string)
}

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	gateway       DeviceGateway
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, gateway DeviceGateway) *Router {
	return &Router{
		handler:       handler,
		gateway:       gateway,
		chiMiddleware: NewChiMiddleware(handler.cfg),
	}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// WebSocket upgrades: no security headers or response wrapping, the
	// connection is hijacked.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket))
		r.Get("/ws/device", router.gateway.ServeDevice)
		r.Get("/ws/dashboard", func(w http.ResponseWriter, req *http.Request) {
			router.gateway.ServeDashboard(w, req, fanout.AllDevices)
		})
		r.Get("/ws/dashboard/{deviceID}", func(w http.ResponseWriter, req *http.Request) {
			router.gateway.ServeDashboard(w, req, chi.URLParam(req, "deviceID"))
		})
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/devices", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())

		r.Get("/", router.handler.ListDevices)
		r.Route("/{deviceID}", func(r chi.Router) {
			r.Get("/", router.handler.GetDevice)
			r.Get("/readings", router.handler.DeviceReadings)
			r.Get("/network", router.handler.DeviceNetwork)
			r.Post("/commands/{command}", router.handler.SendCommand)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	return r
}
