// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/baskygate/internal/config"
	"github.com/tomtom215/baskygate/internal/database"
	"github.com/tomtom215/baskygate/internal/dispatch"
	"github.com/tomtom215/baskygate/internal/logging"
	"github.com/tomtom215/baskygate/internal/models"
	"github.com/tomtom215/baskygate/internal/protocol"
	"github.com/tomtom215/baskygate/internal/registry"
	"github.com/tomtom215/baskygate/internal/validation"
)

// maxCommandBody caps a command request body.
const maxCommandBody = 64 << 10

// TelemetryStore is the read side of persisted telemetry. *database.DB satisfies it.
type TelemetryStore interface {
	Ping(ctx context.Context) error
	RecentReadings(ctx context.Context, deviceID string, limit int) ([]models.SensorReading, error)
	LatestStatus(ctx context.Context, deviceID string) (*models.StatusEvent, error)
	NetworkConfig(ctx context.Context, deviceID string) (*models.NetworkConfig, error)
}

// Commander delivers commands and exposes the registry. *dispatch.Dispatcher satisfies it.
type Commander interface {
	SendCommand(deviceID, commandType string, payload []byte) (bool, error)
	ConnectedDevices() map[string]registry.Entry
	Device(deviceID string) (registry.Entry, bool)
}

// SinkStatus reports persistence health. *persistence.Sink satisfies it.
type SinkStatus interface {
	BreakerStateName() string
}

// Handler serves the control and query endpoints.
type Handler struct {
	store     TelemetryStore
	commander Commander
	sink      SinkStatus
	cfg       config.APIConfig
	version   string
	startTime time.Time
}

// NewHandler creates a Handler. sink may be nil.
func NewHandler(store TelemetryStore, commander Commander, sink SinkStatus, cfg config.APIConfig, version string) *Handler {
	return &Handler{
		store:     store,
		commander: commander,
		sink:      sink,
		cfg:       cfg,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthLive answers as long as the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{
		"alive":   true,
		"version": h.version,
		"uptime":  time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers 200 only while DuckDB responds.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		rw.ServiceUnavailable("Database unavailable")
		return
	}

	status := map[string]any{
		"ready":             true,
		"devices_connected": len(h.commander.ConnectedDevices()),
	}
	if h.sink != nil {
		status["persistence_breaker"] = h.sink.BreakerStateName()
	}
	rw.Success(status)
}

// ListDevices returns the registry snapshot ordered by device id.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	snapshot := h.commander.ConnectedDevices()

	devices := make([]registry.Entry, 0, len(snapshot))
	for _, entry := range snapshot {
		devices = append(devices, entry)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].DeviceID < devices[j].DeviceID
	})

	NewResponseWriter(w, r).SuccessWithPagination(devices, &PaginationMeta{Count: len(devices)})
}

// DeviceResponse is the body of GET /devices/{deviceID}.
type DeviceResponse struct {
	DeviceID   string              `json:"device_id"`
	Online     bool                `json:"online"`
	Connection *registry.Entry     `json:"connection,omitempty"`
	LastStatus *models.StatusEvent `json:"last_status,omitempty"`
}

// GetDevice combines the live registry entry with the last persisted status.
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	deviceID, ok := h.deviceParam(rw, r)
	if !ok {
		return
	}

	resp := DeviceResponse{DeviceID: deviceID}
	if entry, online := h.commander.Device(deviceID); online {
		resp.Online = true
		resp.Connection = &entry
	}

	status, err := h.store.LatestStatus(r.Context(), deviceID)
	switch {
	case err == nil:
		resp.LastStatus = status
	case !errors.Is(err, database.ErrNotFound):
		rw.DatabaseError(err)
		return
	}

	if !resp.Online && resp.LastStatus == nil {
		rw.NotFound("Device " + deviceID + " has never connected")
		return
	}
	rw.Success(resp)
}

// DeviceReadings returns the newest readings for a device.
func (h *Handler) DeviceReadings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := ReadingsRequest{
		DeviceID: deviceIDParam(r),
		Limit:    h.cfg.ReadingsDefaultLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("limit must be an integer")
			return
		}
		req.Limit = limit
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	if req.Limit > h.cfg.ReadingsMaxLimit {
		req.Limit = h.cfg.ReadingsMaxLimit
	}

	readings, err := h.store.RecentReadings(r.Context(), req.DeviceID, req.Limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(readings, &PaginationMeta{Count: len(readings), Limit: req.Limit})
}

// DeviceNetwork returns the last network configuration reported by a device.
func (h *Handler) DeviceNetwork(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	deviceID, ok := h.deviceParam(rw, r)
	if !ok {
		return
	}

	nc, err := h.store.NetworkConfig(r.Context(), deviceID)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("No network configuration for device " + deviceID)
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(nc)
}

// CommandResponse is the body of a delivered command.
type CommandResponse struct {
	DeviceID  string `json:"device_id"`
	Command   string `json:"command"`
	Delivered bool   `json:"delivered"`
}

// SendCommand delivers one command to a connected device.
func (h *Handler) SendCommand(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := CommandRequest{
		DeviceID: deviceIDParam(r),
		Command:  chi.URLParam(r, "command"),
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		code := ErrCodeValidationFailed
		for _, fe := range verr.Errors() {
			if fe.Tag() == "devicecommand" {
				code = ErrCodeUnknownCommand
			}
		}
		rw.ErrorWithDetails(http.StatusBadRequest, code, apiErr.Message, apiErr.Details)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBody))
	if err != nil {
		rw.BadRequest("Request body too large or unreadable")
		return
	}

	delivered, err := h.commander.SendCommand(req.DeviceID, req.Command, body)
	switch {
	case errors.Is(err, protocol.ErrUnknownCommand):
		rw.Error(http.StatusBadRequest, ErrCodeUnknownCommand, err.Error())
		return
	case errors.Is(err, dispatch.ErrDeviceBusy):
		rw.DeviceBusy(req.DeviceID)
		return
	case err != nil:
		rw.BadRequest(err.Error())
		return
	case !delivered:
		rw.DeviceOffline(req.DeviceID)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("device_id", req.DeviceID).
		Str("command", req.Command).
		Msg("Command accepted")
	rw.Accepted(CommandResponse{DeviceID: req.DeviceID, Command: req.Command, Delivered: true})
}

func (h *Handler) deviceParam(rw *ResponseWriter, r *http.Request) (string, bool) {
	req := DeviceRequest{DeviceID: deviceIDParam(r)}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return "", false
	}
	return req.DeviceID, true
}

// deviceIDParam returns the {deviceID} path segment decoded. chi matches on
// the raw path when the URL carries escapes such as %2F, leaving them in the
// parameter.
func deviceIDParam(r *http.Request) string {
	id := chi.URLParam(r, "deviceID")
	if r.URL.RawPath == "" {
		return id
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}
