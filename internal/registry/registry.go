// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

// Package registry tracks which devices are online and how to reach them.
//
// A Registry is constructed once at startup and handed to every device
// session and to the command dispatcher. Presence in the Registry is the
// definition of "online": an entry exists only while its connection is open
// and after the device has sent a "connected" status.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/baskygate/internal/metrics"
)

// ErrEmptyDeviceID is returned when registering without a device id.
var ErrEmptyDeviceID = errors.New("device id is required")

// Handle is the owning session's outbound side. Send must not block.
type Handle interface {
	// ConnID identifies the underlying connection.
	ConnID() uint64

	// Send queues an encoded frame, reporting false if the connection is gone
	// or its buffer is full.
	Send(frame []byte) bool
}

// Network holds the last network_info reported by a device.
type Network struct {
	SSID   string `json:"ssid"`
	IP     string `json:"ip"`
	RSSI   int    `json:"rssi"`
	WSHost string `json:"ws_host"`
	WSPort int    `json:"ws_port"`
}

// Entry is one registered device. Snapshots return copies without the handle.
type Entry struct {
	DeviceID    string    `json:"device_id"`
	ConnID      uint64    `json:"conn_id"`
	Status      string    `json:"status"`
	Mode        string    `json:"mode"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
	Network     *Network  `json:"network,omitempty"`

	handle Handle
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry maps device ids to live connections. All methods are safe for
// concurrent use and hold the lock only for map operations.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Entry
	now     func() time.Time
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		devices: make(map[string]*Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts or replaces the entry for deviceID. A previous entry for
// the same id is silently replaced (last writer wins).
func (r *Registry) Register(deviceID string, h Handle, mode string) error {
	if deviceID == "" {
		return ErrEmptyDeviceID
	}
	if h == nil {
		return errors.New("registry: nil handle")
	}

	now := r.now()
	entry := &Entry{
		DeviceID:    deviceID,
		ConnID:      h.ConnID(),
		Status:      "connected",
		Mode:        mode,
		ConnectedAt: now,
		LastSeen:    now,
		handle:      h,
	}

	r.mu.Lock()
	r.devices[deviceID] = entry
	n := len(r.devices)
	r.mu.Unlock()

	metrics.DeviceRegistrations.Inc()
	metrics.DevicesConnected.Set(float64(n))
	return nil
}

// Touch bumps last_seen. No-op for unknown devices.
func (r *Registry) Touch(deviceID string) {
	r.update(deviceID, func(*Entry) {})
}

// SetStatus records the latest status and bumps last_seen.
func (r *Registry) SetStatus(deviceID, status string) {
	r.update(deviceID, func(e *Entry) {
		e.Status = status
	})
}

// UpdateNetwork replaces the network fields and bumps last_seen.
func (r *Registry) UpdateNetwork(deviceID string, network Network) {
	r.update(deviceID, func(e *Entry) {
		n := network
		e.Network = &n
	})
}

// update applies fn to a fresh copy of the entry and swaps it in, so readers
// holding an older *Entry never observe a partial write.
func (r *Registry) update(deviceID string, fn func(*Entry)) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.devices[deviceID]
	if !ok {
		return
	}
	next := *current
	fn(&next)
	next.LastSeen = now
	r.devices[deviceID] = &next
}

// Unregister removes the entry if present. Calling it twice is a no-op.
func (r *Registry) Unregister(deviceID string) {
	r.mu.Lock()
	delete(r.devices, deviceID)
	n := len(r.devices)
	r.mu.Unlock()

	metrics.DevicesConnected.Set(float64(n))
}

// Release removes deviceID only if it is still owned by h, and reports whether
// it did. A session that was replaced by a newer connection cannot evict it.
func (r *Registry) Release(deviceID string, h Handle) bool {
	r.mu.Lock()
	current, ok := r.devices[deviceID]
	owned := ok && current.handle == h
	if owned {
		delete(r.devices, deviceID)
	}
	n := len(r.devices)
	r.mu.Unlock()

	if owned {
		metrics.DevicesConnected.Set(float64(n))
	}
	return owned
}

// Lookup returns the live handle for deviceID.
func (r *Registry) Lookup(deviceID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.devices[deviceID]
	if !ok {
		return nil, false
	}
	return entry.handle, true
}

// Get returns a copy of one entry without its handle.
func (r *Registry) Get(deviceID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.devices[deviceID]
	if !ok {
		return Entry{}, false
	}
	return entry.detached(), true
}

// Snapshot returns a point-in-time copy of every entry without handles.
func (r *Registry) Snapshot() map[string]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Entry, len(r.devices))
	for id, entry := range r.devices {
		out[id] = entry.detached()
	}
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

func (e *Entry) detached() Entry {
	c := *e
	c.handle = nil
	if e.Network != nil {
		n := *e.Network
		c.Network = &n
	}
	return c
}
