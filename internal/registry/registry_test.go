// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeHandle struct {
	id     uint64
	mu     sync.Mutex
	frames [][]byte
}

func (h *fakeHandle) ConnID() uint64 { return h.id }

func (h *fakeHandle) Send(frame []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, frame)
	return true
}

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func TestRegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := New(WithClock(stepClock()))
	h := &fakeHandle{id: 1}

	if err := r.Register("d1", h, "normal"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ok := r.Lookup("d1")
	if !ok || got != h {
		t.Fatalf("Lookup() = %v, %v; want registered handle", got, ok)
	}

	entry, ok := r.Get("d1")
	if !ok {
		t.Fatal("Get() missing entry")
	}
	if entry.Status != "connected" || entry.Mode != "normal" || entry.ConnID != 1 {
		t.Errorf("unexpected entry %+v", entry)
	}
	if !entry.ConnectedAt.Equal(entry.LastSeen) {
		t.Errorf("connected_at %v != last_seen %v", entry.ConnectedAt, entry.LastSeen)
	}
}

func TestRegisterRejectsEmptyID(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Register("", &fakeHandle{}, "normal"); !errors.Is(err, ErrEmptyDeviceID) {
		t.Errorf("Register(\"\") error = %v, want ErrEmptyDeviceID", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegisterLastWriterWins(t *testing.T) {
	t.Parallel()

	r := New()
	first, second := &fakeHandle{id: 1}, &fakeHandle{id: 2}

	_ = r.Register("d1", first, "normal")
	_ = r.Register("d1", second, "demo")

	got, _ := r.Lookup("d1")
	if got != second {
		t.Errorf("Lookup() returned conn %d, want the most recent (2)", got.ConnID())
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestTouchAndUpdates(t *testing.T) {
	t.Parallel()

	r := New(WithClock(stepClock()))
	_ = r.Register("d1", &fakeHandle{id: 1}, "normal")
	registered, _ := r.Get("d1")

	r.Touch("d1")
	touched, _ := r.Get("d1")
	if !touched.LastSeen.After(registered.LastSeen) {
		t.Errorf("Touch did not advance last_seen: %v -> %v", registered.LastSeen, touched.LastSeen)
	}
	if !touched.ConnectedAt.Equal(registered.ConnectedAt) {
		t.Error("Touch must not change connected_at")
	}

	r.SetStatus("d1", "session_active")
	r.UpdateNetwork("d1", Network{SSID: "clinic", IP: "10.0.0.9", RSSI: -55, WSPort: 8080})

	entry, _ := r.Get("d1")
	if entry.Status != "session_active" {
		t.Errorf("Status = %q", entry.Status)
	}
	if entry.Network == nil || entry.Network.SSID != "clinic" || entry.Network.RSSI != -55 {
		t.Errorf("Network = %+v", entry.Network)
	}
	if !entry.LastSeen.After(touched.LastSeen) {
		t.Error("updates must advance last_seen")
	}
}

func TestUpdatesIgnoreUnknownDevices(t *testing.T) {
	t.Parallel()

	r := New()
	r.Touch("ghost")
	r.SetStatus("ghost", "connected")
	r.UpdateNetwork("ghost", Network{SSID: "x"})

	if r.Len() != 0 {
		t.Errorf("updates created entries: %v", r.Snapshot())
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	t.Parallel()

	r := New()
	_ = r.Register("d1", &fakeHandle{id: 1}, "normal")

	r.Unregister("d1")
	r.Unregister("d1")

	if _, ok := r.Lookup("d1"); ok {
		t.Error("device still present after Unregister")
	}
}

func TestReleaseOnlyRemovesOwnEntry(t *testing.T) {
	t.Parallel()

	r := New()
	old, current := &fakeHandle{id: 1}, &fakeHandle{id: 2}
	_ = r.Register("d1", old, "normal")
	_ = r.Register("d1", current, "normal")

	if r.Release("d1", old) {
		t.Error("stale handle released the newer registration")
	}
	if _, ok := r.Lookup("d1"); !ok {
		t.Fatal("newer registration evicted")
	}
	if !r.Release("d1", current) {
		t.Error("owner could not release its registration")
	}
	if r.Release("d1", current) {
		t.Error("second release should report false")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	t.Parallel()

	r := New()
	_ = r.Register("d1", &fakeHandle{id: 1}, "normal")
	r.UpdateNetwork("d1", Network{SSID: "a"})

	snap := r.Snapshot()
	entry := snap["d1"]
	if entry.handle != nil {
		t.Error("snapshot exposes the live handle")
	}

	entry.Network.SSID = "mutated"
	entry.Status = "mutated"
	snap["d2"] = Entry{DeviceID: "d2"}

	fresh, _ := r.Get("d1")
	if fresh.Network.SSID != "a" || fresh.Status != "connected" {
		t.Errorf("snapshot mutation leaked into registry: %+v", fresh)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	r := New()
	const devices = 50

	var wg sync.WaitGroup
	for i := 0; i < devices; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("dev-%d", i)
			h := &fakeHandle{id: uint64(i)}
			_ = r.Register(id, h, "normal")
			for j := 0; j < 20; j++ {
				r.Touch(id)
				r.UpdateNetwork(id, Network{SSID: id, RSSI: -j})
				_ = r.Snapshot()
				if got, ok := r.Lookup(id); !ok || got != h {
					t.Errorf("lookup %s failed", id)
				}
			}
			if i%2 == 0 {
				r.Release(id, h)
			}
		}(i)
	}
	wg.Wait()

	if r.Len() != devices/2 {
		t.Errorf("Len() = %d, want %d", r.Len(), devices/2)
	}
	for id, entry := range r.Snapshot() {
		if entry.Network == nil || entry.Network.SSID != id {
			t.Errorf("inconsistent entry for %s: %+v", id, entry.Network)
		}
	}
}
