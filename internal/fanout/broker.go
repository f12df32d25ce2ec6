// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package fanout

import (
	"sync"

	"github.com/tomtom215/baskygate/internal/metrics"
)

// AllDevices subscribes to every device's events.
const AllDevices = ""

// Subscription receives events for one topic until Unsubscribe is called.
type Subscription struct {
	C <-chan Event

	ch       chan Event
	deviceID string
	broker   *Broker
	once     sync.Once
}

// DeviceID returns the subscribed device, or AllDevices.
func (s *Subscription) DeviceID() string {
	return s.deviceID
}

// Unsubscribe detaches the subscription and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.remove(s)
	})
}

// Broker routes events to per-device and all-device subscribers.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	buffer int
}

// NewBroker creates a broker whose subscriptions buffer up to buffer events.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers for events of deviceID, or every device with AllDevices.
func (b *Broker) Subscribe(deviceID string) *Subscription {
	ch := make(chan Event, b.buffer)
	sub := &Subscription{C: ch, ch: ch, deviceID: deviceID, broker: b}

	b.mu.Lock()
	subs, ok := b.topics[deviceID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[deviceID] = subs
	}
	subs[sub] = struct{}{}
	b.mu.Unlock()

	metrics.FanoutSubscribers.Inc()
	return sub
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	if subs, ok := b.topics[sub.deviceID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, sub.deviceID)
		}
	}
	close(sub.ch)
	b.mu.Unlock()

	metrics.FanoutSubscribers.Dec()
}

// Publish delivers ev to the device's subscribers and to all-device
// subscribers. It never blocks; it returns how many subscribers received it.
func (b *Broker) Publish(ev Event) int {
	metrics.FanoutEvents.WithLabelValues(ev.Type).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := b.deliver(b.topics[ev.DeviceID], ev)
	if ev.DeviceID != AllDevices {
		delivered += b.deliver(b.topics[AllDevices], ev)
	}
	return delivered
}

func (b *Broker) deliver(subs map[*Subscription]struct{}, ev Event) int {
	n := 0
	for sub := range subs {
		select {
		case sub.ch <- ev:
			n++
		default:
			metrics.FanoutDropped.Inc()
		}
	}
	return n
}

// Subscribers returns the number of subscriptions for deviceID.
func (b *Broker) Subscribers(deviceID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[deviceID])
}
