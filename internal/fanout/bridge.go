// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package fanout

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/baskygate/internal/logging"
	"github.com/tomtom215/baskygate/internal/metrics"
)

// Bridge forwards every broker event to a Watermill publisher. It implements
// suture.Service.
type Bridge struct {
	broker    *Broker
	publisher message.Publisher
	prefix    string
}

// NewBridge creates a bridge publishing under prefix.
func NewBridge(broker *Broker, publisher message.Publisher, prefix string) *Bridge {
	return &Bridge{broker: broker, publisher: publisher, prefix: strings.TrimSuffix(prefix, ".")}
}

// Topic returns the subject an event is published on.
func (b *Bridge) Topic(ev Event) string {
	return b.prefix + "." + subjectToken(ev.DeviceID) + "." + subjectToken(ev.Type)
}

// Serve forwards events until ctx is cancelled. Publish failures are logged
// and counted; the bridge keeps running.
func (b *Bridge) Serve(ctx context.Context) error {
	sub := b.broker.Subscribe(AllDevices)
	defer sub.Unsubscribe()

	logging.Info().Str("prefix", b.prefix).Msg("Fan-out bridge started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Fan-out bridge stopped")
			return ctx.Err()
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			b.forward(ev)
		}
	}
}

func (b *Bridge) forward(ev Event) {
	data, err := ev.Marshal()
	if err != nil {
		metrics.BridgePublished.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("device_id", ev.DeviceID).Msg("Failed to encode fan-out event")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("device_id", ev.DeviceID)
	msg.Metadata.Set("event", ev.Type)

	if err := b.publisher.Publish(b.Topic(ev), msg); err != nil {
		metrics.BridgePublished.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Str("device_id", ev.DeviceID).Str("event", ev.Type).Msg("Fan-out bridge publish failed")
		return
	}
	metrics.BridgePublished.WithLabelValues("success").Inc()
}

// String returns the service name for supervisor logging.
func (b *Bridge) String() string {
	return "fanout-bridge"
}

// subjectToken makes s safe as a single NATS subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
