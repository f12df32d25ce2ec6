// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/baskygate/internal/config"
)

func TestBridgeTopic(t *testing.T) {
	b := NewBridge(NewBroker(1), nil, "baskygate.devices.")

	tests := []struct {
		ev   Event
		want string
	}{
		{Event{DeviceID: "d1", Type: EventSensorData}, "baskygate.devices.d1.sensor_data"},
		{Event{DeviceID: "esp32.lab 2", Type: EventOffline}, "baskygate.devices.esp32_lab_2.offline"},
		{Event{DeviceID: "", Type: EventStatus}, "baskygate.devices._.status"},
		{Event{DeviceID: "a*>", Type: EventStatus}, "baskygate.devices.a__.status"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := b.Topic(tt.ev); got != tt.want {
				t.Errorf("Topic() = %q, want %q", got, tt.want)
			}
		})
	}
}

func startBridge(t *testing.T, bridge *Bridge, broker *Broker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Serve(ctx) }()

	// Serve subscribes asynchronously; wait until it is attached.
	deadline := time.Now().Add(time.Second)
	for broker.Subscribers(AllDevices) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("bridge did not subscribe")
		}
		time.Sleep(time.Millisecond)
	}

	t.Cleanup(func() {
		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	})
}

func TestBridgeForwardsToGoChannel(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, NewWatermillLogger())
	defer pubsub.Close()

	msgs, err := pubsub.Subscribe(context.Background(), "gw.d1.sensor_data")
	if err != nil {
		t.Fatal(err)
	}

	broker := NewBroker(8)
	bridge := NewBridge(broker, pubsub, "gw")
	startBridge(t, bridge, broker)

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	broker.Publish(Event{
		DeviceID:  "d1",
		Type:      EventSensorData,
		Payload:   json.RawMessage(`{"type":"sensor_data","shoulder":{"pitch":1}}`),
		Timestamp: ts,
	})

	var msg *message.Message
	select {
	case msg = <-msgs:
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no message forwarded")
	}

	if msg.Metadata.Get("device_id") != "d1" || msg.Metadata.Get("event") != EventSensorData {
		t.Errorf("metadata = %v", msg.Metadata)
	}
	var got Event
	if err := json.Unmarshal(msg.Payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.DeviceID != "d1" || !got.Timestamp.Equal(ts) || string(got.Payload) != `{"type":"sensor_data","shoulder":{"pitch":1}}` {
		t.Errorf("payload = %+v", got)
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("bus down") }
func (failingPublisher) Close() error                              { return nil }

func TestBridgeSurvivesPublishFailure(t *testing.T) {
	broker := NewBroker(8)
	bridge := NewBridge(broker, failingPublisher{}, "gw")
	startBridge(t, bridge, broker)

	for i := 0; i < 3; i++ {
		broker.Publish(Event{DeviceID: "d1", Type: EventStatus})
	}
	time.Sleep(20 * time.Millisecond)

	if broker.Subscribers(AllDevices) != 1 {
		t.Error("bridge should still be subscribed after publish failures")
	}
}

func TestNATSPublisherWithEmbeddedServer(t *testing.T) {
	srv, err := StartEmbeddedServer("127.0.0.1", -1)
	if err != nil {
		t.Fatalf("StartEmbeddedServer() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if !srv.IsRunning() {
		t.Fatal("embedded server not running")
	}

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()

	received := make(chan *natsgo.Msg, 4)
	if _, err := nc.ChanSubscribe("baskygate.devices.>", received); err != nil {
		t.Fatal(err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}

	pub, err := NewNATSPublisher(srv.ClientURL(), config.NATSConfig{MaxReconnects: 1, ReconnectWait: 100 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	defer pub.Close()

	broker := NewBroker(8)
	startBridge(t, NewBridge(broker, pub, "baskygate.devices"), broker)

	broker.Publish(Event{DeviceID: "d7", Type: EventOffline})

	select {
	case m := <-received:
		if m.Subject != "baskygate.devices.d7.offline" {
			t.Errorf("subject = %q", m.Subject)
		}
		var ev Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			t.Fatal(err)
		}
		if ev.DeviceID != "d7" || ev.Type != EventOffline {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no NATS message received")
	}
}
