// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cespare/xxhash/v2"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/baskygate/internal/config"
	"github.com/tomtom215/baskygate/internal/logging"
	"github.com/tomtom215/baskygate/internal/metrics"
	"github.com/tomtom215/baskygate/internal/models"
)

var (
	// ErrSinkClosed is returned when recording after the sink has stopped.
	ErrSinkClosed = errors.New("persistence: sink closed")

	// ErrQueueFull is returned when a shard queue stayed full for EnqueueTimeout.
	ErrQueueFull = errors.New("persistence: queue full")
)

const breakerName = "duckdb-sink"

// Option configures a Sink.
type Option func(*Sink)

// WithSpool attaches a write-ahead log.
func WithSpool(spool Spool) Option {
	return func(s *Sink) {
		s.spool = spool
	}
}

// Sink is the sharded, non-blocking persistence write path.
type Sink struct {
	store   Store
	spool   Spool
	cfg     config.PersistenceConfig
	breaker *gobreaker.CircuitBreaker[struct{}]
	shards  []chan *record

	mu      sync.RWMutex
	closed  bool
	stop    chan struct{}
	running bool
}

// New creates a sink in front of store. Records may be queued before Serve
// starts; they are written once the workers run.
func New(store Store, cfg config.PersistenceConfig, opts ...Option) *Sink {
	if cfg.Shards < 1 {
		cfg.Shards = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = 5
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	s := &Sink{
		store:  store,
		cfg:    cfg,
		shards: make([]chan *record, cfg.Shards),
		stop:   make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = make(chan *record, cfg.QueueSize)
	}
	for _, opt := range opts {
		opt(s)
	}

	metrics.SetCircuitBreakerState(breakerName, int(gobreaker.StateClosed))
	threshold := cfg.BreakerFailureThreshold
	s.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.SetCircuitBreakerState(name, int(to))
		},
	})

	return s
}

// RecordStatus queues a status event.
func (s *Sink) RecordStatus(ctx context.Context, ev models.StatusEvent) error {
	return s.enqueue(ctx, &record{kind: KindStatusEvent, deviceID: ev.DeviceID, status: &ev})
}

// RecordReading queues a sensor reading.
func (s *Sink) RecordReading(ctx context.Context, r models.SensorReading) error {
	return s.enqueue(ctx, &record{kind: KindSensorReading, deviceID: r.DeviceID, reading: &r})
}

// RecordNetworkConfig queues a network config upsert.
func (s *Sink) RecordNetworkConfig(ctx context.Context, nc models.NetworkConfig) error {
	return s.enqueue(ctx, &record{kind: KindNetworkConfig, deviceID: nc.DeviceID, network: &nc})
}

func (s *Sink) enqueue(ctx context.Context, r *record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	if s.spool != nil {
		id, err := s.spool.Write(ctx, r.kind, r.payload())
		if err != nil {
			logging.Warn().Err(err).Str("device_id", r.deviceID).Str("record", r.kind).Msg("WAL write failed, queueing without durability")
		} else {
			r.walID = id
		}
	}

	ch := s.shardFor(r.deviceID)
	select {
	case ch <- r:
		metrics.PersistenceQueueDepth.Inc()
		return nil
	default:
	}

	if s.cfg.EnqueueTimeout > 0 {
		timer := time.NewTimer(s.cfg.EnqueueTimeout)
		defer timer.Stop()
		select {
		case ch <- r:
			metrics.PersistenceQueueDepth.Inc()
			return nil
		case <-timer.C:
		case <-ctx.Done():
		}
	}

	metrics.RecordPersistenceDrop(r.kind)
	logging.Warn().
		Str("device_id", r.deviceID).
		Str("record", r.kind).
		Bool("spooled", r.walID != "").
		Msg("Persistence queue full, record dropped")
	return ErrQueueFull
}

func (s *Sink) shardFor(deviceID string) chan *record {
	return s.shards[xxhash.Sum64String(deviceID)%uint64(len(s.shards))]
}

// Serve runs one writer per shard until ctx is cancelled. Queued records are
// drained before it returns.
func (s *Sink) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	if s.running {
		s.mu.Unlock()
		return errors.New("persistence: sink already running")
	}
	s.running = true
	s.mu.Unlock()

	var wg sync.WaitGroup
	for i, ch := range s.shards {
		wg.Add(1)
		go func(shard int, ch chan *record) {
			defer wg.Done()
			s.runShard(shard, ch)
		}(i, ch)
	}

	logging.Info().Int("shards", len(s.shards)).Int("queue_size", s.cfg.QueueSize).Bool("wal", s.spool != nil).Msg("Persistence sink started")

	<-ctx.Done()

	s.mu.Lock()
	s.closed = true
	close(s.stop)
	s.mu.Unlock()

	wg.Wait()
	logging.Info().Msg("Persistence sink stopped")
	return ctx.Err()
}

// String returns the service name for supervisor logging.
func (s *Sink) String() string {
	return "persistence-sink"
}

func (s *Sink) runShard(shard int, ch chan *record) {
	for {
		select {
		case r := <-ch:
			metrics.PersistenceQueueDepth.Dec()
			s.write(r)
		case <-s.stop:
			drained := 0
			for {
				select {
				case r := <-ch:
					metrics.PersistenceQueueDepth.Dec()
					s.write(r)
					drained++
				default:
					if drained > 0 {
						logging.Debug().Int("shard", shard).Int("drained", drained).Msg("Persistence shard drained")
					}
					return
				}
			}
		}
	}
}

// write stores one record with breaker protection and bounded retry.
// Errors are logged and swallowed.
func (s *Sink) write(r *record) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()

	err := backoff.Retry(func() error {
		_, err := s.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, r.apply(ctx, s.store)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}, s.retryPolicy(ctx))

	metrics.RecordPersistenceWrite(r.kind, time.Since(start), err)
	if err != nil {
		logging.Error().
			Err(err).
			Str("device_id", r.deviceID).
			Str("record", r.kind).
			Bool("spooled", r.walID != "").
			Msg("Persistence write failed")
		return
	}

	if s.spool != nil && r.walID != "" {
		if err := s.spool.Confirm(ctx, r.walID); err != nil {
			logging.Warn().Err(err).Str("wal_id", r.walID).Msg("WAL confirm failed")
		}
	}
}

func (s *Sink) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if s.cfg.RetryInitialInterval > 0 {
		b.InitialInterval = s.cfg.RetryInitialInterval
	}
	b.MaxElapsedTime = 0
	var policy backoff.BackOff = b
	if s.cfg.MaxRetries >= 0 {
		policy = backoff.WithMaxRetries(b, uint64(s.cfg.MaxRetries))
	}
	return backoff.WithContext(policy, ctx)
}

// Recover replays records left pending in the WAL, in write order. Call it
// before devices connect. It returns the number of records stored.
func (s *Sink) Recover(ctx context.Context) (int, error) {
	if s.spool == nil {
		return 0, nil
	}

	entries, err := s.spool.Pending(ctx)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return recovered, err
		}
		r, err := recordFromEntry(e)
		if err != nil {
			logging.Warn().Err(err).Str("wal_id", e.ID).Msg("Skipping unreadable WAL entry")
			continue
		}

		if err := r.apply(ctx, s.store); err != nil {
			logging.Error().Err(err).Str("wal_id", e.ID).Str("device_id", r.deviceID).Msg("WAL replay write failed")
			continue
		}
		if err := s.spool.Confirm(ctx, e.ID); err != nil {
			logging.Warn().Err(err).Str("wal_id", e.ID).Msg("WAL confirm failed")
		}
		recovered++
	}

	if len(entries) > 0 {
		logging.Info().Int("pending", len(entries)).Int("recovered", recovered).Msg("WAL recovery complete")
	}
	return recovered, nil
}

// BreakerState reports the breaker state for health checks.
func (s *Sink) BreakerState() gobreaker.State {
	return s.breaker.State()
}

// BreakerStateName is BreakerState as text: "closed", "half-open" or "open".
func (s *Sink) BreakerStateName() string {
	return s.breaker.State().String()
}
