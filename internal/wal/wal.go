// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/baskygate/internal/config"
	"github.com/tomtom215/baskygate/internal/logging"
	"github.com/tomtom215/baskygate/internal/metrics"
)

var (
	// ErrWALClosed is returned by operations on a closed WAL.
	ErrWALClosed = errors.New("wal: closed")

	// ErrEntryNotFound is returned when confirming an unknown entry.
	ErrEntryNotFound = errors.New("wal: entry not found")

	// ErrNilPayload is returned when writing a nil payload.
	ErrNilPayload = errors.New("wal: nil payload")
)

const (
	prefixPending = "pending:"
	sequenceKey   = "!seq"

	// sequenceBandwidth is how many ids Badger leases at a time.
	sequenceBandwidth = 256
)

// Entry is one spooled record.
type Entry struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload deserializes the payload into v.
func (e *Entry) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// BadgerWAL implements the spool on BadgerDB.
type BadgerWAL struct {
	db  *badger.DB
	seq *badger.Sequence

	pending atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the WAL described by cfg.
func Open(cfg config.WALConfig) (*BadgerWAL, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("get WAL sequence: %w", err)
	}

	w := &BadgerWAL{db: db, seq: seq}

	n, err := w.countPending()
	if err != nil {
		_ = seq.Release()
		_ = db.Close()
		return nil, err
	}
	w.pending.Store(n)
	metrics.WALPendingEntries.Set(float64(n))

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Int64("pending", n).
		Msg("WAL opened")

	return w, nil
}

// Write spools payload under kind and returns the entry id for Confirm.
func (w *BadgerWAL) Write(ctx context.Context, kind string, payload any) (string, error) {
	if err := w.checkOpen(); err != nil {
		return "", err
	}
	if payload == nil {
		return "", ErrNilPayload
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	n, err := w.seq.Next()
	if err != nil {
		metrics.RecordWALOperation("write", err)
		return "", fmt.Errorf("next WAL sequence: %w", err)
	}

	entry := Entry{
		ID:        formatID(n),
		Kind:      kind,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	err = w.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pendingKey(entry.ID), data)
	})
	metrics.RecordWALOperation("write", err)
	if err != nil {
		return "", fmt.Errorf("write to BadgerDB: %w", err)
	}

	metrics.WALPendingEntries.Set(float64(w.pending.Add(1)))
	return entry.ID, nil
}

// Confirm removes an entry once its record is durably stored.
func (w *BadgerWAL) Confirm(ctx context.Context, id string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	key := pendingKey(id)
	err := w.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrEntryNotFound
			}
			return fmt.Errorf("get pending entry: %w", err)
		}
		return txn.Delete(key)
	})
	metrics.RecordWALOperation("confirm", err)
	if err != nil {
		return err
	}

	metrics.WALPendingEntries.Set(float64(w.pending.Add(-1)))
	return nil
}

// Pending returns all unconfirmed entries in write order.
func (w *BadgerWAL) Pending(ctx context.Context) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			var entry Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("WAL failed to unmarshal entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}
	return entries, nil
}

// Len returns the number of unconfirmed entries.
func (w *BadgerWAL) Len() int64 {
	return w.pending.Load()
}

// RunGC reclaims value log space. badger.ErrNoRewrite means nothing to do.
func (w *BadgerWAL) RunGC() error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	for {
		err := w.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Close releases the sequence lease and closes BadgerDB. It is idempotent.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.seq.Release(); err != nil {
		logging.Warn().Err(err).Msg("WAL failed to release sequence")
	}
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("WAL closed")
	return nil
}

func (w *BadgerWAL) checkOpen() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWALClosed
	}
	return nil
}

func (w *BadgerWAL) countPending() (int64, error) {
	var n int64
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return n, nil
}

// formatID zero-pads the sequence so lexical key order equals write order.
func formatID(n uint64) string {
	return fmt.Sprintf("%020d", n)
}

func pendingKey(id string) []byte {
	return []byte(prefixPending + id)
}
