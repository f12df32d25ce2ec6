// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

// Package config loads gateway configuration from defaults, an optional YAML
// file, and environment variables (highest priority), using Koanf v2.
package config

import (
	"fmt"
	"time"
)

// Config is the complete gateway configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Gateway     GatewayConfig     `koanf:"gateway"`
	Database    DatabaseConfig    `koanf:"database"`
	Persistence PersistenceConfig `koanf:"persistence"`
	WAL         WALConfig         `koanf:"wal"`
	Fanout      FanoutConfig      `koanf:"fanout"`
	NATS        NATSConfig        `koanf:"nats"`
	API         APIConfig         `koanf:"api"`
	Supervisor  SupervisorConfig  `koanf:"supervisor"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GatewayConfig holds device connection settings.
type GatewayConfig struct {
	WelcomeMessage string        `koanf:"welcome_message"`
	ServerVersion  string        `koanf:"server_version"`
	WriteWait      time.Duration `koanf:"write_wait"`
	PongWait       time.Duration `koanf:"pong_wait"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	SendBuffer     int           `koanf:"send_buffer"`

	// InboundRateLimit caps frames per second per connection (0 = unlimited).
	InboundRateLimit float64 `koanf:"inbound_rate_limit"`
	InboundBurst     int     `koanf:"inbound_burst"`

	// AllowedOrigins restricts browser origins for dashboard sockets; devices send no Origin.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// PingPeriod is how often the server pings a peer. It must be less than PongWait.
func (g GatewayConfig) PingPeriod() time.Duration {
	return (g.PongWait * 9) / 10
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// PersistenceConfig tunes the asynchronous write path.
type PersistenceConfig struct {
	Shards                  int           `koanf:"shards"`
	QueueSize               int           `koanf:"queue_size"`
	EnqueueTimeout          time.Duration `koanf:"enqueue_timeout"`
	WriteTimeout            time.Duration `koanf:"write_timeout"`
	MaxRetries              int           `koanf:"max_retries"`
	RetryInitialInterval    time.Duration `koanf:"retry_initial_interval"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
}

// WALConfig holds the BadgerDB write-ahead spool settings.
type WALConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Path       string        `koanf:"path"`
	SyncWrites bool          `koanf:"sync_writes"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// FanoutConfig holds dashboard broadcast settings.
type FanoutConfig struct {
	SubscriberBuffer int `koanf:"subscriber_buffer"`
}

// NATSConfig holds the optional message bus bridge settings.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	EmbeddedHost   string        `koanf:"embedded_host"`
	EmbeddedPort   int           `koanf:"embedded_port"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
}

// APIConfig holds control/query HTTP surface settings.
type APIConfig struct {
	CORSOrigins          []string      `koanf:"cors_origins"`
	RateLimitRequests    int           `koanf:"rate_limit_requests"`
	RateLimitWindow      time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled    bool          `koanf:"rate_limit_disabled"`
	ReadingsDefaultLimit int           `koanf:"readings_default_limit"`
	ReadingsMaxLimit     int           `koanf:"readings_max_limit"`
}

// SupervisorConfig tunes the suture supervision tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
