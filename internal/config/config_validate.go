// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/baskygate/internal/logging"
)

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateGateway,
		c.validateDatabase,
		c.validatePersistence,
		c.validateWAL,
		c.validateNATS,
		c.validateAPI,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive, got %v", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateGateway() error {
	g := c.Gateway
	if g.WriteWait <= 0 {
		return fmt.Errorf("GATEWAY_WRITE_WAIT must be positive, got %v", g.WriteWait)
	}
	if g.PongWait <= 0 {
		return fmt.Errorf("GATEWAY_PONG_WAIT must be positive, got %v", g.PongWait)
	}
	if g.MaxMessageSize < 512 {
		return fmt.Errorf("GATEWAY_MAX_MESSAGE_SIZE must be at least 512 bytes, got %d", g.MaxMessageSize)
	}
	if g.SendBuffer < 1 {
		return fmt.Errorf("GATEWAY_SEND_BUFFER must be at least 1, got %d", g.SendBuffer)
	}
	if g.InboundRateLimit < 0 {
		return fmt.Errorf("GATEWAY_INBOUND_RATE_LIMIT must not be negative, got %v", g.InboundRateLimit)
	}
	if g.InboundRateLimit > 0 && g.InboundBurst < 1 {
		return fmt.Errorf("GATEWAY_INBOUND_BURST must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validatePersistence() error {
	p := c.Persistence
	if p.Shards < 1 {
		return fmt.Errorf("PERSISTENCE_SHARDS must be at least 1, got %d", p.Shards)
	}
	if p.QueueSize < 1 {
		return fmt.Errorf("PERSISTENCE_QUEUE_SIZE must be at least 1, got %d", p.QueueSize)
	}
	if p.EnqueueTimeout < 0 {
		return fmt.Errorf("PERSISTENCE_ENQUEUE_TIMEOUT must not be negative, got %v", p.EnqueueTimeout)
	}
	if p.WriteTimeout <= 0 {
		return fmt.Errorf("PERSISTENCE_WRITE_TIMEOUT must be positive, got %v", p.WriteTimeout)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("PERSISTENCE_MAX_RETRIES must not be negative, got %d", p.MaxRetries)
	}
	if p.BreakerFailureThreshold == 0 {
		return fmt.Errorf("PERSISTENCE_BREAKER_FAILURE_THRESHOLD must be at least 1")
	}
	return nil
}

func (c *Config) validateWAL() error {
	if c.WAL.Enabled && !c.WAL.InMemory && strings.TrimSpace(c.WAL.Path) == "" {
		return fmt.Errorf("WAL_PATH is required when WAL_ENABLED=true")
	}
	if c.WAL.Enabled && c.WAL.GCInterval <= 0 {
		return fmt.Errorf("WAL_GC_INTERVAL must be positive, got %v", c.WAL.GCInterval)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.EmbeddedServer {
		if c.NATS.EmbeddedPort < -1 || c.NATS.EmbeddedPort > 65535 {
			return fmt.Errorf("NATS_EMBEDDED_PORT must be between -1 and 65535, got %d", c.NATS.EmbeddedPort)
		}
	} else {
		u, err := url.Parse(c.NATS.URL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("NATS_URL must be a valid URL, got %q", c.NATS.URL)
		}
		if u.Scheme != "nats" && u.Scheme != "tls" {
			return fmt.Errorf("NATS_URL scheme must be nats or tls, got %q", u.Scheme)
		}
	}
	if strings.TrimSpace(c.NATS.SubjectPrefix) == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX is required when NATS_ENABLED=true")
	}
	return nil
}

func (c *Config) validateAPI() error {
	a := c.API
	if !a.RateLimitDisabled && (a.RateLimitRequests < 1 || a.RateLimitWindow <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if a.ReadingsDefaultLimit < 1 || a.ReadingsMaxLimit < a.ReadingsDefaultLimit {
		return fmt.Errorf("readings limits invalid: default=%d max=%d", a.ReadingsDefaultLimit, a.ReadingsMaxLimit)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic, disabled; got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
