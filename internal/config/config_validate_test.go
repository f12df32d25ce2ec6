// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package config

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"zero pong wait", func(c *Config) { c.Gateway.PongWait = 0 }, true},
		{"tiny message size", func(c *Config) { c.Gateway.MaxMessageSize = 100 }, true},
		{"no send buffer", func(c *Config) { c.Gateway.SendBuffer = 0 }, true},
		{"negative rate", func(c *Config) { c.Gateway.InboundRateLimit = -1 }, true},
		{"rate without burst", func(c *Config) { c.Gateway.InboundRateLimit = 10; c.Gateway.InboundBurst = 0 }, true},
		{"rate with burst", func(c *Config) { c.Gateway.InboundRateLimit = 10; c.Gateway.InboundBurst = 5 }, false},
		{"empty db path", func(c *Config) { c.Database.Path = " " }, true},
		{"no shards", func(c *Config) { c.Persistence.Shards = 0 }, true},
		{"no queue", func(c *Config) { c.Persistence.QueueSize = 0 }, true},
		{"zero breaker threshold", func(c *Config) { c.Persistence.BreakerFailureThreshold = 0 }, true},
		{"zero write timeout", func(c *Config) { c.Persistence.WriteTimeout = 0 }, true},
		{"wal without path", func(c *Config) { c.WAL.Enabled = true; c.WAL.Path = "" }, true},
		{"in-memory wal without path", func(c *Config) { c.WAL.Enabled = true; c.WAL.InMemory = true; c.WAL.Path = "" }, false},
		{"nats bad url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "http://x:4222" }, true},
		{"nats good url", func(c *Config) { c.NATS.Enabled = true }, false},
		{"nats embedded", func(c *Config) { c.NATS.Enabled = true; c.NATS.EmbeddedServer = true; c.NATS.URL = "" }, false},
		{"nats no prefix", func(c *Config) { c.NATS.Enabled = true; c.NATS.SubjectPrefix = "" }, true},
		{"rate limit window", func(c *Config) { c.API.RateLimitWindow = 0 }, true},
		{"rate limit disabled", func(c *Config) { c.API.RateLimitDisabled = true; c.API.RateLimitWindow = 0 }, false},
		{"readings limits", func(c *Config) { c.API.ReadingsMaxLimit = 5 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"short shutdown", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
