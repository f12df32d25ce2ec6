// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/baskygate/config.yaml",
	"/etc/baskygate/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// sliceConfigPaths are keys that accept comma-separated strings from env vars.
var sliceConfigPaths = []string{
	"gateway.allowed_origins",
	"api.cors_origins",
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"gateway_welcome_message":    "gateway.welcome_message",
	"gateway_server_version":     "gateway.server_version",
	"gateway_write_wait":         "gateway.write_wait",
	"gateway_pong_wait":          "gateway.pong_wait",
	"gateway_max_message_size":   "gateway.max_message_size",
	"gateway_send_buffer":        "gateway.send_buffer",
	"gateway_inbound_rate_limit": "gateway.inbound_rate_limit",
	"gateway_inbound_burst":      "gateway.inbound_burst",
	"gateway_allowed_origins":    "gateway.allowed_origins",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"persistence_shards":                    "persistence.shards",
	"persistence_queue_size":                "persistence.queue_size",
	"persistence_enqueue_timeout":           "persistence.enqueue_timeout",
	"persistence_write_timeout":             "persistence.write_timeout",
	"persistence_max_retries":               "persistence.max_retries",
	"persistence_retry_initial_interval":    "persistence.retry_initial_interval",
	"persistence_breaker_failure_threshold": "persistence.breaker_failure_threshold",
	"persistence_breaker_timeout":           "persistence.breaker_timeout",

	"wal_enabled":     "wal.enabled",
	"wal_path":        "wal.path",
	"wal_sync_writes": "wal.sync_writes",
	"wal_in_memory":   "wal.in_memory",
	"wal_gc_interval": "wal.gc_interval",

	"fanout_subscriber_buffer": "fanout.subscriber_buffer",

	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_embedded_host":  "nats.embedded_host",
	"nats_embedded_port":  "nats.embedded_port",
	"nats_subject_prefix": "nats.subject_prefix",
	"nats_max_reconnects": "nats.max_reconnects",
	"nats_reconnect_wait": "nats.reconnect_wait",

	"cors_origins":           "api.cors_origins",
	"rate_limit_requests":    "api.rate_limit_requests",
	"rate_limit_window":      "api.rate_limit_window",
	"disable_rate_limit":     "api.rate_limit_disabled",
	"readings_default_limit": "api.readings_default_limit",
	"readings_max_limit":     "api.readings_max_limit",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// defaultConfig returns the defaults applied before the file and env layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Gateway: GatewayConfig{
			WelcomeMessage:   "Welcome to Basky Server!",
			ServerVersion:    "1.0.0",
			WriteWait:        10 * time.Second,
			PongWait:         60 * time.Second,
			MaxMessageSize:   64 * 1024,
			SendBuffer:       256,
			InboundRateLimit: 0,
			InboundBurst:     50,
			AllowedOrigins:   []string{},
		},
		Database: DatabaseConfig{
			Path:      "/data/baskygate.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Persistence: PersistenceConfig{
			Shards:                  4,
			QueueSize:               1024,
			EnqueueTimeout:          100 * time.Millisecond,
			WriteTimeout:            5 * time.Second,
			MaxRetries:              3,
			RetryInitialInterval:    50 * time.Millisecond,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		WAL: WALConfig{
			Enabled:    false,
			Path:       "/data/wal",
			SyncWrites: true,
			InMemory:   false,
			GCInterval: 10 * time.Minute,
		},
		Fanout: FanoutConfig{
			SubscriberBuffer: 64,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			EmbeddedHost:   "127.0.0.1",
			EmbeddedPort:   4222,
			SubjectPrefix:  "baskygate.devices",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
		},
		API: APIConfig{
			CORSOrigins:          []string{},
			RateLimitRequests:    100,
			RateLimitWindow:      time.Minute,
			RateLimitDisabled:    false,
			ReadingsDefaultLimit: 20,
			ReadingsMaxLimit:     500,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, config file, and environment,
// then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing default path.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// processSliceFields splits comma-separated env values into string slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps an environment variable name to a koanf path.
// Returning "" tells the env provider to skip the variable.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
