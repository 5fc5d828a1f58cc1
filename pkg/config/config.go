// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the settings shared by every binary.
type Config struct {
	AccountsTable    string
	ConnectionsTable string
	// StreamARN is the accounts table's stream. Optional; without it the
	// HTTP service runs without a snapshot feed unless FeedURL is set.
	StreamARN string
	// FeedURL is a websocket endpoint delivering account snapshots.
	FeedURL string
	// FailureQueueURL receives failed background writes. Optional.
	FailureQueueURL      string
	WebSocketAPIEndpoint string
	Port                 string
	DebounceWindow       time.Duration
	StreamPollInterval   time.Duration
	ShutdownTimeout      time.Duration
	Env                  string
}

// Load reads the configuration. The accounts table is always required.
func Load() (*Config, error) {
	accountsTable := os.Getenv("DYNAMODB_ACCOUNTS_TABLE_NAME")
	if accountsTable == "" {
		return nil, fmt.Errorf("DYNAMODB_ACCOUNTS_TABLE_NAME environment variable is required")
	}

	debounce, err := duration("DEBOUNCE_WINDOW", 1500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	poll, err := duration("STREAM_POLL_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}
	shutdown, err := duration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		AccountsTable:        accountsTable,
		ConnectionsTable:     os.Getenv("DYNAMODB_CONNECTIONS_TABLE_NAME"),
		StreamARN:            os.Getenv("DYNAMODB_ACCOUNTS_STREAM_ARN"),
		FeedURL:              os.Getenv("SNAPSHOT_FEED_URL"),
		FailureQueueURL:      os.Getenv("SQS_SYNC_FAILURES_QUEUE_URL"),
		WebSocketAPIEndpoint: os.Getenv("WEBSOCKET_API_ENDPOINT"),
		Port:                 getenv("HTTP_PORT", "8080"),
		DebounceWindow:       debounce,
		StreamPollInterval:   poll,
		ShutdownTimeout:      shutdown,
		Env:                  getenv("ENVIRONMENT", "development"),
	}, nil
}

// RequireConnections checks the settings needed by the websocket fan-out binaries.
func (c *Config) RequireConnections() error {
	if c.ConnectionsTable == "" {
		return fmt.Errorf("DYNAMODB_CONNECTIONS_TABLE_NAME environment variable is required")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
