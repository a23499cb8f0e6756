// Package server provides configuration helpers that define runtime
// defaults, validation, and rate-limiting parameters for the coordinator.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitConfig defines the parameters for per-connection inbound
// message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the coordinator configuration.
type Config struct {
	// ListenAddr is the framed-TCP listen address, e.g. ":5555".
	ListenAddr string

	// GatewayAddr is the WebSocket gateway listen address. Empty disables
	// the gateway.
	GatewayAddr string

	// AllowedOrigins lists origins permitted to open gateway connections.
	// A single "*" entry allows any origin.
	AllowedOrigins []string

	// MaxFrameSize bounds a single frame payload in bytes.
	MaxFrameSize int

	// SendBuffer is the depth of each session's outbound message buffer.
	SendBuffer int

	// RateLimit throttles inbound messages per connection.
	RateLimit RateLimitConfig

	// ShutdownTimeout bounds how long shutdown waits for session
	// goroutines to finish.
	ShutdownTimeout time.Duration
}

// fileConfig is the YAML shape of a config file. Durations are expressed
// in whole seconds to keep files readable.
type fileConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	GatewayAddr    string   `yaml:"gateway_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxFrameSize   int      `yaml:"max_frame_size"`
	SendBuffer     int      `yaml:"send_buffer"`
	RateLimit      struct {
		Burst                 int `yaml:"burst"`
		RefillIntervalSeconds int `yaml:"refill_interval_seconds"`
	} `yaml:"rate_limit"`
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":5555",
		GatewayAddr: "",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxFrameSize: 64 * 1024,
		SendBuffer:   256,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// sanitized returns a copy of c with out-of-range values replaced by
// defaults.
func (c Config) sanitized() Config {
	def := DefaultConfig()

	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = def.MaxFrameSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}

// NewConfigFromEnv creates a Config from environment variables, falling
// back to default values for anything unset.
func NewConfigFromEnv() Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("CHAT_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if addr := os.Getenv("CHAT_GATEWAY_ADDR"); addr != "" {
		cfg.GatewayAddr = addr
	}
	if origins := os.Getenv("CHAT_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if size := os.Getenv("CHAT_MAX_FRAME_SIZE"); size != "" {
		cfg.MaxFrameSize = parseIntValue(size, cfg.MaxFrameSize)
	}
	if depth := os.Getenv("CHAT_SEND_BUFFER"); depth != "" {
		cfg.SendBuffer = parseIntValue(depth, cfg.SendBuffer)
	}
	if burst := os.Getenv("CHAT_RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("CHAT_RATE_LIMIT_REFILL_SECONDS"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}
	if timeout := os.Getenv("CHAT_SHUTDOWN_TIMEOUT_SECONDS"); timeout != "" {
		cfg.ShutdownTimeout = parseSeconds(timeout, cfg.ShutdownTimeout)
	}

	return cfg.sanitized()
}

// LoadConfig reads a YAML config file over the defaults. Environment
// variables referenced as ${VAR} inside the file are expanded before
// parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}

	cfg := DefaultConfig()
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.GatewayAddr != "" {
		cfg.GatewayAddr = fc.GatewayAddr
	}
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.MaxFrameSize > 0 {
		cfg.MaxFrameSize = fc.MaxFrameSize
	}
	if fc.SendBuffer > 0 {
		cfg.SendBuffer = fc.SendBuffer
	}
	if fc.RateLimit.Burst > 0 {
		cfg.RateLimit.Burst = fc.RateLimit.Burst
	}
	if fc.RateLimit.RefillIntervalSeconds > 0 {
		cfg.RateLimit.RefillInterval = time.Duration(fc.RateLimit.RefillIntervalSeconds) * time.Second
	}
	if fc.ShutdownTimeoutSeconds > 0 {
		cfg.ShutdownTimeout = time.Duration(fc.ShutdownTimeoutSeconds) * time.Second
	}

	return cfg.sanitized(), nil
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
