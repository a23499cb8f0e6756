package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig pins down the shipped defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":5555", cfg.ListenAddr)
	assert.Empty(t, cfg.GatewayAddr)
	assert.Equal(t, 64*1024, cfg.MaxFrameSize)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

// TestNewConfigFromEnv verifies environment overrides with fallbacks for
// unset and unparsable values.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("CHAT_LISTEN_ADDR", ":9000")
	t.Setenv("CHAT_GATEWAY_ADDR", ":9001")
	t.Setenv("CHAT_ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("CHAT_MAX_FRAME_SIZE", "1024")
	t.Setenv("CHAT_SEND_BUFFER", "16")
	t.Setenv("CHAT_RATE_LIMIT_BURST", "20")
	t.Setenv("CHAT_RATE_LIMIT_REFILL_SECONDS", "2")
	t.Setenv("CHAT_SHUTDOWN_TIMEOUT_SECONDS", "not-a-number")

	cfg := NewConfigFromEnv()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, ":9001", cfg.GatewayAddr)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 1024, cfg.MaxFrameSize)
	assert.Equal(t, 16, cfg.SendBuffer)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

// TestConfigSanitized verifies out-of-range values fall back to defaults.
func TestConfigSanitized(t *testing.T) {
	cfg := Config{
		ListenAddr:   "",
		MaxFrameSize: -1,
		SendBuffer:   0,
		RateLimit: RateLimitConfig{
			Burst:          0,
			RefillInterval: -time.Second,
		},
	}.sanitized()

	def := DefaultConfig()
	assert.Equal(t, def.ListenAddr, cfg.ListenAddr)
	assert.Equal(t, def.MaxFrameSize, cfg.MaxFrameSize)
	assert.Equal(t, def.SendBuffer, cfg.SendBuffer)
	assert.Equal(t, def.RateLimit, cfg.RateLimit)
	assert.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
}

// TestLoadConfig verifies YAML parsing, environment expansion, and
// defaults for omitted fields.
func TestLoadConfig(t *testing.T) {
	t.Setenv("CHAT_TEST_PORT", "7777")

	path := filepath.Join(t.TempDir(), "relay.yaml")
	data := `
listen_addr: ":${CHAT_TEST_PORT}"
gateway_addr: ":8080"
allowed_origins:
  - "http://chat.example"
max_frame_size: 2048
rate_limit:
  burst: 10
  refill_interval_seconds: 3
shutdown_timeout_seconds: 1
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.ListenAddr)
	assert.Equal(t, ":8080", cfg.GatewayAddr)
	assert.Equal(t, []string{"http://chat.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2048, cfg.MaxFrameSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, 3*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, time.Second, cfg.ShutdownTimeout)
	// Omitted fields keep their defaults.
	assert.Equal(t, DefaultConfig().SendBuffer, cfg.SendBuffer)
}

// TestLoadConfigErrors verifies missing and unparsable files surface
// errors instead of silent defaults.
func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [not, a, string"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
