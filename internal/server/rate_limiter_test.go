package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestRateLimiterBurst verifies the bucket allows its full burst and then
// rejects.
func TestRateLimiterBurst(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow(), "token %d", i)
	}
	assert.False(t, rl.allow())
}

// TestRateLimiterRefill verifies tokens come back over time.
func TestRateLimiterRefill(t *testing.T) {
	rl := newRateLimiter(1, 20*time.Millisecond)

	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, rl.allow())
}

// TestRateLimiterDefaults verifies nonsense parameters fall back to a
// working bucket.
func TestRateLimiterDefaults(t *testing.T) {
	rl := newRateLimiter(0, 0)
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())
}
