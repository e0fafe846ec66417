package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCooldown(window time.Duration) (*Cooldown, *time.Time) {
	c := NewCooldown(window)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	return c, &now
}

func TestCooldownFirstAttemptAllowed(t *testing.T) {
	c, _ := newTestCooldown(5 * time.Minute)

	ok, _ := c.TryBegin("10.0.0.1")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Attempts("10.0.0.1"))
}

func TestCooldownBlocksWithinWindow(t *testing.T) {
	c, now := newTestCooldown(5 * time.Minute)

	ok, _ := c.TryBegin("10.0.0.1")
	assert.True(t, ok)

	*now = now.Add(4 * time.Minute)

	ok, sinceLast := c.TryBegin("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 4*time.Minute, sinceLast)
	assert.Equal(t, 1, c.Attempts("10.0.0.1"), "blocked attempt is not recorded")
}

func TestCooldownAllowsAfterWindow(t *testing.T) {
	c, now := newTestCooldown(5 * time.Minute)

	ok, _ := c.TryBegin("10.0.0.1")
	assert.True(t, ok)

	*now = now.Add(5 * time.Minute)

	ok, _ = c.TryBegin("10.0.0.1")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Attempts("10.0.0.1"))
}

func TestCooldownPerDevice(t *testing.T) {
	c, _ := newTestCooldown(5 * time.Minute)

	ok, _ := c.TryBegin("10.0.0.1")
	assert.True(t, ok)

	ok, _ = c.TryBegin("10.0.0.2")
	assert.True(t, ok, "cooldown is per device, not global")
}

func TestCooldownDefaultWindow(t *testing.T) {
	c := NewCooldown(0)

	assert.Equal(t, DefaultCooldown, c.Window())
}
