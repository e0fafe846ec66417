package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerFiresAndDeregisters(t *testing.T) {
	r := newTimerRegistry()

	var fired atomic.Bool
	r.Schedule(10*time.Millisecond, func() { fired.Store(true) })

	require.Eventually(t, fired.Load, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimerCancel(t *testing.T) {
	r := newTimerRegistry()

	var fired atomic.Bool
	token := r.Schedule(50*time.Millisecond, func() { fired.Store(true) })

	assert.True(t, r.Cancel(token))
	assert.Equal(t, 0, r.Len())

	time.Sleep(100 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestTimerCancelUnknownToken(t *testing.T) {
	r := newTimerRegistry()

	assert.False(t, r.Cancel("no-such-token"))
}

func TestTimerCancelAll(t *testing.T) {
	r := newTimerRegistry()

	var fired atomic.Int32
	for i := 0; i < 5; i++ {
		r.Schedule(50*time.Millisecond, func() { fired.Add(1) })
	}

	require.Equal(t, 5, r.Len())
	r.CancelAll()
	assert.Equal(t, 0, r.Len())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
