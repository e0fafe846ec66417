package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patrolhq/netpatrol/pkg/db"
	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
	"github.com/patrolhq/netpatrol/pkg/probe"
)

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Options{Probes: probe.NewRegistry()})
	assert.ErrorIs(t, err, ErrNilStore)
}

func TestNewRequiresProbes(t *testing.T) {
	_, err := New(Options{Store: &db.MockService{}})
	assert.ErrorIs(t, err, ErrNilProbes)
}

func TestStartStopLifecycle(t *testing.T) {
	te := newTestEngine(t, Config{})

	ctx := context.Background()

	require.NoError(t, te.Start(ctx))
	assert.True(t, te.IsRunning())

	assert.ErrorIs(t, te.Start(ctx), ErrEngineRunning)

	require.NoError(t, te.Stop())
	assert.False(t, te.IsRunning())

	assert.ErrorIs(t, te.Stop(), ErrEngineNotRunning)
}

func TestStopLogsFinalSummaries(t *testing.T) {
	store := &db.MockService{}
	store.On("LoadEnabledDevices", mock.Anything).Return(nil, nil)
	store.On("BulkInsertCheckResults", mock.Anything, mock.Anything).Return(nil).Maybe()

	capture := &logCapture{}

	e, err := New(Options{
		Config: Config{},
		Store:  store,
		Probes: probe.NewRegistry(),
		Clock:  newFakeClock(),
		Logger: newCaptureLogger(capture),
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Stop())

	out := capture.String()
	assert.Contains(t, out, "Performance summary")
	assert.Contains(t, out, "Device cache statistics")
	assert.Contains(t, out, "Monitoring engine stopped")
}

func TestEngineRestart(t *testing.T) {
	te := newTestEngine(t, Config{})

	ctx := context.Background()

	require.NoError(t, te.Start(ctx))
	require.NoError(t, te.Stop())

	require.NoError(t, te.Start(ctx))
	assert.True(t, te.IsRunning())
	require.NoError(t, te.Stop())
}

func TestStartLoadsDevicesFromStore(t *testing.T) {
	store := &db.MockService{}
	store.On("LoadEnabledDevices", mock.Anything).Return([]*models.Device{
		pingOnlyDevice(1),
		pingOnlyDevice(2),
	}, nil)
	store.On("BulkInsertCheckResults", mock.Anything, mock.Anything).Return(nil).Maybe()

	e, err := New(Options{
		Store:  store,
		Probes: probe.NewRegistry(),
		Clock:  newFakeClock(),
		Logger: logger.NewTestLogger(),
	})
	require.NoError(t, err)

	require.NoError(t, e.Start(context.Background()))
	defer func() { _ = e.Stop() }()

	assert.Equal(t, 2, e.devices.Len())
	store.AssertCalled(t, "LoadEnabledDevices", mock.Anything)
}

func TestStartFailsWhenStoreUnavailable(t *testing.T) {
	store := &db.MockService{}
	store.On("LoadEnabledDevices", mock.Anything).Return(nil, errors.New("db down"))

	e, err := New(Options{
		Store:  store,
		Probes: probe.NewRegistry(),
		Clock:  newFakeClock(),
		Logger: logger.NewTestLogger(),
	})
	require.NoError(t, err)

	require.Error(t, e.Start(context.Background()))
	assert.False(t, e.IsRunning())
}

func TestPauseResume(t *testing.T) {
	te := newTestEngine(t, Config{})

	require.NoError(t, te.Start(context.Background()))
	defer func() { _ = te.Stop() }()

	assert.False(t, te.IsPaused())

	te.Pause()
	assert.True(t, te.IsPaused())

	te.Resume()
	assert.False(t, te.IsPaused())
}

func TestStopCancelsPendingTimers(t *testing.T) {
	te := newTestEngine(t, Config{})

	require.NoError(t, te.Start(context.Background()))

	te.timers.Schedule(time.Hour, func() {})
	require.Equal(t, 2, te.timers.Len(), "re-check plus the startup recovery sweep")

	require.NoError(t, te.Stop())
	assert.Equal(t, 0, te.timers.Len())
}

func TestReloadDevicesClearsCache(t *testing.T) {
	te := newTestEngine(t, Config{})

	device := pingOnlyDevice(1)
	te.AddDevice(device)
	te.cache.Set(device)

	n, err := te.ReloadDevices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, n, "mock store returns no devices")
	assert.Equal(t, 0, te.cache.Len())
}

func TestGetDevicePopulatesCache(t *testing.T) {
	te := newTestEngine(t, Config{})

	te.AddDevice(pingOnlyDevice(1))

	require.NotNil(t, te.GetDevice(1))

	hits, misses := te.cache.Stats()
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, int64(1), misses)

	require.NotNil(t, te.GetDevice(1))

	hits, _ = te.cache.Stats()
	assert.Equal(t, int64(1), hits, "second lookup is served from cache")
}

func TestGetDeviceUnknown(t *testing.T) {
	te := newTestEngine(t, Config{})

	assert.Nil(t, te.GetDevice(42))
}

func TestStatisticsCensus(t *testing.T) {
	te := newTestEngine(t, Config{})

	online := pingOnlyDevice(1)
	online.CurrentStatus = models.StatusOnline

	offline := pingOnlyDevice(2)
	offline.CurrentStatus = models.StatusOffline
	offline.RequiresManualIntervention = true

	degraded := pingOnlyDevice(3)
	degraded.CurrentStatus = models.StatusDegraded

	te.AddDevice(online)
	te.AddDevice(offline)
	te.AddDevice(degraded)
	te.AddDevice(pingOnlyDevice(4))

	stats := te.GetStatistics()

	assert.Equal(t, 4, stats.DeviceCount)
	assert.Equal(t, 1, stats.DevicesOnline)
	assert.Equal(t, 1, stats.DevicesOffline)
	assert.Equal(t, 1, stats.DevicesDegraded)
	assert.Equal(t, 1, stats.DevicesUnknown)
	assert.Equal(t, 1, stats.ManualAttention)
	assert.False(t, stats.Running)
}

func TestStatisticsCensusDuringChecks(t *testing.T) {
	te := newTestEngine(t, Config{})

	device := pingOnlyDevice(1)
	te.AddDevice(device)

	done := make(chan struct{})

	go func() {
		defer close(done)

		ctx := context.Background()
		for i := 0; i < 200; i++ {
			te.processResult(ctx, &models.CheckResult{
				DeviceID:  1,
				Kind:      models.CheckKindPing,
				Success:   i%2 == 0,
				Timestamp: te.clock.Now(),
			})
		}
	}()

	for i := 0; i < 200; i++ {
		stats := te.GetStatistics()
		assert.Equal(t, 1, stats.DeviceCount)
	}

	<-done
	assert.Equal(t, int64(200), te.GetStatistics().ChecksProcessed)
}

func TestStartupRecoverySweep(t *testing.T) {
	store := &db.MockService{}
	degraded := webDevice(1)
	degraded.CurrentStatus = models.StatusDegraded
	store.On("LoadEnabledDevices", mock.Anything).Return([]*models.Device{degraded}, nil)
	store.On("UpsertDeviceRuntimeFields", mock.Anything, mock.Anything).Return(nil).Maybe()
	store.On("BulkInsertCheckResults", mock.Anything, mock.Anything).Return(nil).Maybe()

	recoverer := &mockRecoverer{success: true, message: "reboot issued"}

	e, err := New(Options{
		Config:    Config{StartupRecoveryDelay: models.Duration(10 * time.Millisecond)},
		Store:     store,
		Probes:    probe.NewRegistry(),
		Recoverer: recoverer,
		Clock:     newFakeClock(),
		Logger:    logger.NewTestLogger(),
	})
	require.NoError(t, err)

	require.NoError(t, e.Start(context.Background()))
	defer func() { _ = e.Stop() }()

	require.Eventually(t, func() bool { return recoverer.callCount() == 1 },
		2*time.Second, 10*time.Millisecond, "devices already degraded at startup get a recovery attempt")
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, defaultMaxWorkers, cfg.MaxWorkers)
	assert.Equal(t, defaultTickInterval, cfg.TickInterval.Std())
	assert.Equal(t, defaultRoundTimeout, cfg.RoundTimeout.Std())
	assert.Equal(t, defaultQueueWarnThreshold, cfg.QueueWarnThreshold)
	assert.Equal(t, defaultForceCheckRewind, cfg.ForceCheckRewind.Std())
}
