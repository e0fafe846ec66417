package engine

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patrolhq/netpatrol/pkg/db"
	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
	"github.com/patrolhq/netpatrol/pkg/probe"
)

// fakeClock is a manually advanced Clock. Its tickers never fire; tests
// drive the engine by calling scheduleDue and runRound directly.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)
}

func (c *fakeClock) Ticker(_ time.Duration) Ticker {
	return &fakeTicker{ch: make(chan time.Time)}
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) Chan() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {}

// logCapture is a goroutine-safe sink for engine log output.
type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.buf.Write(p)
}

func (c *logCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.buf.String()
}

// captureLogger satisfies logger.Logger over an arbitrary writer.
type captureLogger struct {
	zl zerolog.Logger
}

func newCaptureLogger(w io.Writer) *captureLogger {
	return &captureLogger{zl: zerolog.New(w)}
}

func (l *captureLogger) Trace() *zerolog.Event              { return l.zl.Trace() }
func (l *captureLogger) Debug() *zerolog.Event              { return l.zl.Debug() }
func (l *captureLogger) Info() *zerolog.Event               { return l.zl.Info() }
func (l *captureLogger) Warn() *zerolog.Event               { return l.zl.Warn() }
func (l *captureLogger) Error() *zerolog.Event              { return l.zl.Error() }
func (l *captureLogger) Fatal() *zerolog.Event              { return l.zl.Fatal() }
func (l *captureLogger) With() zerolog.Context              { return l.zl.With() }
func (l *captureLogger) WithComponent(string) logger.Logger { return l }
func (l *captureLogger) SetDebug(bool)                      {}

// mockRecoverer counts invocations and returns a scripted outcome.
type mockRecoverer struct {
	mu      sync.Mutex
	success bool
	message string
	calls   []string
}

func (m *mockRecoverer) AttemptRecovery(_ context.Context, deviceIP, _ string) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, deviceIP)

	return m.success, m.message
}

func (m *mockRecoverer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

// kindProbe stamps the result with its registered kind.
func kindProbe(kind models.CheckKind, success bool) probe.ProbeFunc {
	return func(_ context.Context, device *models.Device) *models.CheckResult {
		return &models.CheckResult{
			DeviceID:     device.ID,
			Kind:         kind,
			Success:      success,
			ResponseTime: 1.0,
			Timestamp:    time.Now(),
		}
	}
}

func blockingProbe(kind models.CheckKind) probe.ProbeFunc {
	return func(ctx context.Context, device *models.Device) *models.CheckResult {
		<-ctx.Done()

		return &models.CheckResult{
			DeviceID:  device.ID,
			Kind:      kind,
			Success:   false,
			Error:     ctx.Err().Error(),
			Timestamp: time.Now(),
		}
	}
}

type testEngine struct {
	*Engine
	store     *db.MockService
	clock     *fakeClock
	probes    probe.Registry
	recoverer *mockRecoverer
}

func newTestEngine(t *testing.T, cfg Config) *testEngine {
	t.Helper()

	store := &db.MockService{}
	store.On("LoadEnabledDevices", mock.Anything).Return(nil, nil).Maybe()
	store.On("UpsertDeviceRuntimeFields", mock.Anything, mock.Anything).Return(nil).Maybe()
	store.On("BulkInsertCheckResults", mock.Anything, mock.Anything).Return(nil).Maybe()
	store.On("Close").Return(nil).Maybe()

	clock := newFakeClock()
	probes := probe.NewRegistry()
	recoverer := &mockRecoverer{success: true, message: "reboot issued"}

	e, err := New(Options{
		Config:    cfg,
		Store:     store,
		Probes:    probes,
		Recoverer: recoverer,
		Clock:     clock,
		Logger:    logger.NewTestLogger(),
	})
	require.NoError(t, err)

	t.Cleanup(func() { e.timers.CancelAll() })

	return &testEngine{
		Engine:    e,
		store:     store,
		clock:     clock,
		probes:    probes,
		recoverer: recoverer,
	}
}

func pingOnlyDevice(id int64) *models.Device {
	return &models.Device{
		ID:            id,
		Name:          "device",
		IPAddress:     "10.0.0.1",
		Enabled:       true,
		PingEnabled:   true,
		CheckInterval: models.Duration(60 * time.Second),
		Timeout:       models.Duration(5 * time.Second),
		CurrentStatus: models.StatusUnknown,
	}
}

func webDevice(id int64) *models.Device {
	d := pingOnlyDevice(id)
	d.HTTPEnabled = true
	d.SSHEnabled = true

	return d
}
