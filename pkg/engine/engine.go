/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package engine schedules and executes device checks, derives device
// status from the results, and drives automatic recovery of degraded
// devices.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrolhq/netpatrol/pkg/cache"
	"github.com/patrolhq/netpatrol/pkg/db"
	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/metrics"
	"github.com/patrolhq/netpatrol/pkg/models"
	"github.com/patrolhq/netpatrol/pkg/probe"
	"github.com/patrolhq/netpatrol/pkg/recovery"
	"github.com/patrolhq/netpatrol/pkg/registry"
)

// StatusCallback receives every confirmed status transition.
type StatusCallback func(change models.StatusChange)

// AlertCallback receives transitions that match the device's alert
// configuration.
type AlertCallback func(alert models.Alert)

// CheckCallback receives every check result after it has been folded into
// the device's state.
type CheckCallback func(device *models.Device, result *models.CheckResult)

// RecoveryCallback receives the outcome of a recovery attempt for a
// device.
type RecoveryCallback func(device *models.Device, outcome models.RecoveryOutcome)

// Options bundle the engine's dependencies. Store and Probes are
// required; everything else is built with defaults when nil.
type Options struct {
	Config    Config
	Store     db.Service
	Probes    probe.Registry
	Registry  *registry.DeviceRegistry
	Writer    *db.BatchWriter
	Cache     *cache.DeviceCache
	Metrics   *metrics.Collector
	Recoverer recovery.Recoverer
	Cooldown  *recovery.Cooldown
	Clock     Clock
	Logger    logger.Logger
}

// Statistics is a point-in-time snapshot of engine internals.
type Statistics struct {
	Running          bool          `json:"running"`
	Paused           bool          `json:"paused"`
	Uptime           time.Duration `json:"uptime"`
	DeviceCount      int           `json:"device_count"`
	QueueDepth       int           `json:"queue_depth"`
	PendingTimers    int           `json:"pending_timers"`
	RoundsCompleted  int64         `json:"rounds_completed"`
	ChecksProcessed  int64         `json:"checks_processed"`
	ChecksSucceeded  int64         `json:"checks_succeeded"`
	ChecksFailed     int64         `json:"checks_failed"`
	ChecksTimedOut   int64         `json:"checks_timed_out"`
	RecoveriesTried  int64         `json:"recoveries_tried"`
	RecoveriesOK     int64         `json:"recoveries_ok"`
	WriterPending    int           `json:"writer_pending"`
	WriterRecords    int64         `json:"writer_records"`
	WriterBatches    int64         `json:"writer_batches"`
	CacheHits        int64         `json:"cache_hits"`
	CacheMisses      int64         `json:"cache_misses"`
	CacheHitRate     float64       `json:"cache_hit_rate"`
	StatusChanges    int64         `json:"status_changes"`
	AlertsEmitted    int64         `json:"alerts_emitted"`
	DevicesOnline    int           `json:"devices_online"`
	DevicesDegraded  int           `json:"devices_degraded"`
	DevicesOffline   int           `json:"devices_offline"`
	DevicesUnknown   int           `json:"devices_unknown"`
	ManualAttention  int           `json:"manual_attention"`
}

type engineCounters struct {
	rounds          int64
	checksProcessed int64
	checksSucceeded int64
	checksFailed    int64
	checksTimedOut  int64
	recoveriesTried int64
	recoveriesOK    int64
	statusChanges   int64
	alertsEmitted   int64
}

// Engine is the monitoring core. One scheduler goroutine enqueues due
// checks and dispatches them to a bounded worker pool; results are
// processed by that same goroutine, so status derivation is serialized
// without per-device locking.
type Engine struct {
	config    Config
	store     db.Service
	probes    probe.Registry
	devices   *registry.DeviceRegistry
	writer    *db.BatchWriter
	cache     *cache.DeviceCache
	metrics   *metrics.Collector
	recoverer recovery.Recoverer
	cooldown  *recovery.Cooldown
	clock     Clock
	logger    logger.Logger

	queue  *taskQueue
	timers *timerRegistry

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	done      chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	paused atomic.Bool

	// stateMu guards device runtime fields; results are processed on one
	// goroutine but recovery outcomes arrive from another.
	stateMu sync.Mutex

	lastCheckMu sync.Mutex
	lastCheck   map[int64]time.Time

	statsMu  sync.Mutex
	counters engineCounters

	callbackMu               sync.RWMutex
	statusCallbacks          []StatusCallback
	alertCallbacks           []AlertCallback
	checkCallbacks           []CheckCallback
	recoverySuccessCallbacks []RecoveryCallback
	recoveryFailureCallbacks []RecoveryCallback
}

// New validates the options, fills in defaults and wires the registry
// hooks. The engine is idle until Start is called.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}

	if opts.Probes == nil {
		return nil, ErrNilProbes
	}

	opts.Config.applyDefaults()

	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	log = log.WithComponent("engine")

	if opts.Registry == nil {
		opts.Registry = registry.NewDeviceRegistry(log)
	}

	if opts.Writer == nil {
		opts.Writer = db.NewBatchWriter(opts.Store, db.WriterConfig{}, log)
	}

	if opts.Cache == nil {
		opts.Cache = cache.NewDeviceCache(cache.DefaultTTL, log)
	}

	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector(metrics.DefaultWindowSize, log)
	}

	if opts.Cooldown == nil {
		opts.Cooldown = recovery.NewCooldown(recovery.DefaultCooldown)
	}

	if opts.Clock == nil {
		opts.Clock = realClock{}
	}

	e := &Engine{
		config:    opts.Config,
		store:     opts.Store,
		probes:    opts.Probes,
		devices:   opts.Registry,
		writer:    opts.Writer,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		recoverer: opts.Recoverer,
		cooldown:  opts.Cooldown,
		clock:     opts.Clock,
		logger:    log,
		queue:     newTaskQueue(),
		timers:    newTimerRegistry(),
		lastCheck: make(map[int64]time.Time),
	}

	e.devices.SetHooks(registry.Hooks{
		OnAdd: func(device *models.Device) {
			e.lastCheckMu.Lock()
			e.lastCheck[device.ID] = time.Time{}
			e.lastCheckMu.Unlock()
		},
		OnRemove: func(deviceID int64) {
			e.lastCheckMu.Lock()
			delete(e.lastCheck, deviceID)
			e.lastCheckMu.Unlock()

			e.cache.Invalidate(deviceID)
		},
	})

	return e, nil
}

// Start loads enabled devices from the store and launches the scheduler
// and watchdog goroutines. It returns once the engine is running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrEngineRunning
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	e.running = true
	e.startedAt = e.clock.Now()
	e.done = make(chan struct{})
	e.cancel = cancel
	e.paused.Store(false)
	e.queue.Clear()
	e.mu.Unlock()

	if _, err := e.devices.Reload(ctx, e.store); err != nil {
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.mu.Unlock()
		cancel()

		return err
	}

	e.writer.Start()

	e.wg.Add(2)
	go e.run(runCtx)
	go e.watchdog()

	e.scheduleStartupRecovery(runCtx)

	e.logger.Info().
		Int("devices", e.devices.Len()).
		Int("max_workers", e.config.MaxWorkers).
		Dur("tick_interval", e.config.TickInterval.Std()).
		Msg("Monitoring engine started")

	return nil
}

// Stop cancels pending timers and in-flight checks, waits for the
// scheduler goroutines, and flushes the batch writer. The engine can be
// started again afterwards.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return ErrEngineNotRunning
	}

	e.running = false
	done := e.done
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	e.timers.CancelAll()
	close(done)
	cancel()
	e.wg.Wait()

	e.writer.Stop()

	e.metrics.LogSummary()

	hits, misses := e.cache.Stats()
	e.logger.Info().
		Int64("hits", hits).
		Int64("misses", misses).
		Float64("hit_rate", e.cache.HitRate()).
		Msg("Device cache statistics")

	e.logger.Info().Msg("Monitoring engine stopped")

	return nil
}

// Pause suspends scheduling of new checks. In-flight checks finish and
// their results are still processed.
func (e *Engine) Pause() {
	if e.paused.CompareAndSwap(false, true) {
		e.logger.Info().Msg("Monitoring paused")
	}
}

// Resume reverses Pause.
func (e *Engine) Resume() {
	if e.paused.CompareAndSwap(true, false) {
		e.logger.Info().Msg("Monitoring resumed")
	}
}

func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

func (e *Engine) IsPaused() bool {
	return e.paused.Load()
}

// AddDevice registers a device for monitoring. It becomes due on the
// next scheduler tick.
func (e *Engine) AddDevice(device *models.Device) {
	e.devices.Add(device)
}

// RemoveDevice stops monitoring a device. An in-flight check for it may
// still complete; its result is dropped.
func (e *Engine) RemoveDevice(deviceID int64) {
	e.devices.Remove(deviceID)
}

// ReloadDevices re-reads the enabled device set from the store,
// preserving runtime state for devices that survive the reload.
func (e *Engine) ReloadDevices(ctx context.Context) (int, error) {
	n, err := e.devices.Reload(ctx, e.store)
	if err != nil {
		return 0, err
	}

	e.cache.Clear()

	return n, nil
}

// ForceImmediateCheck makes the device due on the next tick by rewinding
// its recorded last-check time. Calling it repeatedly before the tick
// fires has the same effect as calling it once.
func (e *Engine) ForceImmediateCheck(deviceID int64) error {
	if e.devices.Get(deviceID) == nil {
		return ErrDeviceNotFound
	}

	e.lastCheckMu.Lock()
	e.lastCheck[deviceID] = e.clock.Now().Add(-e.config.ForceCheckRewind.Std())
	e.lastCheckMu.Unlock()

	e.logger.Debug().Int64("device_id", deviceID).Msg("Immediate check requested")

	return nil
}

// OnStatusChange registers a callback invoked for every status
// transition. Callbacks run on the scheduler goroutine and must return
// quickly.
func (e *Engine) OnStatusChange(fn StatusCallback) {
	e.callbackMu.Lock()
	defer e.callbackMu.Unlock()

	e.statusCallbacks = append(e.statusCallbacks, fn)
}

// OnAlert registers a callback invoked when a transition matches the
// device's alert configuration.
func (e *Engine) OnAlert(fn AlertCallback) {
	e.callbackMu.Lock()
	defer e.callbackMu.Unlock()

	e.alertCallbacks = append(e.alertCallbacks, fn)
}

// OnCheckComplete registers a callback invoked for every processed check
// result, successful or not.
func (e *Engine) OnCheckComplete(fn CheckCallback) {
	e.callbackMu.Lock()
	defer e.callbackMu.Unlock()

	e.checkCallbacks = append(e.checkCallbacks, fn)
}

// OnRecoverySuccess registers a callback invoked when a recovery attempt
// issues a reboot.
func (e *Engine) OnRecoverySuccess(fn RecoveryCallback) {
	e.callbackMu.Lock()
	defer e.callbackMu.Unlock()

	e.recoverySuccessCallbacks = append(e.recoverySuccessCallbacks, fn)
}

// OnRecoveryFailure registers a callback invoked when a recovery attempt
// fails, and when a device is flagged for manual intervention because
// both of its signals are failing.
func (e *Engine) OnRecoveryFailure(fn RecoveryCallback) {
	e.callbackMu.Lock()
	defer e.callbackMu.Unlock()

	e.recoveryFailureCallbacks = append(e.recoveryFailureCallbacks, fn)
}

// GetStatistics snapshots engine, writer and cache counters along with a
// per-status device census.
func (e *Engine) GetStatistics() Statistics {
	e.mu.Lock()
	running := e.running
	startedAt := e.startedAt
	e.mu.Unlock()

	e.statsMu.Lock()
	c := e.counters
	e.statsMu.Unlock()

	hits, misses := e.cache.Stats()

	stats := Statistics{
		Running:         running,
		Paused:          e.paused.Load(),
		DeviceCount:     e.devices.Len(),
		QueueDepth:      e.queue.Len(),
		PendingTimers:   e.timers.Len(),
		RoundsCompleted: c.rounds,
		ChecksProcessed: c.checksProcessed,
		ChecksSucceeded: c.checksSucceeded,
		ChecksFailed:    c.checksFailed,
		ChecksTimedOut:  c.checksTimedOut,
		RecoveriesTried: c.recoveriesTried,
		RecoveriesOK:    c.recoveriesOK,
		WriterPending:   e.writer.PendingCount(),
		WriterRecords:   e.writer.TotalRecords(),
		WriterBatches:   e.writer.TotalBatches(),
		CacheHits:       hits,
		CacheMisses:     misses,
		CacheHitRate:    e.cache.HitRate(),
		StatusChanges:   c.statusChanges,
		AlertsEmitted:   c.alertsEmitted,
	}

	if running {
		stats.Uptime = e.clock.Now().Sub(startedAt)
	}

	// Runtime fields are written under stateMu; the census must read
	// them under the same lock.
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	for _, device := range e.devices.List() {
		switch device.CurrentStatus {
		case models.StatusOnline:
			stats.DevicesOnline++
		case models.StatusDegraded:
			stats.DevicesDegraded++
		case models.StatusOffline:
			stats.DevicesOffline++
		default:
			stats.DevicesUnknown++
		}

		if device.RequiresManualIntervention {
			stats.ManualAttention++
		}
	}

	return stats
}

// GetDevice returns the monitored device, consulting the read cache
// before the registry.
func (e *Engine) GetDevice(deviceID int64) *models.Device {
	if device, ok := e.cache.Get(deviceID); ok {
		return device
	}

	device := e.devices.Get(deviceID)
	if device != nil {
		e.cache.Set(device)
	}

	return device
}

// scheduleStartupRecovery sweeps devices that were already degraded when
// the engine came up and kicks off recovery for them after a short
// settling delay.
func (e *Engine) scheduleStartupRecovery(ctx context.Context) {
	if e.recoverer == nil {
		return
	}

	e.timers.Schedule(e.config.StartupRecoveryDelay.Std(), func() {
		for _, device := range e.devices.List() {
			if device.CurrentStatus != models.StatusDegraded || !device.SSHEnabled {
				continue
			}

			e.logger.Info().
				Str("device", device.Name).
				Msg("Device degraded at startup, attempting recovery")
			e.triggerRecovery(ctx, device)
		}
	})
}

func (e *Engine) addCounters(fn func(c *engineCounters)) {
	e.statsMu.Lock()
	fn(&e.counters)
	e.statsMu.Unlock()
}
