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

package engine

import (
	"context"
)

// run is the scheduler loop. Each tick it enqueues tasks for due devices
// and dispatches one round of checks to the worker pool. Results are
// processed here, on this goroutine, which keeps the status machine
// single-threaded.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := e.clock.Ticker(e.config.TickInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.Chan():
			if e.paused.Load() {
				continue
			}

			e.scheduleDue()
			e.runRound(ctx)
		}
	}
}

// scheduleDue enqueues one task per enabled check kind for every device
// whose interval has elapsed. The last-check time is stamped at enqueue
// so a device is never queued twice while its tasks are pending.
func (e *Engine) scheduleDue() {
	now := e.clock.Now()

	e.lastCheckMu.Lock()
	defer e.lastCheckMu.Unlock()

	for _, device := range e.devices.List() {
		last, ok := e.lastCheck[device.ID]
		if ok && !last.IsZero() && now.Sub(last) < device.CheckInterval.Std() {
			continue
		}

		kinds := device.EnabledChecks()
		if len(kinds) == 0 {
			continue
		}

		e.lastCheck[device.ID] = now

		priority := priorityForStatus(device.CurrentStatus)
		for _, kind := range kinds {
			e.queue.Push(&CheckTask{
				Device:    device,
				Kind:      kind,
				Priority:  priority,
				CreatedAt: now,
			})
		}

		e.logger.Trace().
			Str("device", device.Name).
			Int("tasks", len(kinds)).
			Int("priority", priority).
			Msg("Device due for checking")
	}
}

// watchdog periodically warns about queue backlog and logs the metrics
// summary.
func (e *Engine) watchdog() {
	defer e.wg.Done()

	queueTicker := e.clock.Ticker(e.config.QueueCheckInterval.Std())
	defer queueTicker.Stop()

	metricsTicker := e.clock.Ticker(e.config.MetricsLogInterval.Std())
	defer metricsTicker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-queueTicker.Chan():
			e.checkQueueDepth()
		case <-metricsTicker.Chan():
			e.metrics.LogSummary()
		}
	}
}

func (e *Engine) checkQueueDepth() {
	depth := e.queue.Len()
	if depth <= e.config.QueueWarnThreshold {
		return
	}

	e.logger.Warn().
		Int("queue_depth", depth).
		Int("threshold", e.config.QueueWarnThreshold).
		Int("max_workers", e.config.MaxWorkers).
		Msg("Check queue backlog exceeds threshold, workers may be saturated")
}
