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
	"time"

	"github.com/patrolhq/netpatrol/pkg/models"
)

const (
	maxRecoveryHistory = 10
	persistTimeout     = 5 * time.Second
)

// processResult feeds one check result through the status machine. It
// runs on the scheduler goroutine; device runtime fields are additionally
// guarded by stateMu because recovery outcomes land from their own
// goroutine.
func (e *Engine) processResult(ctx context.Context, result *models.CheckResult) {
	device := e.devices.Get(result.DeviceID)
	if device == nil {
		e.logger.Debug().
			Int64("device_id", result.DeviceID).
			Str("kind", string(result.Kind)).
			Msg("Dropping result for removed device")

		return
	}

	e.writer.Add(result)
	e.metrics.Record(result.Kind, result.ResponseTime, result.Success)

	e.addCounters(func(c *engineCounters) {
		c.checksProcessed++
		if result.Success {
			c.checksSucceeded++
		} else {
			c.checksFailed++
		}
	})

	e.stateMu.Lock()

	device.TotalChecks++
	if result.Success {
		device.SuccessfulChecks++
	} else {
		device.FailedChecks++
	}

	device.UptimePercentage = uptimePercent(device.SuccessfulChecks, device.TotalChecks)
	device.LastCheckTime = result.Timestamp

	switch result.Kind {
	case models.CheckKindPing:
		device.PingStatus = toCheckStatus(result.Success)
		if result.Success {
			device.ResponseTime = result.ResponseTime
		}
	case models.CheckKindHTTP, models.CheckKindHTTPS:
		device.WebStatus = toCheckStatus(result.Success)
	}

	flagged := e.updateManualIntervention(device)

	oldStatus := device.CurrentStatus
	newStatus := deriveStatus(device)

	e.stateMu.Unlock()

	if flagged {
		outcome := models.RecoveryOutcome{
			Timestamp: result.Timestamp,
			Success:   false,
			Message:   "ping and web checks both failing; manual intervention required",
		}

		for _, fn := range e.recoveryFailureSnapshot() {
			fn(device, outcome)
		}
	}

	if newStatus != oldStatus {
		e.handleStatusChange(ctx, device, oldStatus, newStatus, result.Timestamp)
	}

	for _, fn := range e.checkCallbacksSnapshot() {
		fn(device, result)
	}

	e.cache.Set(device)
}

func (e *Engine) checkCallbacksSnapshot() []CheckCallback {
	e.callbackMu.RLock()
	defer e.callbackMu.RUnlock()

	out := make([]CheckCallback, len(e.checkCallbacks))
	copy(out, e.checkCallbacks)

	return out
}

func (e *Engine) recoverySuccessSnapshot() []RecoveryCallback {
	e.callbackMu.RLock()
	defer e.callbackMu.RUnlock()

	out := make([]RecoveryCallback, len(e.recoverySuccessCallbacks))
	copy(out, e.recoverySuccessCallbacks)

	return out
}

func (e *Engine) recoveryFailureSnapshot() []RecoveryCallback {
	e.callbackMu.RLock()
	defer e.callbackMu.RUnlock()

	out := make([]RecoveryCallback, len(e.recoveryFailureCallbacks))
	copy(out, e.recoveryFailureCallbacks)

	return out
}

// deriveStatus applies the two-signal rules. Ping is authoritative for
// offline; the web signal refines a reachable device into online or
// degraded. A signal with no observation yet never flips the status.
func deriveStatus(device *models.Device) models.DeviceStatus {
	current := device.CurrentStatus
	if current == "" {
		current = models.StatusUnknown
	}

	switch device.PingStatus {
	case models.CheckStatusFailed:
		return models.StatusOffline
	case models.CheckStatusSuccess:
		if !device.WebChecksEnabled() {
			return models.StatusOnline
		}

		switch device.WebStatus {
		case models.CheckStatusFailed:
			return models.StatusDegraded
		case models.CheckStatusSuccess:
			return models.StatusOnline
		default:
			return current
		}
	default:
		return current
	}
}

// updateManualIntervention flags a device once both signals have failed,
// and clears the flag as soon as either signal comes back. It reports
// whether the flag was newly set so the caller can emit the event
// outside the lock. Caller holds stateMu.
func (e *Engine) updateManualIntervention(device *models.Device) bool {
	bothFailed := device.PingStatus == models.CheckStatusFailed &&
		device.WebChecksEnabled() &&
		device.WebStatus == models.CheckStatusFailed

	switch {
	case bothFailed && !device.RequiresManualIntervention:
		device.RequiresManualIntervention = true

		e.logger.Warn().
			Str("device", device.Name).
			Str("ip", device.IPAddress).
			Msg("Ping and web checks both failing, device needs manual intervention")

		return true
	case device.RequiresManualIntervention &&
		(device.PingStatus == models.CheckStatusSuccess || device.WebStatus == models.CheckStatusSuccess):
		device.RequiresManualIntervention = false

		e.logger.Info().
			Str("device", device.Name).
			Msg("Device responding again, manual intervention flag cleared")
	}

	return false
}

func (e *Engine) handleStatusChange(ctx context.Context, device *models.Device, oldStatus, newStatus models.DeviceStatus, ts time.Time) {
	if oldStatus == "" {
		oldStatus = models.StatusUnknown
	}

	e.stateMu.Lock()
	device.CurrentStatus = newStatus
	device.LastStatusChange = ts
	e.stateMu.Unlock()

	e.addCounters(func(c *engineCounters) { c.statusChanges++ })

	e.logger.Info().
		Str("device", device.Name).
		Str("ip", device.IPAddress).
		Str("old_status", string(oldStatus)).
		Str("new_status", string(newStatus)).
		Msg("Device status changed")

	change := models.StatusChange{
		Device:    device,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Timestamp: ts,
	}

	e.callbackMu.RLock()
	statusCbs := make([]StatusCallback, len(e.statusCallbacks))
	copy(statusCbs, e.statusCallbacks)
	alertCbs := make([]AlertCallback, len(e.alertCallbacks))
	copy(alertCbs, e.alertCallbacks)
	e.callbackMu.RUnlock()

	for _, fn := range statusCbs {
		fn(change)
	}

	if shouldAlert(device, oldStatus, newStatus) {
		alert := models.NewAlert(device, oldStatus, newStatus, ts)

		e.addCounters(func(c *engineCounters) { c.alertsEmitted++ })

		for _, fn := range alertCbs {
			fn(alert)
		}
	}

	if newStatus == models.StatusDegraded {
		e.triggerRecovery(ctx, device)
	}

	e.persistRuntime(ctx, device)
}

// shouldAlert applies the device's alert configuration to a transition.
// Recovery alerts require both alert_on_up and alert_on_down so that a
// device never reports "back up" without ever having reported "down".
// The initial unknown-to-online transition is not a recovery and stays
// silent.
func shouldAlert(device *models.Device, oldStatus, newStatus models.DeviceStatus) bool {
	if !device.AlertEnabled {
		return false
	}

	switch newStatus {
	case models.StatusOffline:
		return device.AlertOnDown
	case models.StatusDegraded:
		return device.AlertOnDegraded
	case models.StatusOnline:
		return device.AlertOnUp && device.AlertOnDown && oldStatus != models.StatusUnknown
	default:
		return false
	}
}

// triggerRecovery starts an SSH recovery attempt for a degraded device,
// subject to the per-device cooldown. The attempt runs on its own
// goroutine so a slow SSH dial never stalls result processing.
func (e *Engine) triggerRecovery(ctx context.Context, device *models.Device) {
	if e.recoverer == nil || !device.SSHEnabled {
		return
	}

	ok, sinceLast := e.cooldown.TryBegin(device.IPAddress)
	if !ok {
		e.logger.Info().
			Str("device", device.Name).
			Dur("since_last_attempt", sinceLast).
			Dur("cooldown", e.cooldown.Window()).
			Msg("Recovery suppressed by cooldown")

		return
	}

	e.addCounters(func(c *engineCounters) { c.recoveriesTried++ })

	deviceID := device.ID
	deviceIP := device.IPAddress
	deviceName := device.Name

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		success, message := e.recoverer.AttemptRecovery(ctx, deviceIP, deviceName)
		e.recordRecoveryOutcome(ctx, deviceID, success, message)
	}()
}

// recordRecoveryOutcome appends the attempt to the device's bounded
// history. A successful reboot schedules a single delayed re-check so
// the device gets a fresh verdict once it has had time to come back.
func (e *Engine) recordRecoveryOutcome(ctx context.Context, deviceID int64, success bool, message string) {
	device := e.devices.Get(deviceID)
	if device == nil {
		return
	}

	outcome := models.RecoveryOutcome{
		Timestamp: e.clock.Now(),
		Success:   success,
		Message:   message,
	}

	e.stateMu.Lock()

	device.RecoveryHistory = append(device.RecoveryHistory, outcome)
	if len(device.RecoveryHistory) > maxRecoveryHistory {
		device.RecoveryHistory = device.RecoveryHistory[len(device.RecoveryHistory)-maxRecoveryHistory:]
	}

	if !success {
		device.RequiresManualIntervention = true
	}

	e.stateMu.Unlock()

	if success {
		e.addCounters(func(c *engineCounters) { c.recoveriesOK++ })

		e.logger.Info().
			Str("device", device.Name).
			Str("message", message).
			Dur("recheck_in", e.config.RecheckDelay.Std()).
			Msg("Recovery reboot issued, re-check scheduled")

		e.timers.Schedule(e.config.RecheckDelay.Std(), func() {
			if err := e.ForceImmediateCheck(deviceID); err != nil {
				e.logger.Debug().Int64("device_id", deviceID).Err(err).Msg("Post-recovery re-check skipped")
			}
		})

		for _, fn := range e.recoverySuccessSnapshot() {
			fn(device, outcome)
		}
	} else {
		e.logger.Error().
			Str("device", device.Name).
			Str("message", message).
			Msg("Recovery attempt failed, device needs manual intervention")

		for _, fn := range e.recoveryFailureSnapshot() {
			fn(device, outcome)
		}
	}

	e.persistRuntime(ctx, device)
}

// persistRuntime writes the device's runtime fields back to the store.
// The write gets its own deadline and survives engine shutdown so the
// last observed state is not lost.
func (e *Engine) persistRuntime(ctx context.Context, device *models.Device) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := e.store.UpsertDeviceRuntimeFields(writeCtx, device); err != nil {
		e.logger.Error().
			Str("device", device.Name).
			Err(err).
			Msg("Failed to persist device runtime state")
	}
}

func toCheckStatus(success bool) models.CheckStatus {
	if success {
		return models.CheckStatusSuccess
	}

	return models.CheckStatusFailed
}

// uptimePercent is the share of successful checks. A device with no
// completed checks reports 100 so a freshly added device does not show
// as failing.
func uptimePercent(successful, total int64) float64 {
	if total == 0 {
		return 100
	}

	return float64(successful) / float64(total) * 100
}
