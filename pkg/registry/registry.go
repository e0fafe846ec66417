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

// Package registry holds the in-memory set of monitored devices.
package registry

import (
	"context"
	"sync"

	"github.com/patrolhq/netpatrol/pkg/db"
	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

// AddPolicy is applied to every device entering the registry. Policies
// encode business rules (for example force-enabling SSH on device classes
// that are eligible for automated recovery) without the registry knowing
// about specific device types.
type AddPolicy func(device *models.Device)

// ForceSSHPolicy returns a policy that enables SSH on devices of the given
// classes so the recovery orchestrator can reach them.
func ForceSSHPolicy(deviceTypes ...string) AddPolicy {
	classes := make(map[string]struct{}, len(deviceTypes))
	for _, t := range deviceTypes {
		classes[t] = struct{}{}
	}

	return func(device *models.Device) {
		if _, ok := classes[device.DeviceType]; ok {
			device.SSHEnabled = true
		}
	}
}

// Hooks receive registry mutations so the scheduler can keep its own
// bookkeeping (last-check times) in sync.
type Hooks struct {
	OnAdd    func(device *models.Device)
	OnRemove func(deviceID int64)
}

// DeviceRegistry keys monitored devices by ID. All methods are safe for
// concurrent use.
type DeviceRegistry struct {
	mu       sync.RWMutex
	devices  map[int64]*models.Device
	policies []AddPolicy
	hooks    Hooks
	logger   logger.Logger
}

func NewDeviceRegistry(log logger.Logger, policies ...AddPolicy) *DeviceRegistry {
	return &DeviceRegistry{
		devices:  make(map[int64]*models.Device),
		policies: policies,
		logger:   log.WithComponent("registry"),
	}
}

// SetHooks installs mutation hooks. Must be called before the registry is
// shared across goroutines.
func (r *DeviceRegistry) SetHooks(hooks Hooks) {
	r.hooks = hooks
}

// Add upserts a device. Policies run before insertion; the add hook fires
// for new and replaced devices alike so the scheduler treats the device as
// due immediately.
func (r *DeviceRegistry) Add(device *models.Device) {
	for _, policy := range r.policies {
		policy(device)
	}

	r.mu.Lock()
	_, existed := r.devices[device.ID]
	r.devices[device.ID] = device
	r.mu.Unlock()

	r.logger.Info().
		Int64("device_id", device.ID).
		Str("name", device.Name).
		Str("ip", device.IPAddress).
		Bool("replaced", existed).
		Msg("Device added to monitoring")

	if device.SSHEnabled && device.DeviceType != "" {
		r.logger.Debug().
			Int64("device_id", device.ID).
			Str("device_type", device.DeviceType).
			Msg("SSH enabled for device")
	}

	if r.hooks.OnAdd != nil {
		r.hooks.OnAdd(device)
	}
}

// Remove deletes a device from the registry. Removing an unknown ID is a
// no-op.
func (r *DeviceRegistry) Remove(deviceID int64) {
	r.mu.Lock()
	device, ok := r.devices[deviceID]
	if ok {
		delete(r.devices, deviceID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	r.logger.Info().
		Int64("device_id", deviceID).
		Str("name", device.Name).
		Msg("Device removed from monitoring")

	if r.hooks.OnRemove != nil {
		r.hooks.OnRemove(deviceID)
	}
}

// Get returns the device with the given ID, or nil.
func (r *DeviceRegistry) Get(deviceID int64) *models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.devices[deviceID]
}

// List returns a snapshot slice of all registered devices.
func (r *DeviceRegistry) List() []*models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]*models.Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}

	return devices
}

// Len returns the number of registered devices.
func (r *DeviceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices)
}

// Reload diffs the registry against the store: devices no longer present or
// disabled are removed, the rest are upserted. Runtime state of devices that
// persist across the reload is carried over onto the fresh configuration.
func (r *DeviceRegistry) Reload(ctx context.Context, store db.Service) (int, error) {
	fresh, err := store.LoadEnabledDevices(ctx)
	if err != nil {
		return 0, err
	}

	freshIDs := make(map[int64]struct{}, len(fresh))
	for _, d := range fresh {
		freshIDs[d.ID] = struct{}{}
	}

	r.mu.RLock()
	var stale []int64

	for id := range r.devices {
		if _, ok := freshIDs[id]; !ok {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		r.Remove(id)
	}

	for _, d := range fresh {
		if prev := r.Get(d.ID); prev != nil {
			carryRuntimeState(d, prev)
		}

		r.Add(d)
	}

	r.logger.Info().Int("count", len(fresh)).Msg("Reloaded devices from store")

	return len(fresh), nil
}

func carryRuntimeState(dst, src *models.Device) {
	dst.CurrentStatus = src.CurrentStatus
	dst.PingStatus = src.PingStatus
	dst.WebStatus = src.WebStatus
	dst.TotalChecks = src.TotalChecks
	dst.SuccessfulChecks = src.SuccessfulChecks
	dst.FailedChecks = src.FailedChecks
	dst.UptimePercentage = src.UptimePercentage
	dst.ResponseTime = src.ResponseTime
	dst.LastCheckTime = src.LastCheckTime
	dst.LastStatusChange = src.LastStatusChange
	dst.RequiresManualIntervention = src.RequiresManualIntervention
	dst.RecoveryHistory = src.RecoveryHistory
}
