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

package models

import (
	"time"

	"github.com/google/uuid"
)

// StatusChange describes a device transitioning between derived states.
type StatusChange struct {
	Device    *Device      `json:"device"`
	OldStatus DeviceStatus `json:"old_status"`
	NewStatus DeviceStatus `json:"new_status"`
	Timestamp time.Time    `json:"timestamp"`
}

// Alert is emitted to the notification layer when a status change matches
// the device's alert configuration. The engine never formats user-facing
// text; consumers render it.
type Alert struct {
	EventID   uuid.UUID    `json:"event_id"`
	Device    *Device      `json:"device"`
	OldStatus DeviceStatus `json:"old_status"`
	NewStatus DeviceStatus `json:"new_status"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewAlert builds an alert with a fresh event ID.
func NewAlert(device *Device, oldStatus, newStatus DeviceStatus, ts time.Time) Alert {
	return Alert{
		EventID:   uuid.New(),
		Device:    device,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Timestamp: ts,
	}
}
