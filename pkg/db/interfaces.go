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

// Package db provides persistence for devices and check results. The engine
// consumes it through the narrow Service interface; persistence failures are
// never fatal to monitoring continuity.
package db

import (
	"context"

	"github.com/patrolhq/netpatrol/pkg/models"
)

// Service is the store contract the engine depends on.
type Service interface {
	// LoadEnabledDevices returns all devices enabled for monitoring.
	LoadEnabledDevices(ctx context.Context) ([]*models.Device, error)

	// UpsertDeviceRuntimeFields writes back the engine-owned runtime state
	// of a device (status, counters, timestamps).
	UpsertDeviceRuntimeFields(ctx context.Context, device *models.Device) error

	// BulkInsertCheckResults stores a batch of check results in one round
	// trip.
	BulkInsertCheckResults(ctx context.Context, results []*models.CheckResult) error

	Close() error
}
