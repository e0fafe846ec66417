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

package probe

import (
	"time"

	"github.com/patrolhq/netpatrol/pkg/models"
)

func successResult(device *models.Device, kind models.CheckKind, start time.Time) *models.CheckResult {
	return &models.CheckResult{
		DeviceID:     device.ID,
		Kind:         kind,
		Success:      true,
		ResponseTime: float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:    time.Now().UTC(),
	}
}

func failureResult(device *models.Device, kind models.CheckKind, start time.Time, errMsg string) *models.CheckResult {
	return &models.CheckResult{
		DeviceID:     device.ID,
		Kind:         kind,
		Success:      false,
		ResponseTime: float64(time.Since(start).Microseconds()) / 1000.0,
		Error:        errMsg,
		Timestamp:    time.Now().UTC(),
	}
}

func deviceTimeout(device *models.Device, fallback time.Duration) time.Duration {
	if device.Timeout > 0 {
		return device.Timeout.Std()
	}

	return fallback
}
