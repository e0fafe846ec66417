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
	"context"

	"github.com/patrolhq/netpatrol/pkg/models"
)

// Probe runs one check against a device. Implementations convert every
// failure mode (timeout, refused connection, protocol error) into a failed
// CheckResult; they never return an error to the engine.
type Probe interface {
	Check(ctx context.Context, device *models.Device) *models.CheckResult
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context, device *models.Device) *models.CheckResult

func (f ProbeFunc) Check(ctx context.Context, device *models.Device) *models.CheckResult {
	return f(ctx, device)
}

// Registry defines how to store and retrieve probes by check kind.
type Registry interface {
	Register(kind models.CheckKind, p Probe)
	Get(kind models.CheckKind) (Probe, error)
	Kinds() []models.CheckKind
}
