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

package recovery

import (
	"context"
)

// Recoverer attempts to bring a degraded device back, typically by
// rebooting it over SSH. Implementations report a human-readable message;
// the engine never formats user-facing text itself.
type Recoverer interface {
	AttemptRecovery(ctx context.Context, deviceIP, deviceName string) (success bool, message string)
}

// remoteClient is one authenticated session-capable connection to a device.
type remoteClient interface {
	Run(cmd string) (output string, err error)
	Close() error
}

// dialFunc opens a remote client; injected in tests.
type dialFunc func(ctx context.Context, addr string) (remoteClient, error)
