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
	"sync"
	"time"
)

const DefaultCooldown = 5 * time.Minute

// AttemptRecord tracks the most recent recovery attempt for one device,
// keyed by IP. Entries are overwritten, never accumulated.
type AttemptRecord struct {
	LastAttempt time.Time
	Attempts    int
}

// Cooldown enforces a minimum interval between recovery attempts per
// device. TryBegin is an atomic check-and-set: the cooldown check and the
// attempt recording happen in one critical section so two concurrent
// degraded transitions cannot both trigger a reboot.
type Cooldown struct {
	mu       sync.Mutex
	window   time.Duration
	attempts map[string]AttemptRecord
	now      func() time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultCooldown
	}

	return &Cooldown{
		window:   window,
		attempts: make(map[string]AttemptRecord),
		now:      time.Now,
	}
}

// TryBegin reports whether a recovery attempt for the device may start now,
// and records the attempt if so. The second return value is the time since
// the previous attempt when the cooldown blocks.
func (c *Cooldown) TryBegin(deviceIP string) (ok bool, sinceLast time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	rec, exists := c.attempts[deviceIP]
	if exists {
		elapsed := now.Sub(rec.LastAttempt)
		if elapsed < c.window {
			return false, elapsed
		}
	}

	rec.LastAttempt = now
	rec.Attempts++
	c.attempts[deviceIP] = rec

	return true, 0
}

// Window returns the configured cooldown interval.
func (c *Cooldown) Window() time.Duration {
	return c.window
}

// Attempts returns the attempt count recorded for a device IP.
func (c *Cooldown) Attempts(deviceIP string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attempts[deviceIP].Attempts
}
