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

// Package cache provides a read-through TTL cache for device snapshots. It
// is an optimization layer for read paths only and never participates in the
// engine's authoritative runtime state.
package cache

import (
	"sync"
	"time"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

const DefaultTTL = 5 * time.Minute

type entry struct {
	device    *models.Device
	cachedAt  time.Time
	expiresAt time.Time
}

// DeviceCache caches device snapshots with a fixed TTL and tracks hit/miss
// counters for observability.
type DeviceCache struct {
	mu      sync.RWMutex
	entries map[int64]entry
	ttl     time.Duration
	hits    int64
	misses  int64
	now     func() time.Time
	logger  logger.Logger
}

func NewDeviceCache(ttl time.Duration, log logger.Logger) *DeviceCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &DeviceCache{
		entries: make(map[int64]entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  log.WithComponent("device_cache"),
	}
}

// Get returns the cached device if present and not expired. Expired entries
// are evicted and reported as misses.
func (c *DeviceCache) Get(deviceID int64) (*models.Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[deviceID]
	if ok && c.now().Before(e.expiresAt) {
		c.hits++
		return e.device, true
	}

	if ok {
		delete(c.entries, deviceID)
	}

	c.misses++

	return nil, false
}

// Set stores a device snapshot with the cache TTL.
func (c *DeviceCache) Set(device *models.Device) {
	now := c.now()

	c.mu.Lock()
	c.entries[device.ID] = entry{
		device:    device,
		cachedAt:  now,
		expiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate removes one device from the cache.
func (c *DeviceCache) Invalidate(deviceID int64) {
	c.mu.Lock()
	delete(c.entries, deviceID)
	c.mu.Unlock()
}

// Clear empties the cache.
func (c *DeviceCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[int64]entry)
	c.mu.Unlock()

	c.logger.Debug().Msg("Device cache cleared")
}

// Stats returns hit and miss counts.
func (c *DeviceCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.hits, c.misses
}

// HitRate returns the cache hit percentage, 0 when nothing was looked up.
func (c *DeviceCache) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	if total == 0 {
		return 0
	}

	return float64(c.hits) / float64(total) * 100
}

// Len returns the number of entries, including any not yet evicted expired
// ones.
func (c *DeviceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
