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

// Package probe implements the per-protocol checks the engine schedules.
// The engine is polymorphic over the probe set; adding a new check kind
// requires registering a probe, not engine changes.
package probe

import (
	"fmt"
	"sync"

	"github.com/patrolhq/netpatrol/pkg/models"
)

var ErrNoProbe = fmt.Errorf("no probe registered")

// probeRegistry is a simple in-memory implementation of Registry.
type probeRegistry struct {
	mu     sync.RWMutex
	probes map[models.CheckKind]Probe
}

// NewRegistry creates a new probe registry.
func NewRegistry() Registry {
	return &probeRegistry{
		probes: make(map[models.CheckKind]Probe),
	}
}

// Register adds a probe to the registry for the given check kind.
func (r *probeRegistry) Register(kind models.CheckKind, p Probe) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.probes[kind] = p
}

// Get retrieves the probe for the specified check kind.
func (r *probeRegistry) Get(kind models.CheckKind) (Probe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.probes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProbe, kind)
	}

	return p, nil
}

// Kinds lists the registered check kinds.
func (r *probeRegistry) Kinds() []models.CheckKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]models.CheckKind, 0, len(r.probes))
	for k := range r.probes {
		kinds = append(kinds, k)
	}

	return kinds
}
