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
	"sync"
	"time"

	"github.com/google/uuid"
)

// timerRegistry tracks pending one-shot timers so they can be cancelled
// as a group on shutdown. Each scheduled callback is keyed by a token;
// the entry is removed when the timer fires or is cancelled.
type timerRegistry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newTimerRegistry() *timerRegistry {
	return &timerRegistry{timers: make(map[string]*time.Timer)}
}

// Schedule runs fn after delay and returns a cancellation token. The
// callback runs on the timer goroutine; fn must not block.
func (r *timerRegistry) Schedule(delay time.Duration, fn func()) string {
	token := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.timers[token] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, token)
		r.mu.Unlock()

		fn()
	})

	return token
}

func (r *timerRegistry) Cancel(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[token]
	if !ok {
		return false
	}

	delete(r.timers, token)

	return t.Stop()
}

// CancelAll stops every pending timer. Callbacks already in flight may
// still run.
func (r *timerRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, t := range r.timers {
		t.Stop()
		delete(r.timers, token)
	}
}

func (r *timerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.timers)
}
