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
	"container/heap"
	"sync"
	"time"

	"github.com/patrolhq/netpatrol/pkg/models"
)

// Task priorities; lower runs first.
const (
	priorityOffline  = 1
	priorityDegraded = 3
	priorityNormal   = 5
)

// CheckTask is an immutable unit of work: one check kind against one
// device. Created by the scheduler, consumed and discarded by a single
// worker.
type CheckTask struct {
	Device    *models.Device
	Kind      models.CheckKind
	Priority  int
	CreatedAt time.Time

	seq uint64
}

// taskQueue is a thread-safe min-heap keyed by (priority, sequence). The
// monotonic sequence gives FIFO ordering among equal priorities.
type taskQueue struct {
	mu      sync.Mutex
	items   taskHeap
	nextSeq uint64
}

func newTaskQueue() *taskQueue {
	return &taskQueue{}
}

func (q *taskQueue) Push(task *CheckTask) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task.seq = q.nextSeq
	q.nextSeq++

	heap.Push(&q.items, task)
}

// PopN removes up to n highest-priority tasks.
func (q *taskQueue) PopN(n int) []*CheckTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > q.items.Len() {
		n = q.items.Len()
	}

	tasks := make([]*CheckTask, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, heap.Pop(&q.items).(*CheckTask))
	}

	return tasks
}

func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.items.Len()
}

func (q *taskQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
}

type taskHeap []*CheckTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}

	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*CheckTask))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return item
}

// priorityForStatus derives the task priority from the device status at
// enqueue time: offline devices are checked first.
func priorityForStatus(status models.DeviceStatus) int {
	switch status {
	case models.StatusOffline:
		return priorityOffline
	case models.StatusDegraded:
		return priorityDegraded
	default:
		return priorityNormal
	}
}
