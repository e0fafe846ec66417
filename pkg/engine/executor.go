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
	"context"
	"time"

	"github.com/patrolhq/netpatrol/pkg/models"
)

// taskResult pairs a completed result with the task that produced it, so
// the collector tracks outstanding work by task identity. Two queued
// tasks for the same device and kind stay distinct.
type taskResult struct {
	task   *CheckTask
	result *models.CheckResult
}

// runRound pops up to MaxWorkers tasks and executes them concurrently,
// processing results as they arrive. The round is bounded by
// RoundTimeout; tasks still outstanding at the deadline get a synthetic
// timeout failure so the status machine always sees a result for every
// dispatched task.
func (e *Engine) runRound(ctx context.Context) {
	tasks := e.queue.PopN(e.config.MaxWorkers)
	if len(tasks) == 0 {
		return
	}

	roundCtx, cancel := context.WithTimeout(ctx, e.config.RoundTimeout.Std())
	defer cancel()

	results := make(chan taskResult, len(tasks))

	pending := make(map[*CheckTask]struct{}, len(tasks))
	for _, task := range tasks {
		pending[task] = struct{}{}
		go e.execute(roundCtx, task, results)
	}

	for len(pending) > 0 {
		select {
		case tr := <-results:
			delete(pending, tr.task)
			e.processResult(ctx, tr.result)
		case <-roundCtx.Done():
			for task := range pending {
				e.addCounters(func(c *engineCounters) { c.checksTimedOut++ })
				e.processResult(ctx, e.timeoutResult(task))
			}

			e.logger.Warn().
				Int("abandoned", len(pending)).
				Dur("round_timeout", e.config.RoundTimeout.Std()).
				Msg("Check round exceeded deadline")

			e.finishRound()

			return
		}
	}

	e.finishRound()
}

// execute runs one task against its probe. The per-task context allows
// the probe its configured device timeout plus a grace period before the
// engine gives up on it.
func (e *Engine) execute(ctx context.Context, task *CheckTask, results chan<- taskResult) {
	p, err := e.probes.Get(task.Kind)
	if err != nil {
		results <- taskResult{task: task, result: &models.CheckResult{
			DeviceID:  task.Device.ID,
			Kind:      task.Kind,
			Success:   false,
			Error:     err.Error(),
			Timestamp: e.clock.Now(),
		}}

		return
	}

	budget := task.Device.Timeout.Std()
	if budget <= 0 {
		budget = 5 * time.Second
	}

	taskCtx, cancel := context.WithTimeout(ctx, budget+e.config.TimeoutGrace.Std())
	defer cancel()

	result := p.Check(taskCtx, task.Device)

	// The round collector may have moved on; the buffered channel
	// guarantees this never blocks.
	results <- taskResult{task: task, result: result}
}

func (e *Engine) timeoutResult(task *CheckTask) *models.CheckResult {
	return &models.CheckResult{
		DeviceID:     task.Device.ID,
		Kind:         task.Kind,
		Success:      false,
		ResponseTime: e.config.RoundTimeout.Std().Seconds() * 1000,
		Error:        "check abandoned: round deadline exceeded",
		Timestamp:    e.clock.Now(),
	}
}

func (e *Engine) finishRound() {
	e.addCounters(func(c *engineCounters) { c.rounds++ })
}
