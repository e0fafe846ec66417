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

package db

import (
	"context"
	"sync"
	"time"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 2 * time.Second
	writerTickInterval   = 500 * time.Millisecond
	flushTimeout         = 10 * time.Second
)

// WriterConfig tunes the batch persistence writer.
type WriterConfig struct {
	BatchSize     int             `json:"batch_size"`
	FlushInterval models.Duration `json:"flush_interval"`
}

// BatchWriter buffers completed check results and flushes them to the store
// as a single batch, when either the buffer reaches BatchSize or
// FlushInterval has elapsed since the last flush, whichever comes first.
// Flush failures are logged and the batch is dropped; losing a window of
// historical samples is acceptable, stalling the result pipeline is not.
type BatchWriter struct {
	store  Service
	config WriterConfig
	logger logger.Logger

	mu        sync.Mutex
	pending   []*models.CheckResult
	lastFlush time.Time

	totalBatches int64
	totalRecords int64

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	running   bool
}

func NewBatchWriter(store Service, config WriterConfig, log logger.Logger) *BatchWriter {
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}

	if config.FlushInterval <= 0 {
		config.FlushInterval = models.Duration(defaultFlushInterval)
	}

	return &BatchWriter{
		store:     store,
		config:    config,
		logger:    log.WithComponent("batch_writer"),
		pending:   make([]*models.CheckResult, 0, config.BatchSize),
		lastFlush: time.Now(),
	}
}

// Start launches the background ticker that evaluates the time trigger. A
// stopped writer can be started again.
func (w *BatchWriter) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}

	w.running = true
	w.done = make(chan struct{})
	w.closeOnce = sync.Once{}
	w.mu.Unlock()

	w.wg.Add(1)

	go w.flushLoop()

	w.logger.Info().
		Int("batch_size", w.config.BatchSize).
		Dur("flush_interval", w.config.FlushInterval.Std()).
		Msg("Batch writer started")
}

// Stop halts the ticker and synchronously drains whatever is buffered.
func (w *BatchWriter) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}

	w.running = false
	w.mu.Unlock()

	w.closeOnce.Do(func() { close(w.done) })
	w.wg.Wait()
	w.ForceFlush()

	w.logger.Info().
		Int64("total_records", w.TotalRecords()).
		Int64("total_batches", w.TotalBatches()).
		Msg("Batch writer stopped")
}

// Add queues one check result. Reaching the size threshold triggers an
// immediate flush.
func (w *BatchWriter) Add(result *models.CheckResult) {
	w.mu.Lock()
	w.pending = append(w.pending, result)
	shouldFlush := len(w.pending) >= w.config.BatchSize

	var batch []*models.CheckResult
	if shouldFlush {
		batch = w.takeLocked()
	}
	w.mu.Unlock()

	if shouldFlush {
		w.write(batch)
	}
}

// ForceFlush drains the buffer synchronously. Used at shutdown and in tests.
func (w *BatchWriter) ForceFlush() {
	w.mu.Lock()
	batch := w.takeLocked()
	w.mu.Unlock()

	w.write(batch)
}

// PendingCount reports the buffered, unflushed result count.
func (w *BatchWriter) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.pending)
}

func (w *BatchWriter) TotalRecords() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.totalRecords
}

func (w *BatchWriter) TotalBatches() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.totalBatches
}

func (w *BatchWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(writerTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()

			var batch []*models.CheckResult

			if len(w.pending) > 0 && time.Since(w.lastFlush) >= w.config.FlushInterval.Std() {
				batch = w.takeLocked()
			}
			w.mu.Unlock()

			w.write(batch)
		}
	}
}

// takeLocked swaps out the pending buffer. Caller must hold w.mu; the store
// write happens outside the lock so a slow database cannot stall Add.
func (w *BatchWriter) takeLocked() []*models.CheckResult {
	if len(w.pending) == 0 {
		return nil
	}

	batch := w.pending
	w.pending = make([]*models.CheckResult, 0, w.config.BatchSize)
	w.lastFlush = time.Now()

	return batch
}

func (w *BatchWriter) write(batch []*models.CheckResult) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	start := time.Now()

	if err := w.store.BulkInsertCheckResults(ctx, batch); err != nil {
		w.logger.Error().
			Err(err).
			Int("records", len(batch)).
			Msg("Batch flush failed; dropping batch")

		return
	}

	w.mu.Lock()
	w.totalBatches++
	w.totalRecords += int64(len(batch))
	batches, records := w.totalBatches, w.totalRecords
	w.mu.Unlock()

	w.logger.Debug().
		Int("records", len(batch)).
		Dur("elapsed", time.Since(start)).
		Int64("total_records", records).
		Int64("total_batches", batches).
		Msg("Batch flush complete")
}
