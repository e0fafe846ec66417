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

// Package metrics tracks per-check-kind latency distributions and
// throughput without unbounded memory growth.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

const DefaultWindowSize = 1000

// Percentiles summarizes the latency window of one check kind. Values are
// milliseconds.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// KindSummary aggregates everything tracked for one check kind.
type KindSummary struct {
	Count       int64       `json:"count"`
	SuccessRate float64     `json:"success_rate"`
	Throughput  float64     `json:"throughput_cps"`
	Latency     Percentiles `json:"latency"`
}

// Summary is the full collector snapshot.
type Summary struct {
	UptimeSeconds float64                          `json:"uptime_seconds"`
	TotalChecks   int64                            `json:"total_checks"`
	Throughput    float64                          `json:"throughput_cps"`
	Kinds         map[models.CheckKind]KindSummary `json:"check_kinds"`
}

// window is a fixed-capacity ring of latency samples; the oldest sample is
// evicted when full.
type window struct {
	samples []float64
	next    int
	full    bool
}

func newWindow(capacity int) *window {
	return &window{samples: make([]float64, 0, capacity)}
}

func (w *window) add(v float64) {
	if w.full {
		w.samples[w.next] = v
		w.next = (w.next + 1) % cap(w.samples)

		return
	}

	w.samples = append(w.samples, v)

	if len(w.samples) == cap(w.samples) {
		w.full = true
	}
}

func (w *window) snapshot() []float64 {
	out := make([]float64, len(w.samples))
	copy(out, w.samples)

	return out
}

// Collector records one sample per processed check result. All methods are
// safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	windowSize int
	windows    map[models.CheckKind]*window
	counts     map[models.CheckKind]int64
	successes  map[models.CheckKind]int64
	startTime  time.Time
	now        func() time.Time
	logger     logger.Logger
}

func NewCollector(windowSize int, log logger.Logger) *Collector {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	return &Collector{
		windowSize: windowSize,
		windows:    make(map[models.CheckKind]*window),
		counts:     make(map[models.CheckKind]int64),
		successes:  make(map[models.CheckKind]int64),
		startTime:  time.Now(),
		now:        time.Now,
		logger:     log.WithComponent("metrics"),
	}
}

// Record folds one completed check into the rolling window for its kind.
func (c *Collector) Record(kind models.CheckKind, responseTimeMs float64, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[kind]
	if !ok {
		w = newWindow(c.windowSize)
		c.windows[kind] = w
	}

	w.add(responseTimeMs)
	c.counts[kind]++

	if success {
		c.successes[kind]++
	}
}

// GetPercentiles computes exact percentiles over the current window for a
// kind. With fewer samples than a percentile needs, the last (largest)
// sample is used.
func (c *Collector) GetPercentiles(kind models.CheckKind) Percentiles {
	c.mu.Lock()
	w, ok := c.windows[kind]

	var samples []float64
	if ok {
		samples = w.snapshot()
	}
	c.mu.Unlock()

	return computePercentiles(samples)
}

// GetThroughput returns checks per second for one kind, or for all kinds
// when kind is empty.
func (c *Collector) GetThroughput(kind models.CheckKind) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.throughputLocked(kind)
}

func (c *Collector) throughputLocked(kind models.CheckKind) float64 {
	elapsed := c.now().Sub(c.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}

	if kind != "" {
		return float64(c.counts[kind]) / elapsed
	}

	var total int64
	for _, n := range c.counts {
		total += n
	}

	return float64(total) / elapsed
}

// GetSuccessRate returns the success percentage for a kind.
func (c *Collector) GetSuccessRate(kind models.CheckKind) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.counts[kind]
	if total == 0 {
		return 0
	}

	return float64(c.successes[kind]) / float64(total) * 100
}

// GetSummary snapshots all tracked kinds.
func (c *Collector) GetSummary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := Summary{
		UptimeSeconds: c.now().Sub(c.startTime).Seconds(),
		Throughput:    c.throughputLocked(""),
		Kinds:         make(map[models.CheckKind]KindSummary, len(c.counts)),
	}

	for kind, count := range c.counts {
		summary.TotalChecks += count

		var rate float64
		if count > 0 {
			rate = float64(c.successes[kind]) / float64(count) * 100
		}

		summary.Kinds[kind] = KindSummary{
			Count:       count,
			SuccessRate: rate,
			Throughput:  c.throughputLocked(kind),
			Latency:     computePercentiles(c.windows[kind].snapshot()),
		}
	}

	return summary
}

// LogSummary emits the periodic summary line per kind. Called on a fixed
// cadence by the scheduler and once at shutdown.
func (c *Collector) LogSummary() {
	summary := c.GetSummary()

	c.logger.Info().
		Float64("uptime_seconds", summary.UptimeSeconds).
		Int64("total_checks", summary.TotalChecks).
		Float64("throughput_cps", summary.Throughput).
		Msg("Performance summary")

	for kind, ks := range summary.Kinds {
		c.logger.Info().
			Str("check_kind", string(kind)).
			Int64("count", ks.Count).
			Float64("success_rate", ks.SuccessRate).
			Float64("throughput_cps", ks.Throughput).
			Float64("p50_ms", ks.Latency.P50).
			Float64("p95_ms", ks.Latency.P95).
			Float64("p99_ms", ks.Latency.P99).
			Float64("avg_ms", ks.Latency.Avg).
			Msg("Check kind performance")
	}
}

// computePercentiles sorts the window and indexes it by ceil(n*p)-1,
// clamped to the window bounds.
func computePercentiles(samples []float64) Percentiles {
	if len(samples) == 0 {
		return Percentiles{}
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return Percentiles{
		P50: percentileAt(sorted, 0.50),
		P95: percentileAt(sorted, 0.95),
		P99: percentileAt(sorted, 0.99),
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
	}
}

func percentileAt(sorted []float64, p float64) float64 {
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1

	if idx < 0 {
		idx = 0
	}

	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sorted[idx]
}
