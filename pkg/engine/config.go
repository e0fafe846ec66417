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
	"time"

	"github.com/patrolhq/netpatrol/pkg/models"
)

// Config controls the monitoring engine. Zero values are replaced with
// the defaults below at construction time.
type Config struct {
	MaxWorkers           int             `json:"max_workers"`
	TickInterval         models.Duration `json:"tick_interval"`
	RoundTimeout         models.Duration `json:"round_timeout"`
	TimeoutGrace         models.Duration `json:"timeout_grace"`
	RecheckDelay         models.Duration `json:"recheck_delay"`
	StartupRecoveryDelay models.Duration `json:"startup_recovery_delay"`
	ForceCheckRewind     models.Duration `json:"force_check_rewind"`
	MetricsLogInterval   models.Duration `json:"metrics_log_interval"`
	QueueWarnThreshold   int             `json:"queue_warn_threshold"`
	QueueCheckInterval   models.Duration `json:"queue_check_interval"`
}

const (
	defaultMaxWorkers           = 10
	defaultTickInterval         = 5 * time.Second
	defaultRoundTimeout         = 30 * time.Second
	defaultTimeoutGrace         = 5 * time.Second
	defaultRecheckDelay         = 30 * time.Second
	defaultStartupRecoveryDelay = 5 * time.Second
	defaultForceCheckRewind     = time.Hour
	defaultMetricsLogInterval   = 5 * time.Minute
	defaultQueueWarnThreshold   = 100
	defaultQueueCheckInterval   = 30 * time.Second
)

func (c *Config) applyDefaults() {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = defaultMaxWorkers
	}

	if c.TickInterval == 0 {
		c.TickInterval = models.Duration(defaultTickInterval)
	}

	if c.RoundTimeout == 0 {
		c.RoundTimeout = models.Duration(defaultRoundTimeout)
	}

	if c.TimeoutGrace == 0 {
		c.TimeoutGrace = models.Duration(defaultTimeoutGrace)
	}

	if c.RecheckDelay == 0 {
		c.RecheckDelay = models.Duration(defaultRecheckDelay)
	}

	if c.StartupRecoveryDelay == 0 {
		c.StartupRecoveryDelay = models.Duration(defaultStartupRecoveryDelay)
	}

	if c.ForceCheckRewind == 0 {
		c.ForceCheckRewind = models.Duration(defaultForceCheckRewind)
	}

	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = models.Duration(defaultMetricsLogInterval)
	}

	if c.QueueWarnThreshold <= 0 {
		c.QueueWarnThreshold = defaultQueueWarnThreshold
	}

	if c.QueueCheckInterval == 0 {
		c.QueueCheckInterval = models.Duration(defaultQueueCheckInterval)
	}
}
