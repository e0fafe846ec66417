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

// Package recovery attempts SSH-based recovery of degraded devices: a
// diagnostic battery, a reboot, and cooldown tracking so the same device is
// not rebooted repeatedly.
package recovery

import (
	"context"
	"fmt"
	"net"

	"github.com/patrolhq/netpatrol/pkg/logger"
)

const (
	defaultSSHPort = 22
	rebootCommand  = "sudo reboot"
)

// SSHRecoverer implements Recoverer by connecting to the device, running
// diagnostics best-effort, and issuing an unconditional reboot. The parsed
// memory usage only selects the reported reason; it never gates the reboot.
// Attempt bookkeeping lives in Cooldown; the recoverer itself is stateless.
type SSHRecoverer struct {
	config *SSHConfig
	dial   dialFunc
	logger logger.Logger
}

var _ Recoverer = (*SSHRecoverer)(nil)

func NewSSHRecoverer(config *SSHConfig, log logger.Logger) *SSHRecoverer {
	return &SSHRecoverer{
		config: config,
		dial:   newSSHDialer(config),
		logger: log.WithComponent("recovery"),
	}
}

func (r *SSHRecoverer) AttemptRecovery(ctx context.Context, deviceIP, deviceName string) (bool, string) {
	log := r.logger.With().Str("ip", deviceIP).Str("device", deviceName).Logger()

	if !r.config.Enabled {
		log.Warn().Msg("SSH auto-recovery is disabled in config")
		return false, "SSH auto-recovery disabled"
	}

	port := r.config.Port
	if port == 0 {
		port = defaultSSHPort
	}

	addr := net.JoinHostPort(deviceIP, fmt.Sprintf("%d", port))

	log.Info().Msg("Connecting via SSH for recovery")

	client, err := r.dial(ctx, addr)
	if err != nil {
		log.Error().Err(err).Msg("SSH connection failed")
		return false, fmt.Sprintf("SSH connection failed: %v", err)
	}

	defer func() { _ = client.Close() }()

	log.Info().Msg("Running pre-reboot diagnostics")

	diagnostics := runDiagnostics(client)

	highMemory, memoryPercent := parseMemoryUsage(diagnostics)

	var reason string
	if highMemory {
		reason = fmt.Sprintf("memory usage high (%.1f%% > %.0f%%)", memoryPercent, highMemoryThreshold)
	} else {
		reason = fmt.Sprintf("web service not responding (memory OK: %.1f%%)", memoryPercent)
	}

	log.Warn().
		Str("reason", reason).
		Float64("memory_percent", memoryPercent).
		Msg("Issuing reboot command")

	_, err = client.Run(rebootCommand)
	if err != nil && !isDisconnect(err) {
		log.Error().Err(err).Msg("Reboot command failed")
		return false, fmt.Sprintf("reboot command failed: %v", err)
	}

	if err != nil {
		log.Info().Msg("Connection closed after reboot (expected)")
	} else {
		log.Info().Msg("Reboot command sent")
	}

	return true, fmt.Sprintf("reboot issued to %s: %s", deviceName, reason)
}
