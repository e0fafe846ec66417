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

package probe

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

const (
	defaultSSHPort    = 22
	defaultSSHTimeout = 5 * time.Second
)

// SSHProbe verifies SSH reachability: the port accepts a connection and the
// server presents an SSH banner. No authentication is attempted; recovery
// owns authenticated sessions.
type SSHProbe struct {
	logger logger.Logger
}

var _ Probe = (*SSHProbe)(nil)

func NewSSHProbe(log logger.Logger) *SSHProbe {
	return &SSHProbe{logger: log.WithComponent("ssh_probe")}
}

func (p *SSHProbe) Check(ctx context.Context, device *models.Device) *models.CheckResult {
	start := time.Now()
	timeout := deviceTimeout(device, defaultSSHTimeout)

	port := device.SSHPort
	if port == 0 {
		port = defaultSSHPort
	}

	addr := net.JoinHostPort(device.IPAddress, fmt.Sprintf("%d", port))

	dialer := &net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return failureResult(device, models.CheckKindSSH, start,
			fmt.Sprintf("SSH port check failed: %v", err))
	}

	defer func() { _ = conn.Close() }()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return failureResult(device, models.CheckKindSSH, start,
			fmt.Sprintf("failed to set read deadline: %v", err))
	}

	banner, err := bufio.NewReader(conn).ReadString('\n')
	banner = strings.TrimSpace(banner)

	result := successResult(device, models.CheckKindSSH, start)
	result.Data = map[string]any{"port_open": true}

	if err != nil || !strings.HasPrefix(banner, "SSH-") {
		// Port answers but no SSH banner; still counts as reachable,
		// recorded for diagnostics.
		result.Data["banner"] = ""

		return result
	}

	result.Data["banner"] = banner

	return result
}
