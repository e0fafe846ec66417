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

package recovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/patrolhq/netpatrol/pkg/models"
)

const defaultSSHDialTimeout = 10 * time.Second

// SSHConfig holds the credentials the recoverer uses for every device.
type SSHConfig struct {
	Enabled     bool            `json:"enabled"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	Port        int             `json:"port"`
	DialTimeout models.Duration `json:"dial_timeout"`
	CommandTime models.Duration `json:"command_timeout"`
}

// sshClient wraps an established *ssh.Client as a remoteClient; each Run
// uses a fresh session.
type sshClient struct {
	client  *ssh.Client
	timeout time.Duration
}

func (c *sshClient) Run(cmd string) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open session: %w", err)
	}

	defer func() { _ = session.Close() }()

	type execResult struct {
		output []byte
		err    error
	}

	done := make(chan execResult, 1)

	go func() {
		out, runErr := session.CombinedOutput(cmd)
		done <- execResult{output: out, err: runErr}
	}()

	select {
	case res := <-done:
		return string(res.output), res.err
	case <-time.After(c.timeout):
		return "", fmt.Errorf("command %q timed out after %v", cmd, c.timeout)
	}
}

func (c *sshClient) Close() error {
	return c.client.Close()
}

func newSSHDialer(cfg *SSHConfig) dialFunc {
	return func(ctx context.Context, addr string) (remoteClient, error) {
		dialTimeout := cfg.DialTimeout.Std()
		if dialTimeout == 0 {
			dialTimeout = defaultSSHDialTimeout
		}

		clientConfig := &ssh.ClientConfig{
			User: cfg.Username,
			Auth: []ssh.AuthMethod{
				ssh.Password(cfg.Password),
			},
			// Devices are reprovisioned in the field; host keys churn.
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
			Timeout:         dialTimeout,
		}

		dialer := &net.Dialer{Timeout: dialTimeout}

		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
		}

		sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("SSH handshake with %s failed: %w", addr, err)
		}

		commandTimeout := cfg.CommandTime.Std()
		if commandTimeout == 0 {
			commandTimeout = defaultSSHDialTimeout
		}

		return &sshClient{
			client:  ssh.NewClient(sshConn, chans, reqs),
			timeout: commandTimeout,
		}, nil
	}
}

// isDisconnect reports whether a command error means the remote side closed
// the connection. A reboot command dropping the connection is the expected
// success signal, so callers treat this as a terminal state of the command
// rather than a failure.
func isDisconnect(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, io.EOF) {
		return true
	}

	var exitMissing *ssh.ExitMissingError
	if errors.As(err, &exitMissing) {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}
