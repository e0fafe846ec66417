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
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

const (
	defaultHTTPTimeout    = 10 * time.Second
	defaultHTTPPort       = 80
	defaultHTTPSPort      = 443
	defaultExpectedStatus = http.StatusOK
	maxBodyProbeBytes     = 64 * 1024
)

// HTTPProbe checks a device's web service. The same implementation serves
// both the http and https check kinds; Secure selects the scheme and port
// defaults.
type HTTPProbe struct {
	secure             bool
	insecureSkipVerify bool
	logger             logger.Logger
}

var _ Probe = (*HTTPProbe)(nil)

func NewHTTPProbe(secure, insecureSkipVerify bool, log logger.Logger) *HTTPProbe {
	component := "http_probe"
	if secure {
		component = "https_probe"
	}

	return &HTTPProbe{
		secure:             secure,
		insecureSkipVerify: insecureSkipVerify,
		logger:             log.WithComponent(component),
	}
}

func (p *HTTPProbe) kind() models.CheckKind {
	if p.secure {
		return models.CheckKindHTTPS
	}

	return models.CheckKindHTTP
}

func (p *HTTPProbe) url(device *models.Device) string {
	scheme := "http"
	port := device.HTTPPort

	if p.secure {
		scheme = "https"
		port = device.HTTPSPort
	}

	if port == 0 {
		if p.secure {
			port = defaultHTTPSPort
		} else {
			port = defaultHTTPPort
		}
	}

	path := device.HTTPPath
	if path == "" {
		path = "/"
	}

	return fmt.Sprintf("%s://%s:%d%s", scheme, device.IPAddress, port, path)
}

func (p *HTTPProbe) Check(ctx context.Context, device *models.Device) *models.CheckResult {
	start := time.Now()
	kind := p.kind()
	timeout := deviceTimeout(device, defaultHTTPTimeout)

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: p.insecureSkipVerify, //nolint:gosec // operator-controlled for self-signed device certs
			},
		},
	}
	defer client.CloseIdleConnections()

	url := p.url(device)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return failureResult(device, kind, start, fmt.Sprintf("failed to build request: %v", err))
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return failureResult(device, kind, start, "HTTP request timeout")
		}

		return failureResult(device, kind, start, fmt.Sprintf("HTTP request failed: %v", err))
	}

	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyProbeBytes))

	expected := device.HTTPExpectedStatus
	if expected == 0 {
		expected = defaultExpectedStatus
	}

	result := successResult(device, kind, start)
	result.StatusCode = resp.StatusCode
	result.Data = map[string]any{
		"url":           url,
		"content_bytes": len(body),
	}

	if resp.StatusCode != expected {
		result.Success = false
		result.Error = fmt.Sprintf("unexpected status code %d (want %d)", resp.StatusCode, expected)
	}

	return result
}
