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

package models

import (
	"time"
)

// CheckKind identifies the protocol a check task exercises.
type CheckKind string

const (
	CheckKindPing  CheckKind = "ping"
	CheckKindHTTP  CheckKind = "http"
	CheckKindHTTPS CheckKind = "https"
	CheckKindSSH   CheckKind = "ssh"
	CheckKindDNS   CheckKind = "dns"
	CheckKindSNMP  CheckKind = "snmp"
)

// CheckResult is the outcome of a single probe execution. It is transient:
// the engine converts it into a persisted record and a metric sample, then
// discards it.
type CheckResult struct {
	DeviceID     int64          `json:"device_id"`
	Kind         CheckKind      `json:"check_kind"`
	Success      bool           `json:"success"`
	ResponseTime float64        `json:"response_time_ms"`
	StatusCode   int            `json:"status_code,omitempty"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// RecoveryOutcome records one completed recovery attempt for a device. A
// bounded history of these is kept on the device for notifier aggregation.
type RecoveryOutcome struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
}
