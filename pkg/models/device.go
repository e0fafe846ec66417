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

// DeviceStatus is the derived health state of a device.
type DeviceStatus string

const (
	StatusUnknown  DeviceStatus = "unknown"
	StatusOnline   DeviceStatus = "online"
	StatusDegraded DeviceStatus = "degraded"
	StatusOffline  DeviceStatus = "offline"
)

// CheckStatus is the last observed outcome of one signal (ping or web).
// The zero value means the signal has not been observed yet; status
// derivation treats it as "no data" rather than a failure.
type CheckStatus string

const (
	CheckStatusUnset   CheckStatus = ""
	CheckStatusSuccess CheckStatus = "success"
	CheckStatusFailed  CheckStatus = "failed"
)

// Device is a monitored network device. The configuration fields are loaded
// from the store; the runtime fields are owned exclusively by the engine
// while monitoring is running and written back through the store between
// runs. Runtime fields are only mutated by the engine's result pipeline.
type Device struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	IPAddress   string `json:"ip_address"`
	Description string `json:"description,omitempty"`
	DeviceType  string `json:"device_type,omitempty"`

	Enabled       bool     `json:"enabled"`
	CheckInterval Duration `json:"check_interval"`
	Timeout       Duration `json:"timeout"`

	PingEnabled  bool `json:"ping_enabled"`
	HTTPEnabled  bool `json:"http_enabled"`
	HTTPSEnabled bool `json:"https_enabled"`
	SSHEnabled   bool `json:"ssh_enabled"`
	DNSEnabled   bool `json:"dns_enabled"`
	SNMPEnabled  bool `json:"snmp_enabled"`

	HTTPPort           int    `json:"http_port,omitempty"`
	HTTPSPort          int    `json:"https_port,omitempty"`
	SSHPort            int    `json:"ssh_port,omitempty"`
	SNMPPort           int    `json:"snmp_port,omitempty"`
	HTTPPath           string `json:"http_path,omitempty"`
	HTTPExpectedStatus int    `json:"http_expected_status,omitempty"`
	SNMPCommunity      string `json:"snmp_community,omitempty"`
	SNMPVersion        string `json:"snmp_version,omitempty"`

	AlertEnabled    bool `json:"alert_enabled"`
	AlertOnDown     bool `json:"alert_on_down"`
	AlertOnUp       bool `json:"alert_on_up"`
	AlertOnDegraded bool `json:"alert_on_degraded"`

	// Runtime state, engine-owned while monitoring runs.
	CurrentStatus              DeviceStatus      `json:"current_status"`
	PingStatus                 CheckStatus       `json:"ping_status,omitempty"`
	WebStatus                  CheckStatus       `json:"web_status,omitempty"`
	TotalChecks                int64             `json:"total_checks"`
	SuccessfulChecks           int64             `json:"successful_checks"`
	FailedChecks               int64             `json:"failed_checks"`
	UptimePercentage           float64           `json:"uptime_percentage"`
	ResponseTime               float64           `json:"response_time_ms"`
	LastCheckTime              time.Time         `json:"last_check_time,omitempty"`
	LastStatusChange           time.Time         `json:"last_status_change,omitempty"`
	RequiresManualIntervention bool              `json:"requires_manual_intervention"`
	RecoveryHistory            []RecoveryOutcome `json:"recovery_history,omitempty"`
}

// WebChecksEnabled reports whether the device has any web signal configured.
// The status machine only consults WebStatus when this is true.
func (d *Device) WebChecksEnabled() bool {
	return d.HTTPEnabled || d.HTTPSEnabled
}

// EnabledChecks returns the check kinds configured for the device, in fixed
// order.
func (d *Device) EnabledChecks() []CheckKind {
	kinds := make([]CheckKind, 0, 6)

	if d.PingEnabled {
		kinds = append(kinds, CheckKindPing)
	}

	if d.HTTPEnabled {
		kinds = append(kinds, CheckKindHTTP)
	}

	if d.HTTPSEnabled {
		kinds = append(kinds, CheckKindHTTPS)
	}

	if d.SSHEnabled {
		kinds = append(kinds, CheckKindSSH)
	}

	if d.DNSEnabled {
		kinds = append(kinds, CheckKindDNS)
	}

	if d.SNMPEnabled {
		kinds = append(kinds, CheckKindSNMP)
	}

	return kinds
}
