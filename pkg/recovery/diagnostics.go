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
	"strconv"
	"strings"
)

const (
	highMemoryThreshold = 80.0
	maxDiagnosticOutput = 500
)

// diagnosticCommands is the fixed pre-reboot battery. Failures of
// individual commands are recorded, not fatal.
var diagnosticCommands = []struct {
	name string
	cmd  string
}{
	{"uptime", "uptime"},
	{"memory", "free -h"},
	{"memory_raw", "free -m"},
	{"disk", "df -h"},
	{"load_average", "cat /proc/loadavg"},
	{"network", "ip addr show"},
}

func runDiagnostics(client remoteClient) map[string]string {
	diagnostics := make(map[string]string, len(diagnosticCommands))

	for _, dc := range diagnosticCommands {
		output, err := client.Run(dc.cmd)
		if err != nil {
			diagnostics[dc.name] = "failed: " + err.Error()
			continue
		}

		if len(output) > maxDiagnosticOutput {
			output = output[:maxDiagnosticOutput]
		}

		diagnostics[dc.name] = output
	}

	return diagnostics
}

// parseMemoryUsage extracts used/total from `free -m` output and reports
// whether usage exceeds the high-memory threshold. Unparseable output
// yields (false, 0): the reboot decision never depends on it, only the
// reported reason does.
func parseMemoryUsage(diagnostics map[string]string) (high bool, usedPercent float64) {
	lines := strings.Split(strings.TrimSpace(diagnostics["memory_raw"]), "\n")
	if len(lines) < 2 {
		return false, 0
	}

	fields := strings.Fields(lines[1])
	if len(fields) < 3 {
		return false, 0
	}

	total, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || total == 0 {
		return false, 0
	}

	used, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return false, 0
	}

	usedPercent = used / total * 100

	return usedPercent > highMemoryThreshold, usedPercent
}
