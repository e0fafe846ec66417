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
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

const (
	defaultSNMPPort      = 161
	defaultSNMPTimeout   = 5 * time.Second
	defaultSNMPCommunity = "public"
	sysUpTimeOID         = ".1.3.6.1.2.1.1.3.0"
	snmpRetries          = 1
)

// SNMPProbe queries sysUpTime over SNMP. The device's community string and
// version select the client configuration.
type SNMPProbe struct {
	logger logger.Logger
}

var _ Probe = (*SNMPProbe)(nil)

func NewSNMPProbe(log logger.Logger) *SNMPProbe {
	return &SNMPProbe{logger: log.WithComponent("snmp_probe")}
}

func (p *SNMPProbe) Check(ctx context.Context, device *models.Device) *models.CheckResult {
	start := time.Now()
	timeout := deviceTimeout(device, defaultSNMPTimeout)

	port := device.SNMPPort
	if port == 0 {
		port = defaultSNMPPort
	}

	community := device.SNMPCommunity
	if community == "" {
		community = defaultSNMPCommunity
	}

	client := &gosnmp.GoSNMP{
		Context:            ctx,
		Target:             device.IPAddress,
		Port:               uint16(port),
		Community:          community,
		Timeout:            timeout,
		Retries:            snmpRetries,
		MaxOids:            gosnmp.MaxOids,
		ExponentialTimeout: true,
	}

	switch device.SNMPVersion {
	case "1":
		client.Version = gosnmp.Version1
	default:
		client.Version = gosnmp.Version2c
	}

	if err := client.Connect(); err != nil {
		return failureResult(device, models.CheckKindSNMP, start,
			fmt.Sprintf("SNMP connect failed: %v", err))
	}

	defer func() { _ = client.Conn.Close() }()

	pkt, err := client.Get([]string{sysUpTimeOID})
	if err != nil {
		return failureResult(device, models.CheckKindSNMP, start,
			fmt.Sprintf("SNMP get failed: %v", err))
	}

	if len(pkt.Variables) == 0 {
		return failureResult(device, models.CheckKindSNMP, start, "SNMP get returned no variables")
	}

	result := successResult(device, models.CheckKindSNMP, start)
	result.Data = map[string]any{
		"oid":        sysUpTimeOID,
		"sys_uptime": fmt.Sprintf("%v", pkt.Variables[0].Value),
	}

	return result
}
