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
	"errors"
	"net"
	"time"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

const defaultDNSTimeout = 5 * time.Second

// DNSProbe performs an address lookup of the device's address or hostname
// through the system resolver.
type DNSProbe struct {
	resolver *net.Resolver
	logger   logger.Logger
}

var _ Probe = (*DNSProbe)(nil)

func NewDNSProbe(log logger.Logger) *DNSProbe {
	return &DNSProbe{
		resolver: net.DefaultResolver,
		logger:   log.WithComponent("dns_probe"),
	}
}

func (p *DNSProbe) Check(ctx context.Context, device *models.Device) *models.CheckResult {
	start := time.Now()
	timeout := deviceTimeout(device, defaultDNSTimeout)

	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host := device.Name
	if net.ParseIP(device.IPAddress) == nil {
		// The address field holds a hostname; resolve it directly.
		host = device.IPAddress
	}

	addrs, err := p.resolver.LookupHost(lookupCtx, host)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return failureResult(device, models.CheckKindDNS, start, "DNS query timeout")
		}

		return failureResult(device, models.CheckKindDNS, start, err.Error())
	}

	if len(addrs) == 0 {
		return failureResult(device, models.CheckKindDNS, start, "DNS lookup returned no addresses")
	}

	result := successResult(device, models.CheckKindDNS, start)
	result.Data = map[string]any{
		"host":      host,
		"addresses": addrs,
	}

	return result
}
