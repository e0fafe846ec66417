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
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

const (
	defaultICMPTimeout   = 5 * time.Second
	icmpReadBufferSize   = 1500
	icmpIdentifierMod    = 65536
	protocolICMP         = 1 // IANA protocol number for ICMPv4
	icmpPayloadSignature = "netpatrol-ping"
)

// ICMPProbe sends an echo request and waits for the matching reply. It
// prefers an unprivileged datagram ICMP socket and falls back to a raw
// socket when the platform allows it.
type ICMPProbe struct {
	identifier int
	logger     logger.Logger
}

var _ Probe = (*ICMPProbe)(nil)

func NewICMPProbe(log logger.Logger) *ICMPProbe {
	return &ICMPProbe{
		identifier: os.Getpid() % icmpIdentifierMod,
		logger:     log.WithComponent("icmp_probe"),
	}
}

func (p *ICMPProbe) Check(ctx context.Context, device *models.Device) *models.CheckResult {
	start := time.Now()
	timeout := deviceTimeout(device, defaultICMPTimeout)

	ip := net.ParseIP(device.IPAddress)
	if ip == nil || ip.To4() == nil {
		return failureResult(device, models.CheckKindPing, start,
			fmt.Sprintf("invalid IPv4 address: %s", device.IPAddress))
	}

	conn, dgram, err := p.listen()
	if err != nil {
		return failureResult(device, models.CheckKindPing, start,
			fmt.Sprintf("failed to open ICMP socket: %v", err))
	}
	defer func() { _ = conn.Close() }()

	seq := int(time.Now().UnixNano() % icmpIdentifierMod)

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.identifier,
			Seq:  seq,
			Data: []byte(icmpPayloadSignature),
		},
	}

	payload, err := msg.Marshal(nil)
	if err != nil {
		return failureResult(device, models.CheckKindPing, start,
			fmt.Sprintf("failed to marshal echo request: %v", err))
	}

	var dst net.Addr = &net.IPAddr{IP: ip}
	if dgram {
		dst = &net.UDPAddr{IP: ip}
	}

	if _, err := conn.WriteTo(payload, dst); err != nil {
		return failureResult(device, models.CheckKindPing, start,
			fmt.Sprintf("failed to send echo request: %v", err))
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return failureResult(device, models.CheckKindPing, start,
			fmt.Sprintf("failed to set read deadline: %v", err))
	}

	buf := make([]byte, icmpReadBufferSize)

	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return failureResult(device, models.CheckKindPing, start,
				fmt.Sprintf("no echo reply: %v", err))
		}

		reply, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil {
			continue
		}

		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}

		// Datagram sockets rewrite the identifier, so only the sequence
		// is a reliable match there.
		if echo.Seq != seq {
			continue
		}

		result := successResult(device, models.CheckKindPing, start)
		result.Data = map[string]any{"target": device.IPAddress}

		return result
	}
}

// listen opens the reply socket, returning whether it is an unprivileged
// datagram socket.
func (p *ICMPProbe) listen() (*icmp.PacketConn, bool, error) {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err == nil {
		return conn, true, nil
	}

	p.logger.Debug().Err(err).Msg("Datagram ICMP unavailable, trying raw socket")

	conn, rawErr := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if rawErr != nil {
		return nil, false, fmt.Errorf("datagram (%v) and raw (%w) listeners failed", err, rawErr)
	}

	return conn, false, nil
}
