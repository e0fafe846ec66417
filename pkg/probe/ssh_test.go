package probe

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

// fakeSSHListener accepts one connection and writes the given banner.
func fakeSSHListener(t *testing.T, banner string) *models.Device {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		if banner != "" {
			_, _ = conn.Write([]byte(banner + "\r\n"))
		}

		time.Sleep(100 * time.Millisecond)
		_ = conn.Close()
	}()

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return &models.Device{
		ID:         1,
		IPAddress:  "127.0.0.1",
		SSHEnabled: true,
		SSHPort:    port,
		Timeout:    models.Duration(2 * time.Second),
	}
}

func TestSSHProbeBanner(t *testing.T) {
	device := fakeSSHListener(t, "SSH-2.0-OpenSSH_9.6")

	p := NewSSHProbe(logger.NewTestLogger())
	result := p.Check(context.Background(), device)

	assert.True(t, result.Success)
	assert.Equal(t, "SSH-2.0-OpenSSH_9.6", result.Data["banner"])
}

func TestSSHProbeOpenPortWithoutBanner(t *testing.T) {
	device := fakeSSHListener(t, "220 not an ssh server")

	p := NewSSHProbe(logger.NewTestLogger())
	result := p.Check(context.Background(), device)

	assert.True(t, result.Success, "open port counts as reachable")
	assert.Equal(t, "", result.Data["banner"])
}

func TestSSHProbeClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	device := &models.Device{
		ID:        1,
		IPAddress: "127.0.0.1",
		SSHPort:   port,
		Timeout:   models.Duration(time.Second),
	}

	p := NewSSHProbe(logger.NewTestLogger())
	result := p.Check(context.Background(), device)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "SSH port check failed")
}
