package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebChecksEnabled(t *testing.T) {
	tests := []struct {
		name     string
		device   Device
		expected bool
	}{
		{name: "none", device: Device{}, expected: false},
		{name: "http only", device: Device{HTTPEnabled: true}, expected: true},
		{name: "https only", device: Device{HTTPSEnabled: true}, expected: true},
		{name: "both", device: Device{HTTPEnabled: true, HTTPSEnabled: true}, expected: true},
		{name: "ping only", device: Device{PingEnabled: true}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.device.WebChecksEnabled())
		})
	}
}

func TestEnabledChecksOrder(t *testing.T) {
	device := Device{
		PingEnabled: true,
		HTTPEnabled: true,
		SSHEnabled:  true,
		SNMPEnabled: true,
	}

	assert.Equal(t,
		[]CheckKind{CheckKindPing, CheckKindHTTP, CheckKindSSH, CheckKindSNMP},
		device.EnabledChecks())
}

func TestEnabledChecksEmpty(t *testing.T) {
	assert.Empty(t, (&Device{}).EnabledChecks())
}
