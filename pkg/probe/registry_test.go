package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrolhq/netpatrol/pkg/models"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	fake := ProbeFunc(func(_ context.Context, device *models.Device) *models.CheckResult {
		return &models.CheckResult{DeviceID: device.ID, Kind: models.CheckKindPing, Success: true}
	})

	r.Register(models.CheckKindPing, fake)

	p, err := r.Get(models.CheckKindPing)
	require.NoError(t, err)

	result := p.Check(context.Background(), &models.Device{ID: 7})
	assert.Equal(t, int64(7), result.DeviceID)
	assert.True(t, result.Success)
}

func TestRegistryUnknownKind(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get(models.CheckKindSNMP)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProbe)
}

func TestRegistryKinds(t *testing.T) {
	r := NewRegistry()

	nop := ProbeFunc(func(_ context.Context, _ *models.Device) *models.CheckResult { return nil })

	r.Register(models.CheckKindPing, nop)
	r.Register(models.CheckKindHTTP, nop)

	assert.ElementsMatch(t, []models.CheckKind{models.CheckKindPing, models.CheckKindHTTP}, r.Kinds())
}

func TestRegistryReplaceProbe(t *testing.T) {
	r := NewRegistry()

	first := ProbeFunc(func(_ context.Context, _ *models.Device) *models.CheckResult {
		return &models.CheckResult{Error: "first"}
	})
	second := ProbeFunc(func(_ context.Context, _ *models.Device) *models.CheckResult {
		return &models.CheckResult{Error: "second"}
	})

	r.Register(models.CheckKindDNS, first)
	r.Register(models.CheckKindDNS, second)

	p, err := r.Get(models.CheckKindDNS)
	require.NoError(t, err)
	assert.Equal(t, "second", p.Check(context.Background(), &models.Device{}).Error)
}
