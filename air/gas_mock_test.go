package air

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGasSensor_Dynamic(t *testing.T) {
	tvoc := uint16(10)
	eco2 := uint16(400)
	s := NewMockGasSensor(CCS811AddrLow, func(ctx context.Context) (GasReading, bool, error) {
		return GasReading{ECO2: &eco2, TVOC: &tvoc}, true, nil
	})
	ctx := context.Background()

	r, ok, err := s.PollOnce(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint16(10), *r.TVOC)

	tvoc = 25
	r, _, _ = s.PollOnce(ctx)
	assert.Equal(t, uint16(25), *r.TVOC)
	assert.Equal(t, 2, s.Polls())
	assert.Equal(t, CCS811AddrLow, s.Addr())
}

func TestMockGasSensor_Error(t *testing.T) {
	fault := &DeviceFault{Addr: CCS811AddrHigh, Flags: ErrorFlags{HeaterFault: true}}
	s := NewMockGasSensor(CCS811AddrHigh, func(ctx context.Context) (GasReading, bool, error) {
		return GasReading{}, false, fault
	})
	_, _, err := s.PollOnce(context.Background())
	var df *DeviceFault
	require.True(t, errors.As(err, &df))
	assert.True(t, df.Flags.HeaterFault)
}

func TestMockGasSensor_ModeAndBaseline(t *testing.T) {
	s := NewMockGasSensor(CCS811AddrLow, nil)
	ctx := context.Background()

	require.NoError(t, s.SwitchMode(ctx, DriveMode{Mode: DriveMode10s}))
	assert.Equal(t, DriveMode{Mode: DriveMode10s}, s.CurrentMode())
	assert.ErrorIs(t, s.SwitchMode(ctx, DriveMode{Mode: 8}), ErrInvalidDriveMode)

	store := &memStore{values: []uint16{0x1111, 0x2222}}
	v, ok, err := s.LoadBaseline(ctx, store)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x2222), v)

	s.SetBaseline(0x3333)
	_, err = s.SaveBaseline(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x1111, 0x2222, 0x3333}, store.values)
}
