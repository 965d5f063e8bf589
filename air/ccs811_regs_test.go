package air

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomByte() byte {
	return byte(rand.Intn(1 << 8))
}

func TestDecodeStatus_Bits(t *testing.T) {
	tests := []struct {
		name  string
		mask  byte
		field func(Status) bool
	}{
		{"error", 0x01, func(s Status) bool { return s.Error }},
		{"data ready", 0x08, func(s Status) bool { return s.DataReady }},
		{"app valid", 0x10, func(s Status) bool { return s.AppValid }},
		{"fw mode", 0x80, func(s Status) bool { return s.FWMode }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 1000 {
				on := tt.mask | randomByte()
				assert.True(t, tt.field(DecodeStatus(on)), "byte=%#x", on)
				off := ^tt.mask & randomByte()
				assert.False(t, tt.field(DecodeStatus(off)), "byte=%#x", off)
			}
		})
	}
}

func TestDecodeErrorFlags_Bits(t *testing.T) {
	fields := []func(ErrorFlags) bool{
		func(e ErrorFlags) bool { return e.MsgInvalid },
		func(e ErrorFlags) bool { return e.ReadRegInvalid },
		func(e ErrorFlags) bool { return e.MeasModeInvalid },
		func(e ErrorFlags) bool { return e.MaxResistance },
		func(e ErrorFlags) bool { return e.HeaterFault },
		func(e ErrorFlags) bool { return e.HeaterSupply },
	}
	for bit, field := range fields {
		t.Run(fmt.Sprintf("bit%d", bit), func(t *testing.T) {
			flags := DecodeErrorFlags(1 << bit)
			assert.True(t, field(flags))
			assert.True(t, flags.Any())
			for other, f := range fields {
				if other != bit {
					assert.False(t, f(flags), "bit %d leaked into field %d", bit, other)
				}
			}
		})
	}
	assert.False(t, DecodeErrorFlags(0xC0).Any(), "bits 6 and 7 are reserved")
	assert.Equal(t, "none", ErrorFlags{}.String())
	assert.Equal(t, "msg_invalid,heater_fault", DecodeErrorFlags(0x11).String())
}

func TestDriveMode_RoundTrip(t *testing.T) {
	for i := range 256 {
		b := byte(i)
		m := DecodeDriveMode(b)
		assert.Equal(t, m, DecodeDriveMode(m.Byte()), "byte=%#x", b)
	}
}

func TestDriveMode_Byte(t *testing.T) {
	tests := []struct {
		mode     DriveMode
		expected byte
	}{
		{DriveMode{}, 0x00},
		{DriveMode{Mode: DriveMode1s}, 0x10},
		{DriveMode{Mode: DriveMode10s, Interrupt: true}, 0x28},
		{DriveMode{Mode: DriveMode60s, Thresh: true}, 0x34},
		{DriveMode{Mode: DriveMode250ms, Interrupt: true, Thresh: true}, 0x4C},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%#x", tt.expected), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.mode.Byte())
			assert.Equal(t, tt.mode, DecodeDriveMode(tt.expected))
		})
	}
}

func TestDecodeRaw(t *testing.T) {
	raw := DecodeRaw(0b1010101010101010)
	assert.Equal(t, uint8(0b101010), raw.Current)
	assert.Equal(t, uint16(0b1010101010), raw.Voltage)
}

func TestDecodeReading_Lengths(t *testing.T) {
	block := []byte{0x01, 0x90, 0x00, 0x2A, 0x98, 0x00, 0xAA, 0xAA}

	tests := []struct {
		n                                        int
		eco2, tvoc, status, errorFlags, rawValue bool
	}{
		{n: 0},
		{n: 2, eco2: true},
		{n: 4, eco2: true, tvoc: true},
		{n: 5, eco2: true, tvoc: true, status: true},
		{n: 6, eco2: true, tvoc: true, status: true, errorFlags: true},
		{n: 8, eco2: true, tvoc: true, status: true, errorFlags: true, rawValue: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d bytes", tt.n), func(t *testing.T) {
			r, err := DecodeReading(block[:tt.n])
			require.NoError(t, err)
			assert.Equal(t, tt.eco2, r.ECO2 != nil)
			assert.Equal(t, tt.tvoc, r.TVOC != nil)
			assert.Equal(t, tt.status, r.Status != nil)
			assert.Equal(t, tt.errorFlags, r.Error != nil)
			assert.Equal(t, tt.rawValue, r.Raw != nil)
		})
	}

	r, err := DecodeReading(block)
	require.NoError(t, err)
	assert.Equal(t, uint16(400), *r.ECO2)
	assert.Equal(t, uint16(42), *r.TVOC)
	assert.Equal(t, Status{DataReady: true, AppValid: true, FWMode: true}, *r.Status)
	assert.False(t, r.Error.Any())
	assert.Equal(t, RawMeasurement{Current: 0b101010, Voltage: 0b1010101010}, *r.Raw)
	assert.True(t, r.InRange())
}

func TestDecodeReading_InvalidLength(t *testing.T) {
	for _, n := range []int{1, 3, 7, 9, 16} {
		t.Run(fmt.Sprintf("%d bytes", n), func(t *testing.T) {
			_, err := DecodeReading(make([]byte, n))
			assert.ErrorIs(t, err, ErrInvalidReadingLength)
		})
	}
}

func TestGasReading_InRange(t *testing.T) {
	u := func(v uint16) *uint16 { return &v }
	assert.True(t, GasReading{ECO2: u(8192), TVOC: u(1187)}.InRange())
	assert.False(t, GasReading{ECO2: u(8193), TVOC: u(0)}.InRange())
	assert.False(t, GasReading{ECO2: u(400), TVOC: u(1188)}.InRange())
	assert.False(t, GasReading{ECO2: u(400)}.InRange())
}
