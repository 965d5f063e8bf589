package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferToStatus(t *testing.T) {
	buf := make([]byte, reportSize)
	buf[9], buf[10] = 0x08, 0x00
	buf[11], buf[12] = 0x04, 0x00
	buf[13] = 2
	buf[14] = 0x76
	buf[15] = 3
	buf[16], buf[17] = 0xB4, 0x00
	buf[25] = 1

	assert.Equal(t, &MCP2221Status{
		I2CDataBufferCounter:   2,
		I2CSpeedDivider:        0x76,
		I2CTimeout:             3,
		CurrentAddress:         "b400",
		LastWriteRequestedSize: 8,
		LastWriteSentSize:      4,
		ReadPending:            1,
	}, bufferToStatus(buf))
}

func TestReadResult(t *testing.T) {
	tests := []struct {
		name     string
		response []byte
		size     int
		expected []byte
		err      string
	}{
		{
			name:     "ok",
			response: []byte{0x40, 0x00, 0x00, 0x02, 0x81, 0x99},
			size:     2,
			expected: []byte{0x81, 0x99},
		},
		{
			name:     "engine error",
			response: []byte{0x40, 0x41, 0x00, 0x02, 0x00, 0x00},
			size:     2,
			err:      "error reading the I2C slave data from the I2C engine",
		},
		{
			name:     "size mismatch",
			response: []byte{0x40, 0x00, 0x00, 0x01, 0x81, 0x00},
			size:     2,
			err:      "invalid data size byte; expected 2, got 1",
		},
		{
			name:     "read error marker",
			response: []byte{0x40, 0x00, 0x00, 127, 0x00, 0x00},
			size:     2,
			err:      "invalid data size byte; expected 2, got 127",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := make([]byte, reportSize)
			copy(response, tt.response)
			buf := make([]byte, tt.size)
			err := readResult(response, buf)
			if tt.err != "" {
				assert.EqualError(t, err, tt.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, buf)
		})
	}
}

func TestNewMCP2221_Defaults(t *testing.T) {
	d := NewMCP2221()
	assert.Equal(t, -1, d.config.Index)
	assert.Len(t, d.request, reportSize)

	d = NewMCP2221(WithIndex(1), WithResponseWait(0))
	assert.Equal(t, 1, d.config.Index)
	assert.Zero(t, d.config.ResponseWait)
}
