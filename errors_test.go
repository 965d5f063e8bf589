package airmon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportError(t *testing.T) {
	cause := errors.New("nack")
	tests := []struct {
		name string
		err  *TransportError
		msg  string
	}{
		{"register 0", &TransportError{Op: "read status", Reg: 0x00, HasReg: true, Err: cause}, "transport: read status (reg 0x00): nack"},
		{"register", &TransportError{Op: "write mode", Reg: 0x01, HasReg: true, Err: cause}, "transport: write mode (reg 0x01): nack"},
		{"serial", &TransportError{Op: "pms5003 read byte", Err: cause}, "transport: pms5003 read byte: nack"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error = tt.err
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, tt.msg, err.Error())

			var te *TransportError
			assert.True(t, errors.As(err, &te))
			assert.Equal(t, tt.err.Op, te.Op)
		})
	}
}
