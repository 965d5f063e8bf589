package airmon

import (
	"context"
	"errors"
)

// ErrBusBusy is returned by bridges whose I2C engine is still busy with a
// previous transfer.
var ErrBusBusy = errors.New("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// RegisterBus is a register (SMBus style) view of a single device on a bus.
// Word operations use SMBus byte order: low byte first on the wire.
type RegisterBus interface {
	ReadByteData(ctx context.Context, reg byte) (byte, error)
	WriteByteData(ctx context.Context, reg byte, value byte) error
	ReadBlockData(ctx context.Context, reg byte, buffer []byte) error
	WriteBlockData(ctx context.Context, reg byte, data []byte) error
	ReadWordData(ctx context.Context, reg byte) (uint16, error)
	WriteWordData(ctx context.Context, reg byte, value uint16) error
	// WriteCommand sends a bare command byte with no payload.
	WriteCommand(ctx context.Context, cmd byte) error
}
