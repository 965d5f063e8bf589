package i2c

import (
	"context"
	"errors"
	"fmt"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/mklimuk/airmon"
)

var _ airmon.RegisterBus = &GobotBus{}

var ErrUnknownPlatform = errors.New("unknown gobot platform")

type platform interface {
	Connect() error
	Finalize() error
	GetI2cConnection(address int, busNr int) (i2c.Connection, error)
}

// GobotBus drives a device through a gobot i2c connection, using the
// platform's SMBus calls directly.
type GobotBus struct {
	conn     i2c.Connection
	platform platform
}

// NewGobotBus wraps an existing connection. Closing the bus closes conn.
func NewGobotBus(conn i2c.Connection) *GobotBus {
	return &GobotBus{conn: conn}
}

// OpenGobotBus connects to the board (nanopi or raspi) and opens device
// addr on bus busNr.
func OpenGobotBus(board string, busNr int, addr byte) (*GobotBus, error) {
	var p platform
	switch board {
	case "nanopi":
		p = nanopi.NewNeoAdaptor()
	case "raspi":
		p = raspi.NewAdaptor()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, board)
	}
	if err := p.Connect(); err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	conn, err := p.GetI2cConnection(int(addr), busNr)
	if err != nil {
		_ = p.Finalize()
		return nil, fmt.Errorf("could not open i2c connection to %#x on bus %d: %w", addr, busNr, err)
	}
	return &GobotBus{conn: conn, platform: p}, nil
}

func (b *GobotBus) ReadByteData(ctx context.Context, reg byte) (byte, error) {
	return b.conn.ReadByteData(reg)
}

func (b *GobotBus) WriteByteData(ctx context.Context, reg byte, value byte) error {
	return b.conn.WriteByteData(reg, value)
}

func (b *GobotBus) ReadBlockData(ctx context.Context, reg byte, buffer []byte) error {
	return b.conn.ReadBlockData(reg, buffer)
}

func (b *GobotBus) WriteBlockData(ctx context.Context, reg byte, data []byte) error {
	return b.conn.WriteBlockData(reg, data)
}

func (b *GobotBus) ReadWordData(ctx context.Context, reg byte) (uint16, error) {
	return b.conn.ReadWordData(reg)
}

func (b *GobotBus) WriteWordData(ctx context.Context, reg byte, value uint16) error {
	return b.conn.WriteWordData(reg, value)
}

func (b *GobotBus) WriteCommand(ctx context.Context, cmd byte) error {
	return b.conn.WriteByte(cmd)
}

func (b *GobotBus) Close() error {
	err := b.conn.Close()
	if b.platform != nil {
		err = errors.Join(err, b.platform.Finalize())
	}
	return err
}
