package i2c

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/mklimuk/airmon"
	"github.com/mklimuk/airmon/snsctx"
)

var _ airmon.RegisterBus = &Registers{}

// Transactor is implemented by buses able to write and read in one
// transaction. Registers falls back to a write followed by a read.
type Transactor interface {
	TxAddr(ctx context.Context, address byte, w, r []byte) error
}

type RegistersOpts struct {
	Logger *slog.Logger
}

type RegistersOpt func(*RegistersOpts)

func WithRegistersLogger(l *slog.Logger) RegistersOpt {
	return func(o *RegistersOpts) {
		o.Logger = l
	}
}

// Registers exposes a single device on an address-level bus as a set of
// SMBus style registers. Verbose contexts dump every transfer.
type Registers struct {
	bus  airmon.I2CBus
	addr byte
	log  *slog.Logger
}

func NewRegisters(bus airmon.I2CBus, addr byte, opts ...RegistersOpt) *Registers {
	config := RegistersOpts{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&config)
	}
	return &Registers{bus: bus, addr: addr, log: config.Logger}
}

func (r *Registers) ReadByteData(ctx context.Context, reg byte) (byte, error) {
	buf := make([]byte, 1)
	if err := r.read(ctx, reg, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (r *Registers) WriteByteData(ctx context.Context, reg byte, value byte) error {
	return r.write(ctx, []byte{reg, value})
}

func (r *Registers) ReadBlockData(ctx context.Context, reg byte, buffer []byte) error {
	return r.read(ctx, reg, buffer)
}

func (r *Registers) WriteBlockData(ctx context.Context, reg byte, data []byte) error {
	return r.write(ctx, append([]byte{reg}, data...))
}

func (r *Registers) ReadWordData(ctx context.Context, reg byte) (uint16, error) {
	buf := make([]byte, 2)
	if err := r.read(ctx, reg, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (r *Registers) WriteWordData(ctx context.Context, reg byte, value uint16) error {
	buf := []byte{reg, 0, 0}
	binary.LittleEndian.PutUint16(buf[1:], value)
	return r.write(ctx, buf)
}

func (r *Registers) WriteCommand(ctx context.Context, cmd byte) error {
	return r.write(ctx, []byte{cmd})
}

func (r *Registers) read(ctx context.Context, reg byte, buffer []byte) error {
	w := []byte{reg}
	if tx, ok := r.bus.(Transactor); ok {
		if err := tx.TxAddr(ctx, r.addr, w, buffer); err != nil {
			return err
		}
	} else {
		if err := r.bus.WriteToAddr(ctx, r.addr, w); err != nil {
			return fmt.Errorf("could not select register %#02x: %w", reg, err)
		}
		if err := r.bus.ReadFromAddr(ctx, r.addr, buffer); err != nil {
			return err
		}
	}
	r.dump(ctx, w, buffer)
	return nil
}

func (r *Registers) write(ctx context.Context, w []byte) error {
	if err := r.bus.WriteToAddr(ctx, r.addr, w); err != nil {
		return err
	}
	r.dump(ctx, w, nil)
	return nil
}

func (r *Registers) dump(ctx context.Context, w, rd []byte) {
	if !snsctx.IsVerbose(ctx) {
		return
	}
	r.log.Debug("i2c transfer", "addr", fmt.Sprintf("%#x", r.addr), "write", hex.EncodeToString(w), "read", hex.EncodeToString(rd))
}
