package air

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/airmon"
)

// CCS811 I2C addresses, selected by the ADDR pin.
const (
	CCS811AddrLow  byte = 0x5A
	CCS811AddrHigh byte = 0x5B
)

// DefaultCooldown is how long the heater stays idle before the sensor is
// put back into an equal or higher drive mode.
const DefaultCooldown = 10 * time.Minute

var (
	// ErrNoValidApplication means the firmware has no valid application
	// image. Only a reflash recovers the device.
	ErrNoValidApplication = errors.New("ccs811: no valid application firmware")
	// ErrAppStartTimeout means the application did not start within the
	// allowed number of tries.
	ErrAppStartTimeout  = errors.New("ccs811: application did not start")
	ErrInvalidDriveMode = errors.New("ccs811: drive mode out of range")
)

// DeviceFault carries the ERROR_ID flags reported by the device. It is
// recoverable: reading the register clears it.
type DeviceFault struct {
	Addr  byte
	Flags ErrorFlags
}

func (e *DeviceFault) Error() string {
	return fmt.Sprintf("ccs811 %#x: device fault: %s", e.Addr, e.Flags)
}

// BaselineStore keeps the calibration history of one device, newest last.
type BaselineStore interface {
	Append(value uint16) error
	ReadAll() ([]uint16, error)
}

type CCS811Opts struct {
	Cooldown     time.Duration
	CommandDelay time.Duration
	Logger       *slog.Logger
}

type CCS811Opt func(*CCS811Opts)

func WithCooldown(d time.Duration) CCS811Opt {
	return func(o *CCS811Opts) {
		o.Cooldown = d
	}
}

func WithCommandDelay(d time.Duration) CCS811Opt {
	return func(o *CCS811Opts) {
		o.CommandDelay = d
	}
}

func WithLogger(l *slog.Logger) CCS811Opt {
	return func(o *CCS811Opts) {
		o.Logger = l
	}
}

// CCS811 represents ams CCS811 eCO2/TVOC gas sensor session.
// Typical usage:
//
//	s := NewCCS811(bus, CCS811AddrLow)
//	err := s.StartApp(ctx, 100)
//	err = s.SwitchMode(ctx, DriveMode{Mode: DriveMode1s})
//	r, ok, err := s.PollOnce(ctx)
//
// Only one session may drive a given address at a time.
type CCS811 struct {
	mx     sync.Mutex
	config CCS811Opts
	log    *slog.Logger

	transport airmon.RegisterBus
	addr      byte
	buf       []byte
}

func NewCCS811(transport airmon.RegisterBus, addr byte, opts ...CCS811Opt) *CCS811 {
	config := CCS811Opts{
		Cooldown:     DefaultCooldown,
		CommandDelay: 50 * time.Millisecond,
		Logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &CCS811{
		config:    config,
		log:       config.Logger.With("sensor", "ccs811", "addr", fmt.Sprintf("%#x", addr)),
		transport: transport,
		addr:      addr,
		buf:       make([]byte, ccs811ResultSize),
	}
}

func (s *CCS811) Addr() byte {
	return s.addr
}

// IsDevice checks the hardware ID register.
func (s *CCS811) IsDevice(ctx context.Context) (bool, error) {
	id, err := s.readByte(ctx, "read hw id", ccs811RegHWID)
	if err != nil {
		return false, err
	}
	return id == ccs811HWID, nil
}

// Reset performs a software reset and waits for the device to boot.
func (s *CCS811) Reset(ctx context.Context) error {
	s.mx.Lock()
	err := s.transport.WriteBlockData(ctx, ccs811RegSWReset, ccs811ResetSequence)
	s.mx.Unlock()
	if err != nil {
		return &airmon.TransportError{Op: "ccs811 reset", Reg: ccs811RegSWReset, HasReg: true, Err: err}
	}
	return wait(ctx, s.config.CommandDelay)
}

func (s *CCS811) Status(ctx context.Context) (Status, error) {
	b, err := s.readByte(ctx, "read status", ccs811RegStatus)
	if err != nil {
		return Status{}, err
	}
	return DecodeStatus(b), nil
}

// ReadError reads ERROR_ID, which also clears the error bit in STATUS.
func (s *CCS811) ReadError(ctx context.Context) (ErrorFlags, error) {
	b, err := s.readByte(ctx, "read error", ccs811RegErrorID)
	if err != nil {
		return ErrorFlags{}, err
	}
	return DecodeErrorFlags(b), nil
}

func (s *CCS811) Mode(ctx context.Context) (DriveMode, error) {
	b, err := s.readByte(ctx, "read mode", ccs811RegMeasMode)
	if err != nil {
		return DriveMode{}, err
	}
	return DecodeDriveMode(b), nil
}

// StartApp moves the firmware from boot to application mode. It polls
// STATUS up to maxTries times (0 means no limit). Device errors seen on the
// way are read, which clears them, and logged. Returns nil right away if
// the application is already running.
func (s *CCS811) StartApp(ctx context.Context, maxTries int) error {
	tries := 0
	for maxTries <= 0 || tries < maxTries {
		tries++
		if err := ctx.Err(); err != nil {
			return err
		}
		status, err := s.Status(ctx)
		if err != nil {
			return err
		}
		switch {
		case status.Error:
			flags, err := s.ReadError(ctx)
			if err != nil {
				return err
			}
			s.log.Warn("device error while starting app", "flags", flags, "try", tries)
		case !status.AppValid:
			return ErrNoValidApplication
		case status.FWMode:
			s.log.Debug("app running", "tries", tries)
			return nil
		default:
			s.mx.Lock()
			err := s.transport.WriteCommand(ctx, ccs811RegAppStart)
			s.mx.Unlock()
			if err != nil {
				return &airmon.TransportError{Op: "ccs811 app start", Reg: ccs811RegAppStart, HasReg: true, Err: err}
			}
			if err := wait(ctx, s.config.CommandDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w after %d tries", ErrAppStartTimeout, tries)
}

// SwitchMode applies target unless the device already runs it. Going from a
// non-idle mode to an equal or higher one first idles the heater for the
// cooldown period. The wait ends early, leaving the device idle, when ctx
// is cancelled.
func (s *CCS811) SwitchMode(ctx context.Context, target DriveMode) error {
	if target.Mode > 7 {
		return fmt.Errorf("%w: %d", ErrInvalidDriveMode, target.Mode)
	}
	current, err := s.Mode(ctx)
	if err != nil {
		return err
	}
	if current == target {
		return nil
	}
	if current.Mode != DriveModeIdle && current.Mode <= target.Mode {
		s.log.Info("idling heater before mode switch", "from", current.Mode, "to", target.Mode, "cooldown", s.config.Cooldown)
		if err := s.setMode(ctx, DriveMode{Mode: DriveModeIdle}); err != nil {
			return err
		}
		if err := wait(ctx, s.config.Cooldown); err != nil {
			return fmt.Errorf("ccs811: cooldown interrupted: %w", err)
		}
	}
	if err := s.setMode(ctx, target); err != nil {
		return err
	}
	s.log.Info("drive mode set", "mode", target.Mode, "interrupt", target.Interrupt, "thresh", target.Thresh)
	return nil
}

func (s *CCS811) setMode(ctx context.Context, m DriveMode) error {
	s.mx.Lock()
	err := s.transport.WriteByteData(ctx, ccs811RegMeasMode, m.Byte())
	s.mx.Unlock()
	if err != nil {
		return &airmon.TransportError{Op: "ccs811 write mode", Reg: ccs811RegMeasMode, HasReg: true, Err: err}
	}
	return nil
}

// Result reads the full result block.
func (s *CCS811) Result(ctx context.Context) (GasReading, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.transport.ReadBlockData(ctx, ccs811RegAlgResult, s.buf); err != nil {
		return GasReading{}, &airmon.TransportError{Op: "ccs811 read result", Reg: ccs811RegAlgResult, HasReg: true, Err: err}
	}
	return DecodeReading(s.buf)
}

// PollOnce checks STATUS once. It returns the reading when new data is
// ready, ok=false when there is nothing yet, and a *DeviceFault when the
// device flagged an error.
func (s *CCS811) PollOnce(ctx context.Context) (GasReading, bool, error) {
	status, err := s.Status(ctx)
	if err != nil {
		return GasReading{}, false, err
	}
	if status.Error {
		flags, err := s.ReadError(ctx)
		if err != nil {
			return GasReading{}, false, err
		}
		s.log.Warn("device fault", "flags", flags)
		return GasReading{}, false, &DeviceFault{Addr: s.addr, Flags: flags}
	}
	if !status.DataReady {
		return GasReading{}, false, nil
	}
	r, err := s.Result(ctx)
	if err != nil {
		return GasReading{}, false, err
	}
	return r, true, nil
}

func (s *CCS811) Baseline(ctx context.Context) (uint16, error) {
	s.mx.Lock()
	v, err := s.transport.ReadWordData(ctx, ccs811RegBaseline)
	s.mx.Unlock()
	if err != nil {
		return 0, &airmon.TransportError{Op: "ccs811 read baseline", Reg: ccs811RegBaseline, HasReg: true, Err: err}
	}
	return v, nil
}

func (s *CCS811) SetBaseline(ctx context.Context, v uint16) error {
	s.mx.Lock()
	err := s.transport.WriteWordData(ctx, ccs811RegBaseline, v)
	s.mx.Unlock()
	if err != nil {
		return &airmon.TransportError{Op: "ccs811 write baseline", Reg: ccs811RegBaseline, HasReg: true, Err: err}
	}
	return nil
}

// LoadBaseline applies the newest stored baseline. It reports false and
// leaves the device untouched when the history is empty.
func (s *CCS811) LoadBaseline(ctx context.Context, store BaselineStore) (uint16, bool, error) {
	history, err := store.ReadAll()
	if err != nil {
		return 0, false, fmt.Errorf("ccs811: could not read baseline history: %w", err)
	}
	if len(history) == 0 {
		return 0, false, nil
	}
	v := history[len(history)-1]
	if err := s.SetBaseline(ctx, v); err != nil {
		return 0, false, err
	}
	s.log.Info("baseline restored", "baseline", fmt.Sprintf("%#04x", v))
	return v, true, nil
}

// SaveBaseline reads the current baseline and appends it to the history.
func (s *CCS811) SaveBaseline(ctx context.Context, store BaselineStore) (uint16, error) {
	v, err := s.Baseline(ctx)
	if err != nil {
		return 0, err
	}
	if err := store.Append(v); err != nil {
		return 0, fmt.Errorf("ccs811: could not store baseline: %w", err)
	}
	s.log.Info("baseline saved", "baseline", fmt.Sprintf("%#04x", v))
	return v, nil
}

func (s *CCS811) readByte(ctx context.Context, op string, reg byte) (byte, error) {
	s.mx.Lock()
	b, err := s.transport.ReadByteData(ctx, reg)
	s.mx.Unlock()
	if err != nil {
		return 0, &airmon.TransportError{Op: "ccs811 " + op, Reg: reg, HasReg: true, Err: err}
	}
	return b, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
