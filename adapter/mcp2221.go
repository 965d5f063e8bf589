package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/airmon"
	"github.com/mklimuk/airmon/snsctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

var _ airmon.I2CBus = &MCP2221{}
var _ hidDevice = &hid.Device{}

var (
	ErrCommandFailed   = errors.New("command failed")
	ErrDeviceNotFound  = errors.New("MCP2221 device not found")
	ErrAmbiguousDevice = errors.New("ambiguous device identification")
)

// MCP2221 commands
const (
	cmdStatusSetParams byte = 0x10
	cmdWriteData       byte = 0x90
	cmdReadData        byte = 0x91
	cmdGetReadData     byte = 0x40
)

const reportSize = 64

// Device is an attached MCP2221 bridge.
type Device struct {
	Index        int    `yaml:"index"`
	Path         string `yaml:"path"`
	Serial       string `yaml:"serial"`
	Manufacturer string `yaml:"manufacturer"`
	Product      string `yaml:"product"`
}

// List returns the attached MCP2221 bridges in enumeration order.
func List() []Device {
	var res []Device
	for i, dev := range hid.Enumerate(VendorID, ProductID) {
		res = append(res, Device{
			Index:        i,
			Path:         dev.Path,
			Serial:       dev.Serial,
			Manufacturer: dev.Manufacturer,
			Product:      dev.Product,
		})
	}
	return res
}

type MCP2221Opts struct {
	// Index selects the bridge when more than one is attached.
	Index        int
	ResponseWait time.Duration
	Logger       *slog.Logger
}

type MCP2221Opt func(*MCP2221Opts)

func WithIndex(i int) MCP2221Opt {
	return func(o *MCP2221Opts) {
		o.Index = i
	}
}

func WithResponseWait(d time.Duration) MCP2221Opt {
	return func(o *MCP2221Opts) {
		o.ResponseWait = d
	}
}

func WithLogger(l *slog.Logger) MCP2221Opt {
	return func(o *MCP2221Opts) {
		o.Logger = l
	}
}

// MCP2221 is a Microchip USB to I2C bridge. Every call opens the HID
// device, exchanges one 64 byte report and closes it again.
type MCP2221 struct {
	mx       sync.Mutex
	config   MCP2221Opts
	request  []byte
	response []byte
	openDev  func() (hidDevice, error)
}

// hidDevice is the part of *hid.Device the bridge talks to.
type hidDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

func NewMCP2221(opts ...MCP2221Opt) *MCP2221 {
	config := MCP2221Opts{
		Index:        -1,
		ResponseWait: 50 * time.Millisecond,
		Logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	d := &MCP2221{
		config:   config,
		request:  make([]byte, reportSize),
		response: make([]byte, reportSize),
	}
	d.openDev = func() (hidDevice, error) {
		dev, err := d.open()
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
	return d
}

// Init checks that the bridge is attached and reachable.
func (d *MCP2221) Init(ctx context.Context) error {
	status, err := d.Status(ctx)
	if err != nil {
		return err
	}
	if status.ReadPending != 0 {
		d.config.Logger.Warn("stale read pending on adapter, releasing bus")
		if _, err := d.ReleaseBus(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.writeData(ctx, address, buffer)
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.readData(ctx, address, buffer)
}

// TxAddr writes w and reads r back while holding the adapter, so no other
// user of the bridge can slip a transfer in between.
func (d *MCP2221) TxAddr(ctx context.Context, address byte, w, r []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.writeData(ctx, address, w); err != nil {
		return fmt.Errorf("could not select register: %w", err)
	}
	return d.readData(ctx, address, r)
}

func (d *MCP2221) writeData(ctx context.Context, address byte, buffer []byte) error {
	d.resetBuffers()
	d.request[0] = cmdWriteData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	// write could not be performed
	if d.response[1] == 0x01 {
		d.config.Logger.Debug("adapter busy")
		return airmon.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) readData(ctx context.Context, address byte, buffer []byte) error {
	d.resetBuffers()
	d.request[0] = cmdReadData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		return airmon.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdGetReadData
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	return readResult(d.response, buffer)
}

func readResult(response, buffer []byte) error {
	if response[1] == 0x41 {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	if response[3] == 127 || int(response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), response[3])
	}
	copy(buffer, response[4:])
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
		25: I2C read pending
	*/
	return &MCP2221Status{
		I2CDataBufferCounter:   int(buffer[13]),
		I2CSpeedDivider:        int(buffer[14]),
		I2CTimeout:             int(buffer[15]),
		ReadPending:            int(buffer[25]),
		CurrentAddress:         hex.EncodeToString(buffer[16:18]),
		LastWriteRequestedSize: binary.LittleEndian.Uint16(buffer[9:11]),
		LastWriteSentSize:      binary.LittleEndian.Uint16(buffer[11:13]),
	}
}

func (d *MCP2221) Release(ctx context.Context) error {
	_, err := d.ReleaseBus(ctx)
	return err
}

// ReleaseBus cancels the current I2C transfer and frees the bus.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[2] = 0x10
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) open() (*hid.Device, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, ErrDeviceNotFound
	}
	idx := d.config.Index
	if idx < 0 {
		if len(devs) > 1 {
			return nil, ErrAmbiguousDevice
		}
		idx = 0
	}
	if idx >= len(devs) {
		return nil, fmt.Errorf("no device with index %d", idx)
	}
	dev, err := devs[idx].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

func (d *MCP2221) send(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dev, err := d.openDev()
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			d.config.Logger.Warn("could not close adapter", "error", err)
		}
	}()
	verbose := snsctx.IsVerbose(ctx)
	if verbose {
		d.config.Logger.Debug("sending message to adapter", "dump", hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	timer := time.NewTimer(d.config.ResponseWait)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		d.config.Logger.Debug("read message from adapter", "dump", hex.Dump(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
