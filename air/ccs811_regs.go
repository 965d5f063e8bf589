package air

import (
	"encoding/binary"
	"errors"
	"strings"
)

// CCS811 register map
const (
	ccs811RegStatus    byte = 0x00
	ccs811RegMeasMode  byte = 0x01
	ccs811RegAlgResult byte = 0x02
	ccs811RegBaseline  byte = 0x11
	ccs811RegHWID      byte = 0x20
	ccs811RegErrorID   byte = 0xE0
	ccs811RegAppStart  byte = 0xF4
	ccs811RegSWReset   byte = 0xFF
)

const ccs811HWID = 0x81

// ccs811ResultSize is the full ALG_RESULT_DATA block length.
const ccs811ResultSize = 8

var ccs811ResetSequence = []byte{0x11, 0xE5, 0x72, 0x8A}

// Status register bits
const (
	statusBitError     = 1 << 0
	statusBitDataReady = 1 << 3
	statusBitAppValid  = 1 << 4
	statusBitFWMode    = 1 << 7
)

// Drive modes. Higher values measure more often and draw more power.
const (
	DriveModeIdle  uint8 = 0
	DriveMode1s    uint8 = 1
	DriveMode10s   uint8 = 2
	DriveMode60s   uint8 = 3
	DriveMode250ms uint8 = 4
)

// Output range of the sensor algorithm.
const (
	MaxECO2 = 8192
	MaxTVOC = 1187
)

var ErrInvalidReadingLength = errors.New("ccs811: result must be 0, 2, 4, 5, 6 or 8 bytes long")

// ErrorFlags is the decoded ERROR_ID register.
type ErrorFlags struct {
	MsgInvalid      bool `yaml:"msg_invalid"`
	ReadRegInvalid  bool `yaml:"read_reg_invalid"`
	MeasModeInvalid bool `yaml:"measmode_invalid"`
	MaxResistance   bool `yaml:"max_resistance"`
	HeaterFault     bool `yaml:"heater_fault"`
	HeaterSupply    bool `yaml:"heater_supply"`
}

func DecodeErrorFlags(b byte) ErrorFlags {
	return ErrorFlags{
		MsgInvalid:      b&(1<<0) != 0,
		ReadRegInvalid:  b&(1<<1) != 0,
		MeasModeInvalid: b&(1<<2) != 0,
		MaxResistance:   b&(1<<3) != 0,
		HeaterFault:     b&(1<<4) != 0,
		HeaterSupply:    b&(1<<5) != 0,
	}
}

// Any reports whether at least one flag is set.
func (e ErrorFlags) Any() bool {
	return e != ErrorFlags{}
}

func (e ErrorFlags) String() string {
	var set []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{e.MsgInvalid, "msg_invalid"},
		{e.ReadRegInvalid, "read_reg_invalid"},
		{e.MeasModeInvalid, "measmode_invalid"},
		{e.MaxResistance, "max_resistance"},
		{e.HeaterFault, "heater_fault"},
		{e.HeaterSupply, "heater_supply"},
	} {
		if f.on {
			set = append(set, f.name)
		}
	}
	if len(set) == 0 {
		return "none"
	}
	return strings.Join(set, ",")
}

// Status is a snapshot of the STATUS register.
type Status struct {
	Error     bool `yaml:"error"`
	DataReady bool `yaml:"data_ready"`
	AppValid  bool `yaml:"app_valid"`
	FWMode    bool `yaml:"fw_mode"`
}

func DecodeStatus(b byte) Status {
	return Status{
		Error:     b&statusBitError != 0,
		DataReady: b&statusBitDataReady != 0,
		AppValid:  b&statusBitAppValid != 0,
		FWMode:    b&statusBitFWMode != 0,
	}
}

// DriveMode is the MEAS_MODE register: drive mode on bits 6:4,
// interrupt enable on bit 3 and threshold interrupt on bit 2.
type DriveMode struct {
	Mode      uint8 `yaml:"drive_mode"`
	Interrupt bool  `yaml:"interrupt"`
	Thresh    bool  `yaml:"thresh"`
}

func DecodeDriveMode(b byte) DriveMode {
	return DriveMode{
		Mode:      (b >> 4) & 0x07,
		Interrupt: (b>>3)&0x01 != 0,
		Thresh:    (b>>2)&0x01 != 0,
	}
}

// Byte encodes the mode into its register value.
func (m DriveMode) Byte() byte {
	b := (m.Mode & 0x07) << 4
	if m.Interrupt {
		b |= 1 << 3
	}
	if m.Thresh {
		b |= 1 << 2
	}
	return b
}

// RawMeasurement is the RAW_DATA word: current through the sensor in µA on
// the upper 6 bits and the ADC voltage reading on the lower 10 bits.
type RawMeasurement struct {
	Current uint8  `yaml:"current"`
	Voltage uint16 `yaml:"voltage"`
}

func DecodeRaw(word uint16) RawMeasurement {
	return RawMeasurement{
		Current: uint8(word >> 10),
		Voltage: word & 0x3FF,
	}
}

// GasReading is a decoded ALG_RESULT_DATA block. The device may return a
// truncated block; a field is only set when its bytes were present.
type GasReading struct {
	ECO2   *uint16         `yaml:"eco2,omitempty"`
	TVOC   *uint16         `yaml:"tvoc,omitempty"`
	Status *Status         `yaml:"status,omitempty"`
	Error  *ErrorFlags     `yaml:"error,omitempty"`
	Raw    *RawMeasurement `yaml:"raw,omitempty"`
}

// DecodeReading decodes the first n bytes of a result block.
func DecodeReading(b []byte) (GasReading, error) {
	var r GasReading
	switch len(b) {
	case 0, 2, 4, 5, 6, 8:
	default:
		return r, ErrInvalidReadingLength
	}
	if len(b) >= 2 {
		v := binary.BigEndian.Uint16(b[0:2])
		r.ECO2 = &v
	}
	if len(b) >= 4 {
		v := binary.BigEndian.Uint16(b[2:4])
		r.TVOC = &v
	}
	if len(b) >= 5 {
		v := DecodeStatus(b[4])
		r.Status = &v
	}
	if len(b) >= 6 {
		v := DecodeErrorFlags(b[5])
		r.Error = &v
	}
	if len(b) == 8 {
		v := DecodeRaw(binary.BigEndian.Uint16(b[6:8]))
		r.Raw = &v
	}
	return r, nil
}

// InRange reports whether both concentrations are present and within the
// sensor's output range.
func (r GasReading) InRange() bool {
	if r.ECO2 == nil || r.TVOC == nil {
		return false
	}
	return *r.ECO2 <= MaxECO2 && *r.TVOC <= MaxTVOC
}
