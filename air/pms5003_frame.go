package air

import "encoding/binary"

// PMS5003 frame layout:
//
//	0x42 0x4D | length (0x001C) | 13 x uint16 data | uint16 checksum
//
// All words are big-endian. The checksum is the sum of the 30 preceding
// bytes truncated to 16 bits.
const (
	FrameLength    = 32
	FrameValues    = 13
	frameHeaderLen = 4
	frameSumOffset = FrameLength - 2
)

var frameHeader = [frameHeaderLen]byte{0x42, 0x4D, 0x00, 0x1C}

// Frame is one complete PMS5003 message.
type Frame [FrameLength]byte

// ValidFrame reports whether b is exactly one well formed frame.
func ValidFrame(b []byte) bool {
	if len(b) != FrameLength {
		return false
	}
	for i, h := range frameHeader {
		if b[i] != h {
			return false
		}
	}
	return frameChecksum(b[:frameSumOffset]) == binary.BigEndian.Uint16(b[frameSumOffset:])
}

func frameChecksum(b []byte) uint16 {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	return sum
}

// ParticulateReading holds the 13 data words of a frame in wire order.
// Concentrations are in µg/m³, particle counts per 0.1 L of air.
type ParticulateReading [FrameValues]uint16

// DecodeFrameValues extracts the data words at offsets 4, 6, ..., 28.
func DecodeFrameValues(f Frame) ParticulateReading {
	var r ParticulateReading
	for i := range r {
		off := frameHeaderLen + 2*i
		r[i] = binary.BigEndian.Uint16(f[off : off+2])
	}
	return r
}

// Standard particle (CF=1) concentrations.
func (r ParticulateReading) PM1Standard() uint16  { return r[0] }
func (r ParticulateReading) PM25Standard() uint16 { return r[1] }
func (r ParticulateReading) PM10Standard() uint16 { return r[2] }

// Atmospheric environment concentrations.
func (r ParticulateReading) PM1() uint16  { return r[3] }
func (r ParticulateReading) PM25() uint16 { return r[4] }
func (r ParticulateReading) PM10() uint16 { return r[5] }

// Particles beyond the given diameter per 0.1 L.
func (r ParticulateReading) Particles03() uint16  { return r[6] }
func (r ParticulateReading) Particles05() uint16  { return r[7] }
func (r ParticulateReading) Particles10() uint16  { return r[8] }
func (r ParticulateReading) Particles25() uint16  { return r[9] }
func (r ParticulateReading) Particles50() uint16  { return r[10] }
func (r ParticulateReading) Particles100() uint16 { return r[11] }

// ParticulateFieldNames names the words of a reading in frame order.
var ParticulateFieldNames = [FrameValues]string{
	"pm1_std", "pm25_std", "pm10_std",
	"pm1", "pm25", "pm10",
	"n03", "n05", "n10", "n25", "n50", "n100",
	"reserved",
}
