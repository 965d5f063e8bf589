package air

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mklimuk/airmon"
)

// DefaultMaxUnsyncedBytes is the number of bytes the reader accepts without
// a valid frame before giving up on the stream. The sensor sends a frame
// at least every 2.3 s at 9600 baud, so 1024 bytes spans several frames.
const DefaultMaxUnsyncedBytes = 1024

// FramingFault means the byte stream never resynchronised: wrong baud rate,
// wiring fault or a dead sensor. The source should be reopened.
type FramingFault struct {
	Consumed int
}

func (e *FramingFault) Error() string {
	return fmt.Sprintf("pms5003: %d bytes read without a valid frame", e.Consumed)
}

type PMS5003Opts struct {
	Logger *slog.Logger
}

type PMS5003Opt func(*PMS5003Opts)

func WithPMS5003Logger(l *slog.Logger) PMS5003Opt {
	return func(o *PMS5003Opts) {
		o.Logger = l
	}
}

// PMS5003 reads Plantower PMS5003 frames from a serial byte stream.
// Typical usage:
//
//	s := NewPMS5003(port)
//	for {
//		r, err := s.NextReading(ctx, DefaultMaxUnsyncedBytes)
//		...
//	}
type PMS5003 struct {
	src    io.ByteReader
	sync   FrameSync
	config PMS5003Opts
}

func NewPMS5003(src io.ByteReader, opts ...PMS5003Opt) *PMS5003 {
	config := PMS5003Opts{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&config)
	}
	return &PMS5003{src: src, config: config}
}

// NextReading blocks until the next valid frame and returns its values.
// It fails with *FramingFault once maxUnsynced bytes were consumed without
// a frame (0 disables the limit) and with *airmon.TransportError when the
// source fails. Both end the session.
func (s *PMS5003) NextReading(ctx context.Context, maxUnsynced int) (ParticulateReading, error) {
	for {
		if err := ctx.Err(); err != nil {
			return ParticulateReading{}, err
		}
		b, err := s.src.ReadByte()
		if err != nil {
			return ParticulateReading{}, &airmon.TransportError{Op: "pms5003 read byte", Err: err}
		}
		if frame, ok := s.sync.Push(b); ok {
			r := DecodeFrameValues(frame)
			s.config.Logger.Debug("pms5003 frame", "pm25", r.PM25(), "pm10", r.PM10())
			return r, nil
		}
		if s.sync.Stalled(maxUnsynced) {
			return ParticulateReading{}, &FramingFault{Consumed: s.sync.Unsynced()}
		}
	}
}
