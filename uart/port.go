package uart

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// ErrQuiet means the line carried no data for longer than the quiet timeout.
var ErrQuiet = errors.New("uart: no data received")

type Config struct {
	Name string
	Baud int
	// ReadTimeout bounds a single read on the device.
	ReadTimeout time.Duration
	// QuietTimeout is how long empty reads are retried before ErrQuiet.
	QuietTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Baud == 0 {
		c.Baud = 9600
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 100 * time.Millisecond
	}
	if c.QuietTimeout == 0 {
		c.QuietTimeout = 10 * time.Second
	}
	return c
}

// Port is a buffered serial line read one byte at a time.
type Port struct {
	rc    io.ReadCloser
	quiet time.Duration
	buf   []byte
	start int
	end   int
}

func Open(c Config) (*Port, error) {
	c = c.withDefaults()
	p, err := serial.OpenPort(&serial.Config{
		Name:        c.Name,
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("uart: could not open %s: %w", c.Name, err)
	}
	return NewPort(p, c.QuietTimeout), nil
}

// NewPort reads from rc. Reads returning no data, with or without io.EOF,
// are retried for up to quiet.
func NewPort(rc io.ReadCloser, quiet time.Duration) *Port {
	return &Port{rc: rc, quiet: quiet, buf: make([]byte, 64)}
}

func (p *Port) ReadByte() (byte, error) {
	if p.start == p.end {
		if err := p.fill(); err != nil {
			return 0, err
		}
	}
	b := p.buf[p.start]
	p.start++
	return b, nil
}

func (p *Port) fill() error {
	deadline := time.Now().Add(p.quiet)
	for {
		n, err := p.rc.Read(p.buf)
		if n > 0 {
			p.start, p.end = 0, n
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("uart: read failed: %w", err)
		}
		if time.Now().After(deadline) {
			return ErrQuiet
		}
	}
}

func (p *Port) Close() error {
	return p.rc.Close()
}
