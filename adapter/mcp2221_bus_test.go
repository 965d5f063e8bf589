package adapter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/airmon"
	"github.com/mklimuk/airmon/i2c"
)

// fakeBridge emulates the single I2C engine of an MCP2221. A read returns
// the address being read and the register selected by the last write,
// whichever device that write went to.
type fakeBridge struct {
	mx       sync.Mutex
	open     atomic.Int32
	overlaps atomic.Int32
	busy     bool
	lastReg  byte
	pending  byte
	length   int
	request  []byte
}

func (b *fakeBridge) openDev() (hidDevice, error) {
	if b.open.Add(1) > 1 {
		b.overlaps.Add(1)
	}
	return &fakeHID{bridge: b}, nil
}

type fakeHID struct {
	bridge *fakeBridge
}

func (h *fakeHID) Write(p []byte) (int, error) {
	h.bridge.mx.Lock()
	defer h.bridge.mx.Unlock()
	h.bridge.request = append(h.bridge.request[:0], p...)
	return len(p), nil
}

func (h *fakeHID) Read(p []byte) (int, error) {
	b := h.bridge
	b.mx.Lock()
	defer b.mx.Unlock()
	clear(p)
	p[0] = b.request[0]
	switch b.request[0] {
	case cmdWriteData:
		if b.busy {
			p[1] = 0x01
			break
		}
		b.lastReg = b.request[4]
	case cmdReadData:
		b.pending = b.request[3] >> 1
		b.length = int(b.request[1])
	case cmdGetReadData:
		p[3] = byte(b.length)
		p[4], p[5] = b.pending, b.lastReg
	}
	return len(p), nil
}

func (h *fakeHID) Close() error {
	h.bridge.open.Add(-1)
	return nil
}

func newFakeMCP2221(b *fakeBridge) *MCP2221 {
	d := NewMCP2221(WithResponseWait(0))
	d.openDev = b.openDev
	return d
}

func TestMCP2221_SharedBetweenDevices(t *testing.T) {
	bridge := &fakeBridge{}
	d := newFakeMCP2221(bridge)
	ctx := context.Background()

	devices := []struct {
		addr byte
		reg  byte
	}{
		{0x5a, 0x02},
		{0x5b, 0x20},
	}
	var wg sync.WaitGroup
	for _, dev := range devices {
		regs := i2c.NewRegisters(d, dev.addr)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				assert.NoError(t, regs.WriteByteData(ctx, 0x01, 0x10))
				buf := make([]byte, 2)
				if !assert.NoError(t, regs.ReadBlockData(ctx, dev.reg, buf)) {
					return
				}
				if !assert.Equal(t, []byte{dev.addr, dev.reg}, buf, "read %d from %#x", i, dev.addr) {
					return
				}
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, bridge.overlaps.Load())
}

func TestMCP2221_TxAddr(t *testing.T) {
	bridge := &fakeBridge{}
	d := newFakeMCP2221(bridge)

	buf := make([]byte, 2)
	require.NoError(t, d.TxAddr(context.Background(), 0x5a, []byte{0x06}, buf))
	assert.Equal(t, []byte{0x5a, 0x06}, buf)

	bridge.busy = true
	err := d.TxAddr(context.Background(), 0x5a, []byte{0x06}, buf)
	assert.ErrorIs(t, err, airmon.ErrBusBusy)
}
