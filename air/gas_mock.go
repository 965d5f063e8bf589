package air

import (
	"context"
	"sync"
)

// GasBehaviorFunc produces one poll result of a mocked gas sensor.
type GasBehaviorFunc func(ctx context.Context) (GasReading, bool, error)

// MockGasSensor is a mock CCS811 session that uses a behavior function to
// produce poll results without requiring hardware. Mode switches and
// baselines are kept in memory.
type MockGasSensor struct {
	mx       sync.Mutex
	addr     byte
	behavior GasBehaviorFunc
	mode     DriveMode
	baseline uint16
	polls    int

	// StartAppErr is returned by StartApp when set.
	StartAppErr error
	// NotDevice makes IsDevice report a foreign chip.
	NotDevice bool
}

// NewMockGasSensor creates a mock at addr with the given behavior.
//
// Example usage:
//
//	eco2, tvoc := uint16(400), uint16(12)
//	sensor := NewMockGasSensor(CCS811AddrLow, func(ctx context.Context) (GasReading, bool, error) {
//		return GasReading{ECO2: &eco2, TVOC: &tvoc}, true, nil
//	})
func NewMockGasSensor(addr byte, behavior GasBehaviorFunc) *MockGasSensor {
	return &MockGasSensor{addr: addr, behavior: behavior}
}

func (m *MockGasSensor) Addr() byte {
	return m.addr
}

func (m *MockGasSensor) IsDevice(ctx context.Context) (bool, error) {
	return !m.NotDevice, ctx.Err()
}

func (m *MockGasSensor) StartApp(ctx context.Context, maxTries int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.StartAppErr
}

func (m *MockGasSensor) SwitchMode(ctx context.Context, target DriveMode) error {
	if target.Mode > 7 {
		return ErrInvalidDriveMode
	}
	m.mx.Lock()
	m.mode = target
	m.mx.Unlock()
	return ctx.Err()
}

// CurrentMode returns the last mode set by SwitchMode.
func (m *MockGasSensor) CurrentMode() DriveMode {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.mode
}

// PollOnce calls the behavior function.
func (m *MockGasSensor) PollOnce(ctx context.Context) (GasReading, bool, error) {
	m.mx.Lock()
	m.polls++
	m.mx.Unlock()
	return m.behavior(ctx)
}

// Polls returns how many times PollOnce was called.
func (m *MockGasSensor) Polls() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.polls
}

func (m *MockGasSensor) SetBaseline(v uint16) {
	m.mx.Lock()
	m.baseline = v
	m.mx.Unlock()
}

func (m *MockGasSensor) CurrentBaseline() uint16 {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.baseline
}

func (m *MockGasSensor) LoadBaseline(ctx context.Context, store BaselineStore) (uint16, bool, error) {
	history, err := store.ReadAll()
	if err != nil {
		return 0, false, err
	}
	if len(history) == 0 {
		return 0, false, nil
	}
	v := history[len(history)-1]
	m.SetBaseline(v)
	return v, true, nil
}

func (m *MockGasSensor) SaveBaseline(ctx context.Context, store BaselineStore) (uint16, error) {
	v := m.CurrentBaseline()
	return v, store.Append(v)
}
