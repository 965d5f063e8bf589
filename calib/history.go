package calib

import "sync"

// DefaultMaxKeep is the number of baselines kept per device.
const DefaultMaxKeep = 30

// History is a bounded list of baselines, newest last. Appending to a full
// history drops the oldest value.
type History struct {
	mx     sync.Mutex
	max    int
	values []uint16
}

// NewHistory returns an empty history holding at most max values. A
// non-positive max falls back to DefaultMaxKeep.
func NewHistory(max int, values ...uint16) *History {
	if max <= 0 {
		max = DefaultMaxKeep
	}
	h := &History{max: max}
	for _, v := range values {
		h.push(v)
	}
	return h
}

func (h *History) Append(v uint16) error {
	h.mx.Lock()
	defer h.mx.Unlock()
	h.push(v)
	return nil
}

func (h *History) push(v uint16) {
	h.values = append(h.values, v)
	if over := len(h.values) - h.max; over > 0 {
		h.values = append(h.values[:0], h.values[over:]...)
	}
}

// ReadAll returns a copy of the stored values, oldest first.
func (h *History) ReadAll() ([]uint16, error) {
	h.mx.Lock()
	defer h.mx.Unlock()
	return append([]uint16(nil), h.values...), nil
}
