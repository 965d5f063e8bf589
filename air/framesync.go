package air

// FrameSync finds PMS5003 frames in a byte stream. It keeps the last
// FrameLength bytes in a ring and tests the whole window after every byte,
// so a misaligned or corrupted window slides forward by exactly one byte.
// The zero value is ready to use.
type FrameSync struct {
	ring     [FrameLength]byte
	next     int // index of the oldest byte, overwritten by the next Push
	unsynced int
}

// Push appends b and returns the frame completed by it, if any.
func (s *FrameSync) Push(b byte) (Frame, bool) {
	s.ring[s.next] = b
	s.next = (s.next + 1) % FrameLength

	var window Frame
	n := copy(window[:], s.ring[s.next:])
	copy(window[n:], s.ring[:s.next])

	if !ValidFrame(window[:]) {
		s.unsynced++
		return Frame{}, false
	}
	s.unsynced = 0
	return window, true
}

// Stalled reports whether maxBytes bytes were pushed since the last valid
// frame. A zero maxBytes disables the check.
func (s *FrameSync) Stalled(maxBytes int) bool {
	return maxBytes > 0 && s.unsynced >= maxBytes
}

// Unsynced returns the number of bytes pushed since the last valid frame.
func (s *FrameSync) Unsynced() int {
	return s.unsynced
}
