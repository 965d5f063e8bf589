package uart

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chunk struct {
	data []byte
	err  error
}

// scriptedLine returns its chunks in order, then empty reads.
type scriptedLine struct {
	chunks []chunk
	reads  int
	closed bool
}

func (s *scriptedLine) Read(b []byte) (int, error) {
	s.reads++
	if len(s.chunks) == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return copy(b, c.data), c.err
}

func (s *scriptedLine) Close() error {
	s.closed = true
	return nil
}

func TestPort_RetriesEmptyReads(t *testing.T) {
	line := &scriptedLine{chunks: []chunk{
		{data: []byte{0x42}},
		{},
		{err: io.EOF},
		{data: []byte{0x4D, 0x00}},
	}}
	p := NewPort(line, time.Second)

	var got []byte
	for range 3 {
		b, err := p.ReadByte()
		require.NoError(t, err)
		got = append(got, b)
	}
	assert.Equal(t, []byte{0x42, 0x4D, 0x00}, got)
	assert.Equal(t, 4, line.reads)

	require.NoError(t, p.Close())
	assert.True(t, line.closed)
}

func TestPort_Quiet(t *testing.T) {
	p := NewPort(&scriptedLine{}, 20*time.Millisecond)
	start := time.Now()
	_, err := p.ReadByte()
	assert.ErrorIs(t, err, ErrQuiet)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPort_ReadError(t *testing.T) {
	broken := errors.New("device removed")
	p := NewPort(&scriptedLine{chunks: []chunk{{err: broken}}}, time.Second)
	_, err := p.ReadByte()
	assert.ErrorIs(t, err, broken)
}

func TestConfig_Defaults(t *testing.T) {
	c := Config{Name: "/dev/ttyAMA0"}.withDefaults()
	assert.Equal(t, 9600, c.Baud)
	assert.Equal(t, 100*time.Millisecond, c.ReadTimeout)
	assert.Equal(t, 10*time.Second, c.QuietTimeout)
}
