package calib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/airmon/air"
)

var (
	_ air.BaselineStore = &History{}
	_ air.BaselineStore = &FileStore{}
)

func TestHistory_DropsOldest(t *testing.T) {
	h := NewHistory(3)
	values, err := h.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, values)

	for v := range uint16(5) {
		require.NoError(t, h.Append(v+1))
	}
	values, err = h.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []uint16{3, 4, 5}, values)
}

func TestHistory_Initial(t *testing.T) {
	h := NewHistory(2, 10, 20, 30)
	values, _ := h.ReadAll()
	assert.Equal(t, []uint16{20, 30}, values)

	values[0] = 99
	again, _ := h.ReadAll()
	assert.Equal(t, []uint16{20, 30}, again, "ReadAll must return a copy")

	assert.Equal(t, DefaultMaxKeep, NewHistory(0).max)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "baseline"), 0x5A, 3)
	assert.Equal(t, filepath.Join(dir, "baseline.0x5a"), s.Path())

	values, err := s.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, values, "missing file is an empty history")

	for _, v := range []uint16{100, 200, 300, 400} {
		require.NoError(t, s.Append(v))
	}
	values, err = s.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []uint16{200, 300, 400}, values)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "200\n300\n400\n", string(raw))

	other := NewFileStore(filepath.Join(dir, "baseline"), 0x5B, 3)
	values, err = other.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, values, "addresses are stored separately")
}

func TestFileStore_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.0x5b")
	require.NoError(t, os.WriteFile(path, []byte("1\n\n2\n 3 \n4\n"), 0o644))

	s := NewFileStore(filepath.Join(dir, "baseline"), 0x5B, 2)
	values, err := s.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []uint16{3, 4}, values, "cap applies to existing files")
}

func TestFileStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.0x5a")
	require.NoError(t, os.WriteFile(path, []byte("12\nabc\n"), 0o644))

	s := NewFileStore(filepath.Join(dir, "baseline"), 0x5A, 30)
	_, err := s.ReadAll()
	assert.ErrorContains(t, err, "baseline.0x5a:2")
	assert.Error(t, s.Append(5))

	require.NoError(t, os.WriteFile(path, []byte("70000\n"), 0o644))
	_, err = s.ReadAll()
	assert.Error(t, err, "values must fit 16 bits")
}
