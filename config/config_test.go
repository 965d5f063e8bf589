package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
log: {level: debug}
lock_dir: /run/airmon
gas:
  - address: 0x5a
    adapter: generic
    bus: /dev/i2c-1
    mode: 1
    start_tries: 50
    poll_interval: 2s
    report_interval: 60s
    status_file: /tmp/tvoc.0x5a.txt
    baseline: {prefix: /var/lib/airmon/baseline, max_keep: 10, save_interval: 12h}
  - address: 0x5b
    adapter: gobot
    board: nanopi
    bus_number: 0
particulate:
  port: /dev/ttyS1
  baud: 9600
  max_unsynced_bytes: 2048
  status_file: /tmp/pm25.txt
influx: {url: "http://localhost:8086", token: t, org: home, bucket: air}
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, c.LogLevel())
	assert.Equal(t, "/run/airmon", c.LockDir)
	require.Len(t, c.Gas, 2)

	g := c.Gas[0]
	assert.Equal(t, uint8(0x5A), g.Address)
	assert.Equal(t, uint8(1), g.DriveMode())
	assert.Equal(t, 50, g.StartTries)
	assert.Equal(t, 2*time.Second, g.PollInterval)
	assert.Equal(t, time.Minute, g.ReportInterval)
	assert.Equal(t, BaselineConfig{Prefix: "/var/lib/airmon/baseline", MaxKeep: 10, SaveInterval: 12 * time.Hour}, g.Baseline)

	g = c.Gas[1]
	assert.Equal(t, AdapterGobot, g.Adapter)
	assert.Equal(t, "nanopi", g.Board)
	assert.Equal(t, 0, g.BusNumber)
	assert.Equal(t, 100, g.StartTries)
	assert.Equal(t, 10*time.Minute, g.Cooldown)
	assert.Equal(t, BaselineConfig{Prefix: "baseline", MaxKeep: 30, SaveInterval: 24 * time.Hour}, g.Baseline)

	require.NotNil(t, c.Particulate)
	assert.Equal(t, "/dev/ttyS1", c.Particulate.Port)
	assert.Equal(t, 2048, c.Particulate.MaxUnsyncedBytes)
	assert.Equal(t, time.Minute, c.Particulate.ReportInterval)
	assert.Equal(t, time.Second, c.Particulate.ReopenDelay)
	assert.True(t, c.Influx.Enabled())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{"no sensors", `log: {level: info}`, "no sensors configured"},
		{"bad log level", "log: {level: loud}\nparticulate: {}", `invalid log level "loud"`},
		{"bad address", "gas: [{address: 0x5c}]", "not a CCS811 address"},
		{"duplicate address", "gas: [{address: 0x5a}, {address: 0x5a}]", "configured twice"},
		{"bad adapter", "gas: [{address: 0x5a, adapter: spi}]", `unknown adapter "spi"`},
		{"bad mode", "gas: [{address: 0x5a, mode: 5}]", "drive mode 5 out of range"},
		{"idle mode is allowed", "gas: [{address: 0x5a, mode: 0}, {address: 0x5b, mode: 9}]", "gas[1]: drive mode 9"},
		{"negative interval", "gas: [{address: 0x5a, poll_interval: -1s}]", "intervals must be positive"},
		{"bad max keep", "gas: [{address: 0x5a, baseline: {max_keep: -1}}]", "max_keep must be at least 1"},
		{"bad baud", "particulate: {baud: -9600}", "invalid baud rate"},
		{"unknown field", "gas: [{address: 0x5a, adress: 1}]", "adress"},
		{"address overflow", "gas: [{address: 0x15a}]", "config:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestParse_Minimal(t *testing.T) {
	c, err := Parse([]byte("gas: [{address: 0x5b}]"))
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, c.LogLevel())
	assert.Equal(t, os.TempDir(), c.LockDir)
	assert.Nil(t, c.Particulate)
	assert.False(t, c.Influx.Enabled())
	assert.Equal(t, AdapterGeneric, c.Gas[0].Adapter)
	assert.Equal(t, "/dev/i2c-1", c.Gas[0].Bus)
	assert.Equal(t, uint8(1), c.Gas[0].DriveMode())
	assert.Empty(t, c.Gas[0].Board)
	assert.Equal(t, 0, c.Gas[0].BusNumber)
}

func TestParse_AdapterDefaults(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		board     string
		busNumber int
	}{
		{"mcp2221 only bridge", "gas:\n  - address: 0x5a\n    adapter: mcp2221\n", "", 0},
		{"mcp2221 second bridge", "gas:\n  - address: 0x5a\n    adapter: mcp2221\n    bus_number: 2\n", "", 2},
		{"gobot", "gas:\n  - address: 0x5a\n    adapter: gobot\n", "raspi", 1},
		{"gobot nanopi", "gas:\n  - address: 0x5a\n    adapter: gobot\n    board: nanopi\n", "nanopi", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			require.Len(t, c.Gas, 1)
			assert.Equal(t, tt.board, c.Gas[0].Board)
			assert.Equal(t, tt.busNumber, c.Gas[0].BusNumber)
		})
	}
}

func TestLoad_Example(t *testing.T) {
	c, err := Load(filepath.Join("..", "airmon.example.yaml"))
	require.NoError(t, err)
	require.Len(t, c.Gas, 1)
	assert.Equal(t, "/tmp/tvoc.0x5a.txt", c.Gas[0].StatusFile)
	assert.Equal(t, 10*time.Minute, c.Gas[0].Cooldown)
	require.NotNil(t, c.Particulate)
	assert.False(t, c.Influx.Enabled())
}
