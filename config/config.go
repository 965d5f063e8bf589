package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Adapter kinds
const (
	AdapterGeneric = "generic"
	AdapterGobot   = "gobot"
	AdapterMCP2221 = "mcp2221"
)

type Config struct {
	Log         LogConfig          `yaml:"log"`
	LockDir     string             `yaml:"lock_dir"`
	Gas         []GasConfig        `yaml:"gas"`
	Particulate *ParticulateConfig `yaml:"particulate"`
	Influx      InfluxConfig       `yaml:"influx"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GasConfig struct {
	Address uint8  `yaml:"address"`
	Adapter string `yaml:"adapter"`
	// Bus is the device path for the generic adapter.
	Bus string `yaml:"bus"`
	// Board and BusNumber select the gobot platform and bus. For mcp2221
	// BusNumber is the 1-based bridge index, 0 when only one is attached.
	Board          string         `yaml:"board"`
	BusNumber      int            `yaml:"bus_number"`
	Mode           *uint8         `yaml:"mode"`
	StartTries     int            `yaml:"start_tries"`
	PollInterval   time.Duration  `yaml:"poll_interval"`
	MaxBackoff     time.Duration  `yaml:"max_backoff"`
	ReportInterval time.Duration  `yaml:"report_interval"`
	Cooldown       time.Duration  `yaml:"cooldown"`
	StatusFile     string         `yaml:"status_file"`
	FormURL        string         `yaml:"form_url"`
	Baseline       BaselineConfig `yaml:"baseline"`
}

// DriveMode returns the configured drive mode, 1 (every second) if unset.
func (g GasConfig) DriveMode() uint8 {
	if g.Mode == nil {
		return 1
	}
	return *g.Mode
}

type BaselineConfig struct {
	Prefix       string        `yaml:"prefix"`
	MaxKeep      int           `yaml:"max_keep"`
	SaveInterval time.Duration `yaml:"save_interval"`
}

type ParticulateConfig struct {
	Port             string        `yaml:"port"`
	Baud             int           `yaml:"baud"`
	MaxUnsyncedBytes int           `yaml:"max_unsynced_bytes"`
	ReportInterval   time.Duration `yaml:"report_interval"`
	ReopenDelay      time.Duration `yaml:"reopen_delay"`
	StatusFile       string        `yaml:"status_file"`
	FormURL          string        `yaml:"form_url"`
}

type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Enabled reports whether readings should be written to InfluxDB.
func (c InfluxConfig) Enabled() bool {
	return c.URL != ""
}

var logLevels = map[string]slog.Level{
	"DEBUG": slog.LevelDebug,
	"INFO":  slog.LevelInfo,
	"WARN":  slog.LevelWarn,
	"ERROR": slog.LevelError,
}

// LogLevel maps the configured level to slog. Validate rejects unknown
// levels, so anything else here means INFO.
func (c *Config) LogLevel() slog.Level {
	if l, ok := logLevels[strings.ToUpper(c.Log.Level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// Load reads the file at path, fills in defaults and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.applyDefaults()
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "INFO"
	}
	if c.LockDir == "" {
		c.LockDir = os.TempDir()
	}
	for i := range c.Gas {
		g := &c.Gas[i]
		if g.Adapter == "" {
			g.Adapter = AdapterGeneric
		}
		if g.Bus == "" {
			g.Bus = "/dev/i2c-1"
		}
		if g.Adapter == AdapterGobot && g.Board == "" {
			g.Board = "raspi"
			if g.BusNumber == 0 {
				g.BusNumber = 1
			}
		}
		if g.Mode == nil {
			mode := uint8(1)
			g.Mode = &mode
		}
		if g.StartTries == 0 {
			g.StartTries = 100
		}
		if g.PollInterval == 0 {
			g.PollInterval = time.Second
		}
		if g.MaxBackoff == 0 {
			g.MaxBackoff = time.Minute
		}
		if g.ReportInterval == 0 {
			g.ReportInterval = time.Minute
		}
		if g.Cooldown == 0 {
			g.Cooldown = 10 * time.Minute
		}
		if g.Baseline.Prefix == "" {
			g.Baseline.Prefix = "baseline"
		}
		if g.Baseline.MaxKeep == 0 {
			g.Baseline.MaxKeep = 30
		}
		if g.Baseline.SaveInterval == 0 {
			g.Baseline.SaveInterval = 24 * time.Hour
		}
	}
	if p := c.Particulate; p != nil {
		if p.Port == "" {
			p.Port = "/dev/ttyAMA0"
		}
		if p.Baud == 0 {
			p.Baud = 9600
		}
		if p.MaxUnsyncedBytes == 0 {
			p.MaxUnsyncedBytes = 1024
		}
		if p.ReportInterval == 0 {
			p.ReportInterval = time.Minute
		}
		if p.ReopenDelay == 0 {
			p.ReopenDelay = time.Second
		}
	}
}
