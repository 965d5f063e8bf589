package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration. It does not fill in defaults.
func Validate(c *Config) error {
	if _, ok := logLevels[strings.ToUpper(c.Log.Level)]; !ok {
		return fmt.Errorf("config: invalid log level %q", c.Log.Level)
	}
	if len(c.Gas) == 0 && c.Particulate == nil {
		return errors.New("config: no sensors configured")
	}
	seen := map[uint8]bool{}
	for i, g := range c.Gas {
		if g.Address != 0x5A && g.Address != 0x5B {
			return fmt.Errorf("config: gas[%d]: address %#x is not a CCS811 address (0x5a or 0x5b)", i, g.Address)
		}
		if seen[g.Address] {
			return fmt.Errorf("config: gas[%d]: address %#x configured twice", i, g.Address)
		}
		seen[g.Address] = true
		switch g.Adapter {
		case AdapterGeneric, AdapterGobot, AdapterMCP2221:
		default:
			return fmt.Errorf("config: gas[%d]: unknown adapter %q", i, g.Adapter)
		}
		if g.DriveMode() > 4 {
			return fmt.Errorf("config: gas[%d]: drive mode %d out of range 0..4", i, g.DriveMode())
		}
		if g.StartTries < 0 {
			return fmt.Errorf("config: gas[%d]: start_tries must not be negative", i)
		}
		if g.PollInterval <= 0 || g.ReportInterval <= 0 || g.MaxBackoff <= 0 || g.Cooldown < 0 {
			return fmt.Errorf("config: gas[%d]: intervals must be positive", i)
		}
		if g.Baseline.MaxKeep < 1 {
			return fmt.Errorf("config: gas[%d]: baseline max_keep must be at least 1", i)
		}
		if g.Baseline.SaveInterval <= 0 {
			return fmt.Errorf("config: gas[%d]: baseline save_interval must be positive", i)
		}
	}
	if p := c.Particulate; p != nil {
		if p.Baud <= 0 {
			return fmt.Errorf("config: particulate: invalid baud rate %d", p.Baud)
		}
		if p.MaxUnsyncedBytes < 0 {
			return fmt.Errorf("config: particulate: max_unsynced_bytes must not be negative")
		}
		if p.ReportInterval <= 0 || p.ReopenDelay <= 0 {
			return fmt.Errorf("config: particulate: intervals must be positive")
		}
	}
	return nil
}
