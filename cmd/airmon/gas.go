package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/airmon/air"
	"github.com/mklimuk/airmon/calib"
	"github.com/mklimuk/airmon/cmd/airmon/console"
	"github.com/mklimuk/airmon/snsctx"
)

var gasCmd = cli.Command{
	Name:  "gas",
	Usage: "talk to a CCS811 directly",
	Subcommands: []*cli.Command{
		&gasStatusCmd,
		&gasReadCmd,
		&gasResetCmd,
		&gasBaselineCmd,
	},
}

// withGasSensor opens the transport selected by the command flags and
// calls fn with a controller on it.
func withGasSensor(c *cli.Context, fn func(ctx context.Context, s *air.CCS811) error) error {
	g, err := gasConfigFromFlags(c)
	if err != nil {
		return console.Fail("invalid flags", err)
	}
	ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
	bus, closeBus, err := openGasTransport(ctx, newBridgePool(), g)
	if err != nil {
		return console.Fail("adapter initialization error", err)
	}
	defer func() {
		if err := closeBus(); err != nil {
			console.Errorf("error closing bus: %s", console.Red(err))
		}
	}()
	s := air.NewCCS811(bus, g.Address)
	ok, err := s.IsDevice(ctx)
	if err != nil {
		return console.Fail("device check failed", err)
	}
	if !ok {
		return console.Exit(1, "no CCS811 at %#x", g.Address)
	}
	return fn(ctx, s)
}

type gasStatus struct {
	Address  string          `yaml:"address"`
	Status   air.Status      `yaml:"status"`
	Mode     air.DriveMode   `yaml:"mode"`
	Error    *air.ErrorFlags `yaml:"error,omitempty"`
	Baseline string          `yaml:"baseline,omitempty"`
}

var gasStatusCmd = cli.Command{
	Name:  "status",
	Flags: gasTransportFlags,
	Action: func(c *cli.Context) error {
		return withGasSensor(c, func(ctx context.Context, s *air.CCS811) error {
			var out gasStatus
			out.Address = fmt.Sprintf("%#x", s.Addr())
			var err error
			if out.Status, err = s.Status(ctx); err != nil {
				return console.Fail("could not read status", err)
			}
			if out.Mode, err = s.Mode(ctx); err != nil {
				return console.Fail("could not read drive mode", err)
			}
			if out.Status.Error {
				flags, err := s.ReadError(ctx)
				if err != nil {
					return console.Fail("could not read error flags", err)
				}
				out.Error = &flags
			}
			// the baseline register only exists in application mode
			if out.Status.FWMode {
				v, err := s.Baseline(ctx)
				if err != nil {
					return console.Fail("could not read baseline", err)
				}
				out.Baseline = fmt.Sprintf("%#04x", v)
			}
			return printYAML(out)
		})
	},
}

var gasReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags: append([]cli.Flag{
		&cli.IntFlag{Name: "tries", Value: 100, Usage: "application start attempts"},
		&cli.DurationFlag{Name: "timeout", Value: 15 * time.Second, Usage: "how long to wait for data"},
	}, gasTransportFlags...),
	Action: func(c *cli.Context) error {
		return withGasSensor(c, func(ctx context.Context, s *air.CCS811) error {
			if err := s.StartApp(ctx, c.Int("tries")); err != nil {
				return console.Fail("application start failed", err)
			}
			mode, err := s.Mode(ctx)
			if err != nil {
				return console.Fail("could not read drive mode", err)
			}
			if mode.Mode == air.DriveModeIdle {
				console.Infof("sensor idle, switching to 1 s mode")
				if err := s.SwitchMode(ctx, air.DriveMode{Mode: air.DriveMode1s}); err != nil {
					return console.Fail("could not set drive mode", err)
				}
			}
			ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
			defer cancel()
			for {
				r, ok, err := s.PollOnce(ctx)
				var fault *air.DeviceFault
				switch {
				case errors.As(err, &fault):
					console.Warnf("%s", fault)
				case err != nil:
					return console.Fail("read failed", err)
				case ok:
					return printYAML(r)
				}
				select {
				case <-ctx.Done():
					return console.Exit(1, "no data within %s", c.Duration("timeout"))
				case <-time.After(250 * time.Millisecond):
				}
			}
		})
	},
}

var gasResetCmd = cli.Command{
	Name: "reset",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	}, gasTransportFlags...),
	Action: func(c *cli.Context) error {
		return withGasSensor(c, func(ctx context.Context, s *air.CCS811) error {
			if !c.Bool("yes") {
				ok, err := console.Confirm(fmt.Sprintf("reset CCS811 at %#x? The sensor returns to boot mode", s.Addr()))
				if err != nil {
					return console.Fail("prompt error", err)
				}
				if !ok {
					console.PInfof(console.PictoStop, "aborted")
					return nil
				}
			}
			if err := s.Reset(ctx); err != nil {
				return console.Fail("reset failed", err)
			}
			console.PInfof(console.PictoPin, "sensor %s reset", console.White(fmt.Sprintf("%#x", s.Addr())))
			return nil
		})
	},
}

var gasBaselineCmd = cli.Command{
	Name:  "baseline",
	Usage: "show, save or restore the calibration baseline",
	Flags: append([]cli.Flag{
		&cli.StringFlag{Name: "prefix", Value: "baseline", Usage: "history file prefix"},
		&cli.IntFlag{Name: "max-keep", Value: calib.DefaultMaxKeep},
		&cli.BoolFlag{Name: "save", Usage: "append the current baseline to the history"},
		&cli.BoolFlag{Name: "restore", Usage: "write the newest stored baseline to the sensor"},
		&cli.IntFlag{Name: "tries", Value: 100, Usage: "application start attempts"},
	}, gasTransportFlags...),
	Action: func(c *cli.Context) error {
		return withGasSensor(c, func(ctx context.Context, s *air.CCS811) error {
			if err := s.StartApp(ctx, c.Int("tries")); err != nil {
				return console.Fail("application start failed", err)
			}
			store := calib.NewFileStore(c.String("prefix"), s.Addr(), c.Int("max-keep"))
			switch {
			case c.Bool("restore"):
				v, ok, err := s.LoadBaseline(ctx, store)
				if err != nil {
					return console.Fail("restore failed", err)
				}
				if !ok {
					console.Warnf("no baseline stored in %s", store.Path())
					return nil
				}
				console.PInfof(console.PictoLeaf, "restored baseline %s", console.Cyan(fmt.Sprintf("%#04x", v)))
			case c.Bool("save"):
				v, err := s.SaveBaseline(ctx, store)
				if err != nil {
					return console.Fail("save failed", err)
				}
				console.PInfof(console.PictoLeaf, "saved baseline %s to %s", console.Cyan(fmt.Sprintf("%#04x", v)), store.Path())
			default:
				v, err := s.Baseline(ctx)
				if err != nil {
					return console.Fail("could not read baseline", err)
				}
				history, err := store.ReadAll()
				if err != nil {
					console.Warnf("history unreadable: %s", err)
				}
				console.PInfof(console.PictoLeaf, "current baseline %s, %d stored in %s",
					console.Cyan(fmt.Sprintf("%#04x", v)), len(history), store.Path())
			}
			return nil
		})
	},
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(console.Writer())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return console.Fail("encoding error", err)
	}
	return enc.Close()
}
