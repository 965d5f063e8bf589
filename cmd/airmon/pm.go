package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/airmon/air"
	"github.com/mklimuk/airmon/cmd/airmon/console"
	"github.com/mklimuk/airmon/uart"
)

var pmCmd = cli.Command{
	Name:  "pm",
	Usage: "talk to a PMS5003 directly",
	Subcommands: []*cli.Command{
		&pmReadCmd,
	},
}

var pmReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Value: "/dev/ttyAMA0"},
		&cli.IntFlag{Name: "baud", Value: 9600},
		&cli.IntFlag{Name: "max-unsynced", Value: air.DefaultMaxUnsyncedBytes, Usage: "bytes read without a frame before giving up"},
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1, Usage: "number of frames to print"},
	},
	Action: func(c *cli.Context) error {
		port, err := uart.Open(uart.Config{Name: c.String("port"), Baud: c.Int("baud")})
		if err != nil {
			return console.Fail("could not open port", err)
		}
		defer func() { _ = port.Close() }()

		s := air.NewPMS5003(port)
		for i := 0; i < c.Int("count"); i++ {
			r, err := s.NextReading(c.Context, c.Int("max-unsynced"))
			if err != nil {
				return console.Fail("read failed", err)
			}
			console.PInfof(console.PictoSmoke, "PM2.5 %s µg/m³, PM10 %s µg/m³",
				console.Cyan(r.PM25()), console.Cyan(r.PM10()))
			if err := printYAML(newParticulateView(r)); err != nil {
				return err
			}
		}
		return nil
	},
}

type concentrations struct {
	PM1  uint16 `yaml:"pm1"`
	PM25 uint16 `yaml:"pm25"`
	PM10 uint16 `yaml:"pm10"`
}

// particulateView is a reading laid out for humans, µg/m³ and counts per
// 0.1 L.
type particulateView struct {
	Atmospheric concentrations `yaml:"atmospheric"`
	Standard    concentrations `yaml:"standard"`
	Particles   struct {
		Over03  uint16 `yaml:"over_0.3um"`
		Over05  uint16 `yaml:"over_0.5um"`
		Over10  uint16 `yaml:"over_1.0um"`
		Over25  uint16 `yaml:"over_2.5um"`
		Over50  uint16 `yaml:"over_5.0um"`
		Over100 uint16 `yaml:"over_10um"`
	} `yaml:"particles"`
}

func newParticulateView(r air.ParticulateReading) particulateView {
	var v particulateView
	v.Atmospheric = concentrations{PM1: r.PM1(), PM25: r.PM25(), PM10: r.PM10()}
	v.Standard = concentrations{PM1: r.PM1Standard(), PM25: r.PM25Standard(), PM10: r.PM10Standard()}
	v.Particles.Over03 = r.Particles03()
	v.Particles.Over05 = r.Particles05()
	v.Particles.Over10 = r.Particles10()
	v.Particles.Over25 = r.Particles25()
	v.Particles.Over50 = r.Particles50()
	v.Particles.Over100 = r.Particles100()
	return v
}
