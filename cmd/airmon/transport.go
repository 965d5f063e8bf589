package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/airmon"
	"github.com/mklimuk/airmon/adapter"
	"github.com/mklimuk/airmon/air"
	"github.com/mklimuk/airmon/config"
	"github.com/mklimuk/airmon/i2c"
)

// CCS811 clock stretching is unreliable on some hosts above this speed.
const gasBusSpeed = 50 * physic.KiloHertz

// bridgePool hands out one MCP2221 per bridge index so sensors sharing a
// bridge serialize their transfers on the same adapter.
type bridgePool struct {
	mx      sync.Mutex
	bridges map[int]*adapter.MCP2221
	init    func(ctx context.Context, d *adapter.MCP2221) error
}

func newBridgePool() *bridgePool {
	return &bridgePool{
		bridges: map[int]*adapter.MCP2221{},
		init: func(ctx context.Context, d *adapter.MCP2221) error {
			return d.Init(ctx)
		},
	}
}

func (p *bridgePool) get(ctx context.Context, index int) (*adapter.MCP2221, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	if d, ok := p.bridges[index]; ok {
		return d, nil
	}
	d := adapter.NewMCP2221(adapter.WithIndex(index), adapter.WithLogger(slog.Default().With("bridge", index)))
	if err := p.init(ctx, d); err != nil {
		return nil, err
	}
	p.bridges[index] = d
	return d, nil
}

func registersLogger(g config.GasConfig) i2c.RegistersOpt {
	return i2c.WithRegistersLogger(slog.Default().With("sensor", fmt.Sprintf("%#x", g.Address)))
}

// openGasTransport connects the register bus for one configured CCS811.
// The returned func releases it.
func openGasTransport(ctx context.Context, bridges *bridgePool, g config.GasConfig) (airmon.RegisterBus, func() error, error) {
	switch g.Adapter {
	case config.AdapterGeneric:
		bus, err := i2c.NewGenericBus(g.Bus)
		if err != nil {
			return nil, nil, err
		}
		if err := bus.SetSpeed(gasBusSpeed); err != nil {
			slog.Debug("bus speed left unchanged", "bus", g.Bus, "error", err)
		}
		return i2c.NewRegisters(bus, g.Address, registersLogger(g)), bus.Close, nil
	case config.AdapterGobot:
		bus, err := i2c.OpenGobotBus(g.Board, g.BusNumber, g.Address)
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	case config.AdapterMCP2221:
		bridge, err := bridges.get(ctx, g.BusNumber-1)
		if err != nil {
			return nil, nil, err
		}
		return i2c.NewRegisters(bridge, g.Address, registersLogger(g)), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", g.Adapter)
	}
}

var gasTransportFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Value:   config.AdapterGeneric,
		Usage:   "generic, gobot or mcp2221",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Value:   "/dev/i2c-1",
		Usage:   "i2c device for the generic adapter",
	},
	&cli.StringFlag{
		Name:  "board",
		Value: "raspi",
		Usage: "gobot platform (raspi or nanopi)",
	},
	&cli.IntFlag{
		Name:  "bus-number",
		Usage: "gobot bus number (default 1), or 1-based bridge index for mcp2221 (default 0, the only one attached)",
	},
	&cli.StringFlag{
		Name:  "addr",
		Value: "0x5a",
		Usage: "sensor address (0x5a or 0x5b)",
	},
}

func gasConfigFromFlags(c *cli.Context) (config.GasConfig, error) {
	addr, err := strconv.ParseUint(c.String("addr"), 0, 8)
	if err != nil {
		return config.GasConfig{}, fmt.Errorf("invalid address %q: %w", c.String("addr"), err)
	}
	if byte(addr) != air.CCS811AddrLow && byte(addr) != air.CCS811AddrHigh {
		return config.GasConfig{}, fmt.Errorf("address %#x is not a CCS811 address", addr)
	}
	g := config.GasConfig{
		Address:   byte(addr),
		Adapter:   c.String("adapter"),
		Bus:       c.String("device"),
		Board:     c.String("board"),
		BusNumber: c.Int("bus-number"),
	}
	if g.Adapter == config.AdapterGobot && !c.IsSet("bus-number") {
		g.BusNumber = 1
	}
	return g, nil
}
