package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/airmon/adapter"
	"github.com/mklimuk/airmon/cmd/airmon/console"
	"github.com/mklimuk/airmon/snsctx"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the USB to I2C bridge",
	Subcommands: cli.Commands{
		&mcp2221LsCmd,
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

var bridgeIndexFlag = &cli.IntFlag{
	Name:  "index",
	Value: -1,
	Usage: "bridge index from 'mcp2221 ls' when more than one is attached",
}

var mcp2221LsCmd = cli.Command{
	Name: "ls",
	Action: func(c *cli.Context) error {
		devices := adapter.List()
		if len(devices) == 0 {
			console.Warnf("no MCP2221 attached")
			return nil
		}
		return printYAML(devices)
	},
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Flags: []cli.Flag{bridgeIndexFlag},
	Action: func(c *cli.Context) error {
		return withBridge(c, func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error) {
			return a.Status(ctx)
		})
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel a stuck transfer and free the bus",
	Flags: []cli.Flag{bridgeIndexFlag},
	Action: func(c *cli.Context) error {
		return withBridge(c, func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error) {
			return a.ReleaseBus(ctx)
		})
	},
}

func withBridge(c *cli.Context, fn func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error)) error {
	a := adapter.NewMCP2221(adapter.WithIndex(c.Int("index")))
	ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
	status, err := fn(ctx, a)
	if err != nil {
		return console.Fail("adapter communication error", err)
	}
	return printYAML(status)
}
