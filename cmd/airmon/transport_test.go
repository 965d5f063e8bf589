package main

import (
	"context"
	"errors"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/airmon/adapter"
	"github.com/mklimuk/airmon/config"
)

func TestBridgePool_SharesBridge(t *testing.T) {
	p := newBridgePool()
	var inits int
	p.init = func(ctx context.Context, d *adapter.MCP2221) error {
		inits++
		return nil
	}
	ctx := context.Background()

	a, err := p.get(ctx, -1)
	require.NoError(t, err)
	b, err := p.get(ctx, -1)
	require.NoError(t, err)
	c, err := p.get(ctx, 1)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, inits)
}

func TestBridgePool_InitFailure(t *testing.T) {
	p := newBridgePool()
	fail := errors.New("not found")
	p.init = func(ctx context.Context, d *adapter.MCP2221) error { return fail }

	_, err := p.get(context.Background(), 0)
	assert.ErrorIs(t, err, fail)
	assert.Empty(t, p.bridges)
}

func TestGasConfigFromFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		adapter   string
		busNumber int
	}{
		{"mcp2221 default", []string{"--adapter", "mcp2221"}, config.AdapterMCP2221, 0},
		{"mcp2221 index", []string{"--adapter", "mcp2221", "--bus-number", "2"}, config.AdapterMCP2221, 2},
		{"gobot default", []string{"--adapter", "gobot"}, config.AdapterGobot, 1},
		{"gobot bus 0", []string{"--adapter", "gobot", "--bus-number", "0"}, config.AdapterGobot, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := flag.NewFlagSet("gas", flag.ContinueOnError)
			for _, f := range gasTransportFlags {
				require.NoError(t, f.Apply(set))
			}
			require.NoError(t, set.Parse(tt.args))
			c := cli.NewContext(cli.NewApp(), set, nil)

			g, err := gasConfigFromFlags(c)
			require.NoError(t, err)
			assert.Equal(t, tt.adapter, g.Adapter)
			assert.Equal(t, tt.busNumber, g.BusNumber)
			assert.Equal(t, byte(0x5a), g.Address)
		})
	}
}
