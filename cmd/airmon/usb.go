package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/karalabe/hid"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/airmon/adapter"
	"github.com/mklimuk/airmon/cmd/airmon/console"
)

var usbCmd = cli.Command{
	Name: "usb",
	Subcommands: cli.Commands{
		&usbLsCmd,
	},
}

var usbLsCmd = cli.Command{
	Name:  "ls",
	Usage: "list HID devices, marking usable bridges",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "all", Usage: "show every HID device, not only MCP2221 bridges"},
	},
	Action: func(c *cli.Context) error {
		vendor, product := uint16(adapter.VendorID), uint16(adapter.ProductID)
		if c.Bool("all") {
			vendor, product = 0, 0
		}
		w := tabwriter.NewWriter(console.Writer(), 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "PATH\tSERIAL\tVENDOR\tPRODUCT ID\tMANUFACTURER\tPRODUCT\tBRIDGE\n")
		for _, dev := range hid.Enumerate(vendor, product) {
			bridge := ""
			if dev.VendorID == adapter.VendorID && dev.ProductID == adapter.ProductID {
				bridge = "MCP2221"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%#x\t%#x\t%s\t%s\t%s\n",
				dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Manufacturer, dev.Product, bridge)
		}
		return w.Flush()
	},
}
