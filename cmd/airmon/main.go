package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"
)

var version string
var commit string
var date string

// logger is the handler behind slog.Default, kept so that run can apply
// the configured level.
var logger *chlog.Logger

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "airmon"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "CCS811 and PMS5003 air quality monitor"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "enable debug logging and bus transfer dumps",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		logger = chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		logger.SetColorProfile(termenv.TrueColor)
		logger.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			logger.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(logger))
		return nil
	}
	app.Commands = cli.Commands{
		&runCmd,
		&gasCmd,
		&pmCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	err := app.Run(os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		log.Printf("error: %v", err)
		return 1
	}
	return 0
}
