package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	chlog "github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/airmon/air"
	"github.com/mklimuk/airmon/calib"
	"github.com/mklimuk/airmon/cmd/airmon/console"
	"github.com/mklimuk/airmon/config"
	"github.com/mklimuk/airmon/lock"
	"github.com/mklimuk/airmon/monitor"
	"github.com/mklimuk/airmon/report"
	"github.com/mklimuk/airmon/snsctx"
	"github.com/mklimuk/airmon/uart"
)

var runCmd = cli.Command{
	Name:  "run",
	Usage: "monitor every configured sensor until interrupted",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "/etc/airmon.yaml",
			Usage:   "configuration file, see airmon.example.yaml",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return console.Fail("configuration error", err)
		}
		if !c.Bool("verbose") {
			logger.SetLevel(chlog.Level(cfg.LogLevel()))
		}
		ctx, stop := signal.NotifyContext(snsctx.SetVerbose(c.Context, c.Bool("verbose")), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var influx *report.InfluxSink
		if cfg.Influx.Enabled() {
			influx = report.NewInfluxSink(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
			defer influx.Close()
		}

		var sessions []session
		defer func() {
			for _, s := range sessions {
				s.release()
			}
		}()
		bridges := newBridgePool()
		for _, g := range cfg.Gas {
			s, err := newGasSession(ctx, cfg.LockDir, bridges, g, influx)
			if err != nil {
				return console.Fail(fmt.Sprintf("gas sensor %#x", g.Address), err)
			}
			sessions = append(sessions, s)
		}
		if p := cfg.Particulate; p != nil {
			s, err := newParticulateSession(cfg.LockDir, *p, influx)
			if err != nil {
				return console.Fail("particulate sensor", err)
			}
			sessions = append(sessions, s)
		}

		if err := runSessions(ctx, sessions); err != nil {
			return console.Fail("monitor stopped", err)
		}
		slog.Info("shutdown complete")
		return nil
	},
}

// session is one monitored sensor with the resources it holds.
type session struct {
	name    string
	run     func(ctx context.Context) error
	closers []func() error
}

func (s session) release() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("release failed", "session", s.name, "error", err)
		}
	}
}

// runSessions runs every session in its own goroutine. A session ending
// with an error does not stop the others.
func runSessions(ctx context.Context, sessions []session) error {
	var wg sync.WaitGroup
	errs := make([]error, len(sessions))
	for i, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("session started", "session", s.name)
			if err := s.run(ctx); err != nil {
				slog.Error("session failed", "session", s.name, "error", err)
				errs[i] = fmt.Errorf("%s: %w", s.name, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func sinks(influx *report.InfluxSink, formURL string) (report.Sink, error) {
	var m report.Multi
	if influx != nil {
		m = append(m, influx)
	}
	if formURL != "" {
		form, err := report.ParseFormURL(formURL)
		if err != nil {
			return nil, err
		}
		m = append(m, report.NewFormSink(form))
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

func newGasSession(ctx context.Context, lockDir string, bridges *bridgePool, g config.GasConfig, influx *report.InfluxSink) (session, error) {
	s := session{name: fmt.Sprintf("ccs811 %#x", g.Address)}
	l, err := lock.Acquire(lock.GasPath(lockDir, g.Address))
	if err != nil {
		return s, err
	}
	s.closers = append(s.closers, l.Release)
	sink, err := sinks(influx, g.FormURL)
	if err != nil {
		s.release()
		return s, err
	}
	bus, closeBus, err := openGasTransport(ctx, bridges, g)
	if err != nil {
		s.release()
		return s, err
	}
	s.closers = append(s.closers, closeBus)

	sensor := air.NewCCS811(bus, g.Address, air.WithCooldown(g.Cooldown))
	store := calib.NewFileStore(g.Baseline.Prefix, g.Address, g.Baseline.MaxKeep)
	m := monitor.NewGasMonitor(sensor, store,
		monitor.WithDriveMode(air.DriveMode{Mode: g.DriveMode()}),
		monitor.WithStartTries(g.StartTries),
		monitor.WithPolling(g.PollInterval, g.MaxBackoff),
		monitor.WithGasReporting(sink, g.ReportInterval),
		monitor.WithBaselineInterval(g.Baseline.SaveInterval),
		monitor.WithGasStatus(report.NewStatusFile(g.StatusFile)),
	)
	s.run = m.Run
	return s, nil
}

func newParticulateSession(lockDir string, p config.ParticulateConfig, influx *report.InfluxSink) (session, error) {
	s := session{name: "pms5003"}
	l, err := lock.Acquire(lock.ParticulatePath(lockDir))
	if err != nil {
		return s, err
	}
	s.closers = append(s.closers, l.Release)
	sink, err := sinks(influx, p.FormURL)
	if err != nil {
		s.release()
		return s, err
	}
	open := func(ctx context.Context) (monitor.Source, error) {
		port, err := uart.Open(uart.Config{Name: p.Port, Baud: p.Baud})
		if err != nil {
			return nil, err
		}
		return port, nil
	}
	m := monitor.NewParticulateMonitor(open,
		monitor.WithMaxUnsynced(p.MaxUnsyncedBytes),
		monitor.WithReopenDelay(p.ReopenDelay),
		monitor.WithParticulateReporting(sink, p.ReportInterval),
		monitor.WithParticulateStatus(report.NewStatusFile(p.StatusFile)),
	)
	s.run = m.Run
	return s, nil
}
