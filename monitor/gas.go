package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/airmon"
	"github.com/mklimuk/airmon/air"
	"github.com/mklimuk/airmon/report"
)

var ErrNotCCS811 = errors.New("monitor: device is not a CCS811")

// GasSensor is the part of a CCS811 session the monitor drives.
type GasSensor interface {
	Addr() byte
	IsDevice(ctx context.Context) (bool, error)
	StartApp(ctx context.Context, maxTries int) error
	LoadBaseline(ctx context.Context, store air.BaselineStore) (uint16, bool, error)
	SwitchMode(ctx context.Context, target air.DriveMode) error
	PollOnce(ctx context.Context) (air.GasReading, bool, error)
	SaveBaseline(ctx context.Context, store air.BaselineStore) (uint16, error)
}

type GasMonitorOpts struct {
	Mode             air.DriveMode
	StartTries       int
	PollInterval     time.Duration
	MaxBackoff       time.Duration
	ReportInterval   time.Duration
	BaselineInterval time.Duration
	Status           *report.StatusFile
	Sink             report.Sink
	Logger           *slog.Logger
}

type GasMonitorOpt func(*GasMonitorOpts)

func WithDriveMode(m air.DriveMode) GasMonitorOpt {
	return func(o *GasMonitorOpts) {
		o.Mode = m
	}
}

func WithStartTries(n int) GasMonitorOpt {
	return func(o *GasMonitorOpts) {
		o.StartTries = n
	}
}

// WithPolling sets the poll interval and the ceiling of the backoff used
// after transport failures.
func WithPolling(interval, maxBackoff time.Duration) GasMonitorOpt {
	return func(o *GasMonitorOpts) {
		o.PollInterval = interval
		o.MaxBackoff = maxBackoff
	}
}

func WithGasReporting(sink report.Sink, interval time.Duration) GasMonitorOpt {
	return func(o *GasMonitorOpts) {
		o.Sink = sink
		o.ReportInterval = interval
	}
}

func WithBaselineInterval(d time.Duration) GasMonitorOpt {
	return func(o *GasMonitorOpts) {
		o.BaselineInterval = d
	}
}

func WithGasStatus(f *report.StatusFile) GasMonitorOpt {
	return func(o *GasMonitorOpts) {
		o.Status = f
	}
}

func WithGasLogger(l *slog.Logger) GasMonitorOpt {
	return func(o *GasMonitorOpts) {
		o.Logger = l
	}
}

// GasMonitor keeps one CCS811 running: it brings the device up, polls it
// and hands in-range readings to the status file and the sink.
type GasMonitor struct {
	sensor GasSensor
	store  air.BaselineStore
	config GasMonitorOpts
	log    *slog.Logger
	now    func() time.Time
}

func NewGasMonitor(sensor GasSensor, store air.BaselineStore, opts ...GasMonitorOpt) *GasMonitor {
	config := GasMonitorOpts{
		Mode:             air.DriveMode{Mode: air.DriveMode1s},
		StartTries:       100,
		PollInterval:     time.Second,
		MaxBackoff:       time.Minute,
		ReportInterval:   time.Minute,
		BaselineInterval: 24 * time.Hour,
		Logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &GasMonitor{
		sensor: sensor,
		store:  store,
		config: config,
		log:    config.Logger.With("monitor", "gas", "addr", fmt.Sprintf("%#x", sensor.Addr())),
		now:    time.Now,
	}
}

// Run blocks until ctx is done, which returns nil, or the device fails in
// a way polling cannot recover from.
func (m *GasMonitor) Run(ctx context.Context) error {
	if err := m.start(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		_ = m.config.Status.WriteError()
		return err
	}

	reports := report.NewThrottle(m.config.ReportInterval)
	baseline := report.NewThrottle(m.config.BaselineInterval)
	baseline.MarkRun(m.now())

	backoff := m.config.PollInterval
	for {
		delay := m.config.PollInterval
		r, ready, err := m.sensor.PollOnce(ctx)
		var fault *air.DeviceFault
		var te *airmon.TransportError
		switch {
		case err == nil:
			backoff = m.config.PollInterval
			if ready {
				m.handle(ctx, r, reports, baseline)
			}
		case ctx.Err() != nil:
			return nil
		case errors.As(err, &fault):
			m.log.Warn("device fault", "flags", fault.Flags)
			m.writeError()
		case errors.As(err, &te):
			backoff = min(backoff*2, m.config.MaxBackoff)
			delay = backoff
			m.log.Error("transport failure, backing off", "error", err, "retry_in", delay)
			m.writeError()
		default:
			_ = m.config.Status.WriteError()
			return err
		}
		if err := sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

func (m *GasMonitor) start(ctx context.Context) error {
	ok, err := m.sensor.IsDevice(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w at %#x", ErrNotCCS811, m.sensor.Addr())
	}
	if err := m.sensor.StartApp(ctx, m.config.StartTries); err != nil {
		return err
	}
	if m.store != nil {
		v, loaded, err := m.sensor.LoadBaseline(ctx, m.store)
		var te *airmon.TransportError
		switch {
		case errors.As(err, &te):
			return err
		case err != nil:
			m.log.Warn("baseline history unusable, starting uncalibrated", "error", err)
		case loaded:
			m.log.Info("baseline loaded", "baseline", fmt.Sprintf("%#04x", v))
		}
	}
	return m.sensor.SwitchMode(ctx, m.config.Mode)
}

func (m *GasMonitor) handle(ctx context.Context, r air.GasReading, reports, baseline *report.Throttle) {
	if !r.InRange() {
		m.log.Warn("reading out of range, dropped", "eco2", r.ECO2, "tvoc", r.TVOC)
		return
	}
	now := m.now()
	m.log.Debug("reading", "eco2", *r.ECO2, "tvoc", *r.TVOC)
	if err := m.config.Status.Write(*r.TVOC); err != nil {
		m.log.Warn("could not update status file", "error", err)
	}
	if m.config.Sink != nil {
		sample := report.GasSample{Addr: m.sensor.Addr(), Time: now, Reading: r}
		if _, err := reports.MaybeRun(now, func() error { return m.config.Sink.ReportGas(ctx, sample) }); err != nil {
			m.log.Warn("report failed", "error", err)
		}
	}
	if m.store != nil {
		_, err := baseline.MaybeRun(now, func() error {
			_, err := m.sensor.SaveBaseline(ctx, m.store)
			return err
		})
		if err != nil {
			m.log.Warn("baseline save failed", "error", err)
		}
	}
}

func (m *GasMonitor) writeError() {
	if err := m.config.Status.WriteError(); err != nil {
		m.log.Warn("could not update status file", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
