package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/mklimuk/airmon"
	"github.com/mklimuk/airmon/air"
	"github.com/mklimuk/airmon/report"
)

// Source is an open byte stream from the particulate sensor.
type Source interface {
	io.ByteReader
	io.Closer
}

// Opener opens a fresh Source. It is called again after every failure.
type Opener func(ctx context.Context) (Source, error)

type ParticulateMonitorOpts struct {
	MaxUnsynced    int
	ReportInterval time.Duration
	ReopenDelay    time.Duration
	Status         *report.StatusFile
	Sink           report.Sink
	Logger         *slog.Logger
}

type ParticulateMonitorOpt func(*ParticulateMonitorOpts)

func WithMaxUnsynced(n int) ParticulateMonitorOpt {
	return func(o *ParticulateMonitorOpts) {
		o.MaxUnsynced = n
	}
}

func WithReopenDelay(d time.Duration) ParticulateMonitorOpt {
	return func(o *ParticulateMonitorOpts) {
		o.ReopenDelay = d
	}
}

func WithParticulateReporting(sink report.Sink, interval time.Duration) ParticulateMonitorOpt {
	return func(o *ParticulateMonitorOpts) {
		o.Sink = sink
		o.ReportInterval = interval
	}
}

func WithParticulateStatus(f *report.StatusFile) ParticulateMonitorOpt {
	return func(o *ParticulateMonitorOpts) {
		o.Status = f
	}
}

func WithParticulateLogger(l *slog.Logger) ParticulateMonitorOpt {
	return func(o *ParticulateMonitorOpts) {
		o.Logger = l
	}
}

// ParticulateMonitor reads PMS5003 frames forever, reopening the source
// whenever framing or the transport fails.
type ParticulateMonitor struct {
	open   Opener
	config ParticulateMonitorOpts
	log    *slog.Logger
	now    func() time.Time
}

func NewParticulateMonitor(open Opener, opts ...ParticulateMonitorOpt) *ParticulateMonitor {
	config := ParticulateMonitorOpts{
		MaxUnsynced:    air.DefaultMaxUnsyncedBytes,
		ReportInterval: time.Minute,
		ReopenDelay:    time.Second,
		Logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &ParticulateMonitor{
		open:   open,
		config: config,
		log:    config.Logger.With("monitor", "particulate"),
		now:    time.Now,
	}
}

// Run blocks until ctx is done, which returns nil. Only errors that are
// neither framing nor transport failures end it early.
func (m *ParticulateMonitor) Run(ctx context.Context) error {
	reports := report.NewThrottle(m.config.ReportInterval)
	for {
		err := m.session(ctx, reports)
		if ctx.Err() != nil {
			return nil
		}
		var ff *air.FramingFault
		var te *airmon.TransportError
		if !errors.As(err, &ff) && !errors.As(err, &te) {
			_ = m.config.Status.WriteError()
			return err
		}
		m.log.Error("session failed, reopening", "error", err, "delay", m.config.ReopenDelay)
		if err := m.config.Status.WriteError(); err != nil {
			m.log.Warn("could not update status file", "error", err)
		}
		if err := sleep(ctx, m.config.ReopenDelay); err != nil {
			return nil
		}
	}
}

func (m *ParticulateMonitor) session(ctx context.Context, reports *report.Throttle) error {
	src, err := m.open(ctx)
	if err != nil {
		return &airmon.TransportError{Op: "pms5003 open", Err: err}
	}
	defer func() {
		if err := src.Close(); err != nil {
			m.log.Debug("close failed", "error", err)
		}
	}()
	reader := air.NewPMS5003(src, air.WithPMS5003Logger(m.config.Logger))
	for {
		r, err := reader.NextReading(ctx, m.config.MaxUnsynced)
		if err != nil {
			return err
		}
		now := m.now()
		m.log.Debug("reading", "pm25", r.PM25(), "pm10", r.PM10())
		if err := m.config.Status.Write(r.PM25()); err != nil {
			m.log.Warn("could not update status file", "error", err)
		}
		if m.config.Sink != nil {
			sample := report.ParticulateSample{Time: now, Reading: r}
			if _, err := reports.MaybeRun(now, func() error { return m.config.Sink.ReportParticulate(ctx, sample) }); err != nil {
				m.log.Warn("report failed", "error", err)
			}
		}
	}
}
