package report

import (
	"context"
	"errors"
	"time"

	"github.com/mklimuk/airmon/air"
)

type GasSample struct {
	Addr    byte
	Time    time.Time
	Reading air.GasReading
}

// Values returns eCO2, TVOC, current and voltage, the order used by the
// gas form. Missing fields read as zero.
func (s GasSample) Values() []uint16 {
	var eco2, tvoc, current, voltage uint16
	r := s.Reading
	if r.ECO2 != nil {
		eco2 = *r.ECO2
	}
	if r.TVOC != nil {
		tvoc = *r.TVOC
	}
	if r.Raw != nil {
		current = uint16(r.Raw.Current)
		voltage = r.Raw.Voltage
	}
	return []uint16{eco2, tvoc, current, voltage}
}

type ParticulateSample struct {
	Time    time.Time
	Reading air.ParticulateReading
}

// Sink publishes readings somewhere outside the process.
type Sink interface {
	ReportGas(ctx context.Context, s GasSample) error
	ReportParticulate(ctx context.Context, s ParticulateSample) error
}

// Multi fans out to every sink and joins their errors.
type Multi []Sink

func (m Multi) ReportGas(ctx context.Context, s GasSample) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.ReportGas(ctx, s))
	}
	return errors.Join(errs...)
}

func (m Multi) ReportParticulate(ctx context.Context, s ParticulateSample) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.ReportParticulate(ctx, s))
	}
	return errors.Join(errs...)
}
