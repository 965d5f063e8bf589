package report

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/mklimuk/airmon/air"
)

// PointWriter is the part of the influx blocking write API the sink uses.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes readings as points: measurement "ccs811" tagged with
// the device address and measurement "pms5003".
type InfluxSink struct {
	writer PointWriter
	close  func()
}

// NewInfluxSink connects to the server at url.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	return &InfluxSink{
		writer: client.WriteAPIBlocking(org, bucket),
		close:  client.Close,
	}
}

func NewInfluxSinkWithWriter(w PointWriter) *InfluxSink {
	return &InfluxSink{writer: w}
}

func (s *InfluxSink) ReportGas(ctx context.Context, sample GasSample) error {
	fields := map[string]interface{}{}
	r := sample.Reading
	if r.ECO2 != nil {
		fields["eco2"] = int64(*r.ECO2)
	}
	if r.TVOC != nil {
		fields["tvoc"] = int64(*r.TVOC)
	}
	if r.Raw != nil {
		fields["current"] = int64(r.Raw.Current)
		fields["voltage"] = int64(r.Raw.Voltage)
	}
	if len(fields) == 0 {
		return nil
	}
	p := influxdb2.NewPoint("ccs811",
		map[string]string{"address": fmt.Sprintf("%#x", sample.Addr)},
		fields,
		sample.Time,
	)
	if err := s.writer.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx: could not write ccs811 point: %w", err)
	}
	return nil
}

func (s *InfluxSink) ReportParticulate(ctx context.Context, sample ParticulateSample) error {
	fields := make(map[string]interface{}, air.FrameValues)
	for i, name := range air.ParticulateFieldNames {
		fields[name] = int64(sample.Reading[i])
	}
	p := influxdb2.NewPoint("pms5003", map[string]string{}, fields, sample.Time)
	if err := s.writer.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx: could not write pms5003 point: %w", err)
	}
	return nil
}

func (s *InfluxSink) Close() {
	if s.close != nil {
		s.close()
	}
}
