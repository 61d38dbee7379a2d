package writer

import (
	"bytes"
	"context"
	"path"
	"time"

	"pontosflow/models"
)

// Exporter encodes streams and positions into files and hands each file to
// every configured sink in order.
type Exporter struct {
	enc   Encoder
	sinks []Sink
}

// NewExporter returns an Exporter writing with enc to sinks.
func NewExporter(enc Encoder, sinks ...Sink) *Exporter {
	return &Exporter{enc: enc, sinks: sinks}
}

// WritePositions stores the position file of vesselID for day. An empty
// slice still produces a file holding only the header.
func (e *Exporter) WritePositions(ctx context.Context, vesselID string, day time.Time, positions []models.Position) (string, error) {
	var buf bytes.Buffer
	if err := e.enc.EncodePositions(&buf, positions); err != nil {
		return "", err
	}
	name := PositionFileName(day, e.enc.Extension())
	return name, e.store(ctx, Object{VesselID: vesselID, Day: day, Name: name, Data: buf.Bytes()})
}

// WriteStream stores the file of one parameter stream.
func (e *Exporter) WriteStream(ctx context.Context, vesselID string, day time.Time, stream models.ParameterStream) (string, error) {
	var buf bytes.Buffer
	if err := e.enc.EncodeSamples(&buf, stream.Samples); err != nil {
		return "", err
	}
	name := ParameterFileName(stream.Parameter, day, e.enc.Extension())
	return name, e.store(ctx, Object{VesselID: vesselID, Day: day, Name: name, Data: buf.Bytes()})
}

func (e *Exporter) store(ctx context.Context, obj Object) error {
	for _, s := range e.sinks {
		if err := s.Store(ctx, obj); err != nil {
			return err
		}
	}
	return nil
}

// contentType maps an export file name to its MIME type.
func contentType(name string) string {
	switch path.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}
