package writer

import (
	"bytes"
	"io"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"pontosflow/models"
)

// sampleRecord is the parquet schema of a parameter file.
type sampleRecord struct {
	Time  int64   `parquet:"name=time, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	Value float32 `parquet:"name=value, type=FLOAT"`
}

// positionRecord is the parquet schema of the position file.
type positionRecord struct {
	Time      int64   `parquet:"name=time, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	Longitude float32 `parquet:"name=longitude, type=FLOAT"`
	Latitude  float32 `parquet:"name=latitude, type=FLOAT"`
}

// memFileWriter collects a parquet file in memory; the writer only ever
// appends, so Seek reports the current length.
type memFileWriter struct{ buffer *bytes.Buffer }

func newMemFileWriter() *memFileWriter { return &memFileWriter{buffer: &bytes.Buffer{}} }

func (m *memFileWriter) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFileWriter) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFileWriter) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFileWriter) Read([]byte) (int, error)                  { return 0, nil }
func (m *memFileWriter) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFileWriter) Close() error                              { return nil }
func (m *memFileWriter) Bytes() []byte                             { return m.buffer.Bytes() }

const parquetParallelism = 1

type parquetEncoder struct{}

func (e *parquetEncoder) Extension() string { return "parquet" }

func (e *parquetEncoder) EncodeSamples(w io.Writer, samples []models.Sample) error {
	records := make([]interface{}, 0, len(samples))
	for _, s := range samples {
		records = append(records, sampleRecord{Time: s.Time.UnixMicro(), Value: s.Value})
	}
	return writeParquet(w, new(sampleRecord), records)
}

func (e *parquetEncoder) EncodePositions(w io.Writer, positions []models.Position) error {
	records := make([]interface{}, 0, len(positions))
	for _, p := range positions {
		records = append(records, positionRecord{
			Time:      p.Time.UnixMicro(),
			Longitude: p.Longitude,
			Latitude:  p.Latitude,
		})
	}
	return writeParquet(w, new(positionRecord), records)
}

func writeParquet(w io.Writer, schema interface{}, records []interface{}) error {
	mw := newMemFileWriter()
	pw, err := pqwriter.NewParquetWriter(mw, schema, parquetParallelism)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, rec := range records {
		if err := pw.Write(rec); err != nil {
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return err
	}
	_, err = w.Write(mw.Bytes())
	return err
}
