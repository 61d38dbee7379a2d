package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	appconfig "pontosflow/config"
	"pontosflow/models"
)

// Encoder renders exported records in one file format.
type Encoder interface {
	// Extension is the file name suffix without the leading dot.
	Extension() string
	EncodeSamples(w io.Writer, samples []models.Sample) error
	EncodePositions(w io.Writer, positions []models.Position) error
}

// NewEncoder returns the encoder for format. timeLayout only applies to
// text formats; an empty layout selects config.DefaultTimeFormat.
func NewEncoder(format, timeLayout string) (Encoder, error) {
	if timeLayout == "" {
		timeLayout = appconfig.DefaultTimeFormat
	}
	switch format {
	case appconfig.FormatCSV, "":
		return &csvEncoder{timeLayout: timeLayout}, nil
	case appconfig.FormatParquet:
		return &parquetEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

type csvEncoder struct {
	timeLayout string
}

func (e *csvEncoder) Extension() string { return appconfig.FormatCSV }

func (e *csvEncoder) EncodeSamples(w io.Writer, samples []models.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "value"}); err != nil {
		return err
	}
	for _, s := range samples {
		if err := cw.Write([]string{e.formatTime(s.Time), formatFloat(s.Value)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *csvEncoder) EncodePositions(w io.Writer, positions []models.Position) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "longitude", "latitude"}); err != nil {
		return err
	}
	for _, p := range positions {
		row := []string{
			e.formatTime(p.Time),
			formatFloat(p.Longitude),
			formatFloat(p.Latitude),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *csvEncoder) formatTime(t time.Time) string {
	return t.UTC().Format(e.timeLayout)
}

// formatFloat prints the shortest decimal that reads back to v.
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
