package pontos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"pontosflow/models"
)

// dataRow is one row of the vessel_data table as returned by PostgREST.
type dataRow struct {
	Time        string    `json:"time"`
	ParameterID string    `json:"parameter_id"`
	Value       flexFloat `json:"value"`
}

// flexFloat accepts a float encoded either as a JSON number or as a string.
// The hub stores values as text.
type flexFloat float32

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("value is null")
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// timestampLayouts are tried in order. Layouts without an offset are read
// as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// decodeSamples parses a JSON array of vessel_data rows. Rows tagged with a
// different parameter than wireID are rejected.
func decodeSamples(body []byte, wireID string) ([]models.Sample, error) {
	var rows []dataRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	samples := make([]models.Sample, 0, len(rows))
	for i, row := range rows {
		if row.ParameterID != "" && row.ParameterID != wireID {
			return nil, fmt.Errorf("%w: row %d has parameter_id %q, want %q", ErrDecode, i, row.ParameterID, wireID)
		}
		ts, err := parseTimestamp(row.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrDecode, i, err)
		}
		samples = append(samples, models.Sample{Time: ts, Value: float32(row.Value)})
	}
	return samples, nil
}

func decodeVessels(body []byte) ([]models.Vessel, error) {
	var vessels []models.Vessel
	if err := json.Unmarshal(body, &vessels); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	for i, v := range vessels {
		if v.VesselID == "" {
			return nil, fmt.Errorf("%w: row %d has no vessel_id", ErrDecode, i)
		}
	}
	return vessels, nil
}
