package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"pontosflow/internal/pipeline"
	"pontosflow/models"
	"pontosflow/writer"
)

var day = time.Date(2023, 11, 7, 0, 0, 0, 0, time.UTC)

// hub is a deterministic in-memory stand-in for the data hub.
type hub struct {
	data    map[models.Parameter][]models.Sample
	fail    error
	vessels []models.Vessel
}

func (h *hub) FetchSamples(ctx context.Context, vesselID string, p models.Parameter, r models.TimeRange) ([]models.Sample, error) {
	if h.fail != nil && p == models.Heading {
		return nil, h.fail
	}
	out := append([]models.Sample(nil), h.data[p]...)
	return out, nil
}

func (h *hub) VesselIDs(ctx context.Context) ([]models.Vessel, error) {
	if h.fail != nil {
		return nil, h.fail
	}
	return h.vessels, nil
}

func newHub() *hub {
	at := func(sec int) time.Time { return day.Add(time.Duration(sec) * time.Second) }
	return &hub{data: map[models.Parameter][]models.Sample{
		models.Longitude: {{Time: at(3), Value: 11.0}, {Time: at(1), Value: 10.0}, {Time: at(2), Value: 10.5}},
		models.Latitude:  {{Time: at(1), Value: 59.0}, {Time: at(3), Value: 59.5}},
		models.Speed:     {{Time: at(1), Value: 7.5}},
		models.Heading:   {{Time: at(2), Value: 270}},
	}}
}

func newExporter(t *testing.T, dir string) *writer.Exporter {
	t.Helper()
	enc, err := writer.NewEncoder("csv", "")
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	return writer.NewExporter(enc, writer.NewFileSink(dir, true))
}

func readDir(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	out := map[string][]byte{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		out[e.Name()] = data
	}
	return out
}

func TestExportDay(t *testing.T) {
	dir := t.TempDir()
	p := pipeline.New(newHub(), newExporter(t, dir), "run-1")

	res, err := p.ExportDay(context.Background(), "name_SD401Fredrika", day)
	if err != nil {
		t.Fatalf("ExportDay: %v", err)
	}
	if res.RunID != "run-1" || res.Positions != 2 || res.Streams != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	wantFiles := []string{"position_2023-11-07.csv", "sog_2023-11-07.csv", "heading_2023-11-07.csv"}
	if strings.Join(res.Files, ",") != strings.Join(wantFiles, ",") {
		t.Fatalf("files = %v, want %v", res.Files, wantFiles)
	}

	files := readDir(t, filepath.Join(dir, "name_SD401Fredrika_2023-11-07"))
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	if strings.Join(names, ",") != "heading_2023-11-07.csv,position_2023-11-07.csv,sog_2023-11-07.csv" {
		t.Fatalf("written files = %v", names)
	}

	wantPos := "time,longitude,latitude\n" +
		"2023-11-07T00:00:01.000000Z,10,59\n" +
		"2023-11-07T00:00:03.000000Z,11,59.5\n"
	if got := string(files["position_2023-11-07.csv"]); got != wantPos {
		t.Errorf("position file:\n%s", got)
	}
}

func TestExportDayIsIdempotent(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	h := newHub()
	if _, err := pipeline.New(h, newExporter(t, first), "").ExportDay(context.Background(), "v", day); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := pipeline.New(h, newExporter(t, second), "").ExportDay(context.Background(), "v", day); err != nil {
		t.Fatalf("second run: %v", err)
	}
	a := readDir(t, filepath.Join(first, "v_2023-11-07"))
	b := readDir(t, filepath.Join(second, "v_2023-11-07"))
	if len(a) != len(b) {
		t.Fatalf("runs wrote %d and %d files", len(a), len(b))
	}
	for name, data := range a {
		if !bytes.Equal(data, b[name]) {
			t.Errorf("%s differs between runs", name)
		}
	}
}

func TestExportDayWritesNothingOnFetchFailure(t *testing.T) {
	dir := t.TempDir()
	h := newHub()
	h.fail = errors.New("timeout")

	res, err := pipeline.New(h, newExporter(t, dir), "").ExportDay(context.Background(), "v", day)
	if !errors.Is(err, h.fail) || res != nil {
		t.Fatalf("expected failure, got %+v, %v", res, err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("files written despite failure: %v", entries)
	}
}

func TestExportDayWithoutPositions(t *testing.T) {
	dir := t.TempDir()
	h := newHub()
	delete(h.data, models.Latitude)

	res, err := pipeline.New(h, newExporter(t, dir), "").ExportDay(context.Background(), "v", day)
	if err != nil {
		t.Fatalf("ExportDay: %v", err)
	}
	if res.Positions != 0 {
		t.Fatalf("expected no positions, got %d", res.Positions)
	}
	data, err := os.ReadFile(filepath.Join(dir, "v_2023-11-07", "position_2023-11-07.csv"))
	if err != nil {
		t.Fatalf("position file missing: %v", err)
	}
	if string(data) != "time,longitude,latitude\n" {
		t.Errorf("unexpected position file %q", data)
	}
}

func TestNewRunIDIsUnique(t *testing.T) {
	a, b := pipeline.NewRunID(), pipeline.NewRunID()
	if a == "" || a == b {
		t.Fatalf("run ids %q and %q", a, b)
	}
	if got := pipeline.New(newHub(), nil, "").RunID(); got == "" {
		t.Fatal("pipeline without run id did not generate one")
	}
}

func TestListVessels(t *testing.T) {
	h := &hub{vessels: []models.Vessel{{VesselID: "name_SD401Fredrika"}, {VesselID: "imo_9375252"}}}
	var buf bytes.Buffer
	if err := pipeline.ListVessels(context.Background(), h, &buf); err != nil {
		t.Fatalf("ListVessels: %v", err)
	}
	if buf.String() != "name_SD401Fredrika\nimo_9375252\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}

	h.fail = errors.New("unauthorized")
	buf.Reset()
	if err := pipeline.ListVessels(context.Background(), h, &buf); !errors.Is(err, h.fail) || buf.Len() != 0 {
		t.Fatalf("expected failure without output, got %v %q", err, buf.String())
	}
}
