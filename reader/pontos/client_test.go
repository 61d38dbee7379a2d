package pontos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"pontosflow/config"
	"pontosflow/models"
)

func minimalConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Source.Pontos.URL = url
	cfg.Reader.Timeout = 5 * time.Second
	return cfg
}

func testDay(t *testing.T) models.TimeRange {
	t.Helper()
	day, err := models.ParseDay("2023-11-07")
	if err != nil {
		t.Fatalf("ParseDay: %v", err)
	}
	return models.DayRange(day)
}

func TestNewClientRequiresToken(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer server.Close()

	if _, err := NewClient(minimalConfig(server.URL), ""); !errors.Is(err, config.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if atomic.LoadInt64(&hits) != 0 {
		t.Fatalf("no request should be made without a token")
	}
}

func TestFetchSamplesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/vessel_data" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "pontosflow/1.0" {
			t.Errorf("unexpected User-Agent %q", got)
		}
		q := r.URL.Query()
		if got := q.Get("vessel_id"); got != "eq.name_SD401Fredrika" {
			t.Errorf("vessel_id filter = %q", got)
		}
		if got := q.Get("parameter_id"); got != "eq.positioningsystem_sog_kn_1" {
			t.Errorf("parameter_id filter = %q", got)
		}
		times := q["time"]
		if len(times) != 2 || times[0] != "gte.2023-11-07T00:00:00Z" || times[1] != "lt.2023-11-08T00:00:00Z" {
			t.Errorf("time filters = %v", times)
		}
		if got := q.Get("select"); got != "time,parameter_id,value" {
			t.Errorf("select = %q", got)
		}
		if q.Has("limit") {
			t.Errorf("unpaged query should not send limit")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"time":"2023-11-07T00:00:01.000123+00:00","parameter_id":"positioningsystem_sog_kn_1","value":"7.5"},
			{"time":"2023-11-07T00:00:00Z","parameter_id":"positioningsystem_sog_kn_1","value":7.25}
		]`)
	}))
	defer server.Close()

	client, err := NewClient(minimalConfig(server.URL+"/api"), "secret")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	samples, err := client.FetchSamples(context.Background(), "name_SD401Fredrika", models.Speed, testDay(t))
	if err != nil {
		t.Fatalf("FetchSamples: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	want := time.Date(2023, 11, 7, 0, 0, 1, 123000, time.UTC)
	if !samples[0].Time.Equal(want) || samples[0].Value != 7.5 {
		t.Errorf("unexpected first sample %+v", samples[0])
	}
	if samples[1].Value != 7.25 {
		t.Errorf("numeric value not decoded: %+v", samples[1])
	}
	if samples[0].Time.Location() != time.UTC {
		t.Errorf("sample time not normalised to UTC")
	}
}

func TestFetchSamplesPaging(t *testing.T) {
	const total = 5
	var requests int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit != 2 {
			t.Errorf("limit = %d", limit)
		}
		fmt.Fprint(w, "[")
		for i := offset; i < total && i < offset+limit; i++ {
			if i > offset {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"time":"2023-11-07T00:00:%02dZ","value":"%d"}`, i, i)
		}
		fmt.Fprint(w, "]")
	}))
	defer server.Close()

	cfg := minimalConfig(server.URL)
	cfg.Reader.PageSize = 2
	client, err := NewClient(cfg, "secret")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	samples, err := client.FetchSamples(context.Background(), "v", models.Heading, testDay(t))
	if err != nil {
		t.Fatalf("FetchSamples: %v", err)
	}
	if len(samples) != total {
		t.Fatalf("expected %d samples, got %d", total, len(samples))
	}
	for i, s := range samples {
		if s.Value != float32(i) {
			t.Errorf("sample %d has value %v", i, s.Value)
		}
	}
	if n := atomic.LoadInt64(&requests); n != 3 {
		t.Errorf("expected 3 page requests, got %d", n)
	}
}

func TestFetchSamplesErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		kind    error
		unauthz bool
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, ErrTransport, false},
		{"unauthorized", http.StatusUnauthorized, `{"message":"JWT expired"}`, ErrTransport, true},
		{"not json", http.StatusOK, `<html>`, ErrDecode, false},
		{"bad value", http.StatusOK, `[{"time":"2023-11-07T00:00:00Z","value":"abc"}]`, ErrDecode, false},
		{"null value", http.StatusOK, `[{"time":"2023-11-07T00:00:00Z","value":null}]`, ErrDecode, false},
		{"bad time", http.StatusOK, `[{"time":"yesterday","value":"1"}]`, ErrDecode, false},
		{"wrong parameter", http.StatusOK, `[{"time":"2023-11-07T00:00:00Z","parameter_id":"rudder_angle_deg_1","value":"1"}]`, ErrDecode, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				fmt.Fprint(w, c.body)
			}))
			defer server.Close()

			client, err := NewClient(minimalConfig(server.URL), "secret")
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			samples, err := client.FetchSamples(context.Background(), "v", models.Speed, testDay(t))
			if !errors.Is(err, c.kind) {
				t.Fatalf("expected %v, got %v", c.kind, err)
			}
			if samples != nil {
				t.Errorf("no samples expected on error")
			}
			if got := errors.Is(err, ErrUnauthorized); got != c.unauthz {
				t.Errorf("ErrUnauthorized = %v, want %v", got, c.unauthz)
			}
		})
	}
}

func TestFetchSamplesConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(minimalConfig(url), "secret")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.FetchSamples(context.Background(), "v", models.Speed, testDay(t)); !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestVesselIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vessel_ids" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `[{"vessel_id":"name_SD401Fredrika"},{"vessel_id":"imo_9375252"}]`)
	}))
	defer server.Close()

	client, err := NewClient(minimalConfig(server.URL), "secret")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	vessels, err := client.VesselIDs(context.Background())
	if err != nil {
		t.Fatalf("VesselIDs: %v", err)
	}
	if len(vessels) != 2 || vessels[0].String() != "name_SD401Fredrika" || vessels[1].VesselID != "imo_9375252" {
		t.Fatalf("unexpected vessels %v", vessels)
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	cfg := minimalConfig(server.URL)
	cfg.Reader.RateLimit.RequestsPerSecond = 1
	client, err := NewClient(cfg, "secret")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.FetchSamples(context.Background(), "v", models.Speed, testDay(t)); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := client.FetchSamples(ctx, "v", models.Speed, testDay(t)); !IsTransport(err) {
		t.Fatalf("expected limiter wait to fail with transport error, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2023, 11, 7, 12, 30, 0, 500000000, time.UTC)
	for _, s := range []string{
		"2023-11-07T12:30:00.5Z",
		"2023-11-07T14:30:00.5+02:00",
		"2023-11-07T12:30:00.5",
		"2023-11-07 12:30:00.5+00",
	} {
		got, err := parseTimestamp(s)
		if err != nil {
			t.Errorf("parseTimestamp(%q): %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", s, got, want)
		}
	}
}
