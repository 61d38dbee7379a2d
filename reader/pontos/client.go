package pontos

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"pontosflow/config"
	"pontosflow/logger"
	"pontosflow/models"
)

const (
	component = "pontos_client"

	// maxErrorBody bounds how much of a failed response ends up in an error.
	maxErrorBody = 512
)

// Client reads vessel data from a PostgREST endpoint of the PONTOS hub.
type Client struct {
	baseURL     *url.URL
	vesselTable string
	dataTable   string
	httpClient  *http.Client
	limiter     *rate.Limiter
	pageSize    int
	log         *logger.Log
}

// NewClient creates a client for the hub configured in cfg. The token is
// sent as a bearer credential on every request; an empty token is rejected
// before any connection is made.
func NewClient(cfg *config.Config, token string) (*Client, error) {
	if token == "" {
		return nil, config.ErrMissingToken
	}

	src := cfg.Source.Pontos
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid pontos url %q: %w", src.URL, err)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:        src.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: src.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     src.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     src.ConnectionPool.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	httpClient := &http.Client{
		Transport: authTransport{token: token, agent: cfg.Reader.UserAgent, base: transport},
		Timeout:   cfg.Reader.Timeout,
	}

	var limiter *rate.Limiter
	if rl := cfg.Reader.RateLimit; rl.RequestsPerSecond > 0 {
		burst := rl.BurstSize
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)
	}

	log := logger.GetLogger()
	log.WithComponent(component).WithFields(logger.Fields{
		"url":                src.URL,
		"max_conns_per_host": src.ConnectionPool.MaxConnsPerHost,
		"timeout":            cfg.Reader.Timeout.String(),
		"page_size":          cfg.Reader.PageSize,
		"rate_limit":         cfg.Reader.RateLimit.RequestsPerSecond,
	}).Debug("pontos client initialized")

	return &Client{
		baseURL:     base,
		vesselTable: src.VesselTable,
		dataTable:   src.DataTable,
		httpClient:  httpClient,
		limiter:     limiter,
		pageSize:    cfg.Reader.PageSize,
		log:         log,
	}, nil
}

// VesselIDs lists the vessels available on the hub.
func (c *Client) VesselIDs(ctx context.Context) ([]models.Vessel, error) {
	q := newQuery(c.vesselTable).Select("vessel_id")
	body, err := c.get(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list vessels: %w", err)
	}
	vessels, err := decodeVessels(body)
	if err != nil {
		return nil, fmt.Errorf("list vessels: %w", err)
	}
	return vessels, nil
}

// FetchSamples returns every sample of parameter p recorded for vesselID
// inside r. The hub is asked for ascending order but callers must not rely
// on it.
func (c *Client) FetchSamples(ctx context.Context, vesselID string, p models.Parameter, r models.TimeRange) ([]models.Sample, error) {
	log := c.log.WithComponent(component).WithFields(logger.Fields{
		"vessel_id": vesselID,
		"parameter": p.ShortName(),
		"operation": "fetch_samples",
	})

	q := newQuery(c.dataTable).
		Select("time,parameter_id,value").
		Eq("vessel_id", vesselID).
		Eq("parameter_id", p.WireID()).
		Gte("time", r.Start).
		Lt("time", r.End).
		Order("time.asc")

	start := time.Now()
	var samples []models.Sample
	for page := 0; ; page++ {
		q.Page(c.pageSize, len(samples))
		body, err := c.get(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("fetch %s for %s: %w", p.ShortName(), vesselID, err)
		}
		batch, err := decodeSamples(body, p.WireID())
		if err != nil {
			return nil, fmt.Errorf("fetch %s for %s: %w", p.ShortName(), vesselID, err)
		}
		samples = append(samples, batch...)

		if c.pageSize <= 0 || len(batch) < c.pageSize {
			log.WithFields(logger.Fields{"pages": page + 1}).Debug("fetch complete")
			break
		}
	}

	logger.LogPerformanceEntry(log, component, "fetch_samples", time.Since(start), logger.Fields{
		"parameter": p.ShortName(),
	})
	logger.LogDataFlowEntry(log, "pontos_api", "collector", len(samples), p.ShortName())
	logger.IncrementFetch(p.ShortName(), len(samples))
	return samples, nil
}

func (c *Client) get(ctx context.Context, q *query) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrTransport, err)
		}
	}

	reqURL := q.URL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %w: %s: %s", ErrTransport, ErrUnauthorized, resp.Status, snippet)
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrTransport, resp.Status, snippet)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	return body, nil
}
