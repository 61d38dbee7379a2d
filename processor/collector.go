package processor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"pontosflow/logger"
	"pontosflow/models"
)

// Fetcher retrieves the samples of one parameter for one vessel inside a
// time range. Results may arrive in any order.
type Fetcher interface {
	FetchSamples(ctx context.Context, vesselID string, p models.Parameter, r models.TimeRange) ([]models.Sample, error)
}

// Collector fans a day's worth of parameter fetches out to a Fetcher and
// gathers the results.
type Collector struct {
	fetcher Fetcher
	log     *logger.Log
}

// NewCollector returns a Collector backed by f. A nil log uses the global
// logger.
func NewCollector(f Fetcher, log *logger.Log) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Collector{fetcher: f, log: log}
}

// NonPositional fetches every non-positional parameter of vesselID for the
// UTC calendar day of day. All fetches run concurrently and the first
// failure aborts the rest; on error no streams are returned. Parameters that
// recorded nothing are logged and left out of the result, which is ordered
// as models.NonPositional.
func (c *Collector) NonPositional(ctx context.Context, vesselID string, day time.Time) ([]models.ParameterStream, error) {
	params := models.NonPositional()
	streams, err := c.fetchAll(ctx, vesselID, day, params)
	if err != nil {
		return nil, err
	}

	log := c.log.WithComponent("collector").WithFields(logger.Fields{
		"vessel_id": vesselID,
		"date":      models.FormatDay(day),
	})

	nonEmpty := make([]models.ParameterStream, 0, len(streams))
	for _, s := range streams {
		if s.Empty() {
			log.WithFields(logger.Fields{"parameter": s.Parameter.ShortName()}).Info("parameter was empty")
			continue
		}
		nonEmpty = append(nonEmpty, s)
	}

	log.LogMetric("collector", "EmptyStreams", len(streams)-len(nonEmpty), "gauge", logger.Fields{
		"vessel_id": vesselID,
	})
	return nonEmpty, nil
}

// Positions fetches the longitude and latitude streams of vesselID for the
// UTC calendar day of day and pairs them on equal timestamps.
func (c *Collector) Positions(ctx context.Context, vesselID string, day time.Time) ([]models.Position, error) {
	streams, err := c.fetchAll(ctx, vesselID, day, []models.Parameter{models.Longitude, models.Latitude})
	if err != nil {
		return nil, err
	}
	positions := PairPositions(streams[0].Samples, streams[1].Samples)

	c.log.WithComponent("collector").WithFields(logger.Fields{
		"vessel_id": vesselID,
		"date":      models.FormatDay(day),
		"longitude": len(streams[0].Samples),
		"latitude":  len(streams[1].Samples),
		"positions": len(positions),
	}).Debug("positions paired")
	return positions, nil
}

// fetchAll runs one fetch per parameter concurrently. Each goroutine owns
// the result slot at its index, so the output lines up with params
// regardless of completion order. Every stream is sorted by time.
func (c *Collector) fetchAll(ctx context.Context, vesselID string, day time.Time, params []models.Parameter) ([]models.ParameterStream, error) {
	window := models.DayRange(day)
	results := make([]models.ParameterStream, len(params))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range params {
		i, p := i, p
		g.Go(func() error {
			samples, err := c.fetcher.FetchSamples(gctx, vesselID, p, window)
			if err != nil {
				return err
			}
			sortSamples(samples)
			results[i] = models.ParameterStream{Parameter: p, Samples: samples}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.log.WithComponent("collector").WithError(err).WithFields(logger.Fields{
			"vessel_id": vesselID,
			"date":      models.FormatDay(day),
		}).Error("fetch batch failed")
		return nil, err
	}
	return results, nil
}
