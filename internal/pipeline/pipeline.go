// Package pipeline coordinates one export run: fetch, merge and write.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pontosflow/logger"
	"pontosflow/models"
	"pontosflow/processor"
	"pontosflow/writer"
)

// VesselLister lists the vessels known to the data hub.
type VesselLister interface {
	VesselIDs(ctx context.Context) ([]models.Vessel, error)
}

// NewRunID returns a fresh identifier for one invocation.
func NewRunID() string {
	return uuid.NewString()
}

// Result describes a finished day export.
type Result struct {
	RunID     string
	VesselID  string
	Day       time.Time
	Positions int
	Streams   int
	Files     []string
	Elapsed   time.Duration
}

// Pipeline exports a vessel's telemetry for one day.
type Pipeline struct {
	collector *processor.Collector
	exporter  *writer.Exporter
	runID     string
	log       *logger.Log
}

// New wires a Pipeline. An empty runID gets a generated one.
func New(f processor.Fetcher, exp *writer.Exporter, runID string) *Pipeline {
	if runID == "" {
		runID = NewRunID()
	}
	log := logger.GetLogger()
	return &Pipeline{
		collector: processor.NewCollector(f, log),
		exporter:  exp,
		runID:     runID,
		log:       log,
	}
}

// RunID identifies this pipeline's run in logs and uploaded objects.
func (p *Pipeline) RunID() string { return p.runID }

// ExportDay fetches positions and the non-positional streams of vesselID for
// the UTC day of day concurrently, then writes the position file followed by
// one file per non-empty stream. Nothing is written if any fetch fails.
func (p *Pipeline) ExportDay(ctx context.Context, vesselID string, day time.Time) (*Result, error) {
	start := time.Now()
	log := p.log.WithRunID(p.runID).WithComponent("pipeline").WithFields(logger.Fields{
		"vessel_id": vesselID,
		"date":      models.FormatDay(day),
	})
	log.Info("export started")

	var (
		positions []models.Position
		streams   []models.ParameterStream
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		positions, err = p.collector.Positions(gctx, vesselID, day)
		return err
	})
	g.Go(func() error {
		var err error
		streams, err = p.collector.NonPositional(gctx, vesselID, day)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     p.runID,
		VesselID:  vesselID,
		Day:       day,
		Positions: len(positions),
		Streams:   len(streams),
	}

	name, err := p.exporter.WritePositions(ctx, vesselID, day, positions)
	if err != nil {
		return nil, fmt.Errorf("write positions: %w", err)
	}
	res.Files = append(res.Files, name)

	for _, s := range streams {
		name, err := p.exporter.WriteStream(ctx, vesselID, day, s)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", s.Parameter.ShortName(), err)
		}
		res.Files = append(res.Files, name)
	}

	res.Elapsed = time.Since(start)
	logger.LogPerformanceEntry(log, "pipeline", "export_day", res.Elapsed, logger.Fields{
		"positions": res.Positions,
		"streams":   res.Streams,
		"files":     len(res.Files),
	})
	return res, nil
}

// ListVessels writes one vessel id per line to w.
func ListVessels(ctx context.Context, lister VesselLister, w io.Writer) error {
	vessels, err := lister.VesselIDs(ctx)
	if err != nil {
		return err
	}
	for _, v := range vessels {
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}
	logger.GetLogger().WithComponent("pipeline").WithFields(logger.Fields{
		"vessels": len(vessels),
	}).Debug("vessels listed")
	return nil
}
