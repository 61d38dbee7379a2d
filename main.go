package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pontosflow/config"
	"pontosflow/internal/pipeline"
	"pontosflow/logger"
	"pontosflow/models"
	"pontosflow/reader/pontos"
	"pontosflow/writer"
)

const (
	defaultVesselID = "name_SD401Fredrika"
	defaultDate     = "2023-11-07"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitConfig    = 2
	exitTransport = 3
	exitDecode    = 4
)

var errConfig = errors.New("configuration error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	fs := flag.NewFlagSet("pontosflow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: pontosflow [-config path] list")
		fmt.Fprintln(stderr, "       pontosflow [-config path] data [-vessel-id id] [-date YYYY-MM-DD] [-out dir] [-format csv|parquet] [-nest]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitConfig
	}

	cfg, err := config.LoadOrDefault(config.ResolvePath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return exitConfig
	}
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return exitConfig
	}

	log.WithFields(logger.Fields{
		"service": cfg.Pontosflow.Name,
		"version": cfg.Pontosflow.Version,
		"env":     config.AppEnvironment(),
	}).Info("starting pontosflow")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(ctx, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Metrics.CloudWatch.Dashboard)
	}

	start := time.Now()
	switch cmd := fs.Arg(0); cmd {
	case "list":
		err = runList(ctx, cfg, stdout)
	case "data":
		err = runData(ctx, cfg, fs.Args()[1:], stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return exitConfig
	}

	logger.Summary(ctx, log, time.Since(start))
	if err != nil {
		log.WithComponent("main").WithError(err).Error("pontosflow failed")
		return exitCode(err)
	}
	return exitOK
}

func newClient(cfg *config.Config) (*pontos.Client, error) {
	token, err := config.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	client, err := pontos.NewClient(cfg, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	return client, nil
}

func runList(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	return pipeline.ListVessels(ctx, client, stdout)
}

func runData(ctx context.Context, cfg *config.Config, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("data", flag.ContinueOnError)
	fs.SetOutput(stderr)
	vesselID := fs.String("vessel-id", defaultVesselID, "Vessel to export")
	date := fs.String("date", defaultDate, "UTC day to export (YYYY-MM-DD)")
	out := fs.String("out", cfg.Export.Dir, "Output directory")
	format := fs.String("format", cfg.Export.Format, "Export format: csv or parquet")
	nest := fs.Bool("nest", cfg.Export.NestByVessel, "Write files into a <vessel_id>_<date> sub directory")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	day, err := models.ParseDay(*date)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	enc, err := writer.NewEncoder(*format, cfg.Export.TimeFormat)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	runID := pipeline.NewRunID()
	sinks := []writer.Sink{writer.NewFileSink(*out, *nest)}
	if cfg.Storage.S3.Enabled {
		s3Sink, err := writer.NewS3Sink(ctx, cfg.Storage.S3, runID)
		if err != nil {
			return fmt.Errorf("%w: %w", errConfig, err)
		}
		sinks = append(sinks, s3Sink)
	}

	res, err := pipeline.New(client, writer.NewExporter(enc, sinks...), runID).ExportDay(ctx, *vesselID, day)
	if err != nil {
		return err
	}
	logger.GetLogger().WithRunID(res.RunID).WithComponent("main").WithFields(logger.Fields{
		"vessel_id": res.VesselID,
		"date":      models.FormatDay(res.Day),
		"files":     len(res.Files),
		"positions": res.Positions,
	}).Info("export finished")
	return nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errConfig), errors.Is(err, config.ErrMissingToken):
		return exitConfig
	case pontos.IsTransport(err):
		return exitTransport
	case pontos.IsDecode(err):
		return exitDecode
	default:
		return exitFailure
	}
}
