package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	hdf5adapter "github.com/couchcryptid/storm-ml-dataset/internal/adapter/hdf5"
	httpadapter "github.com/couchcryptid/storm-ml-dataset/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-ml-dataset/internal/adapter/kafka"
	"github.com/couchcryptid/storm-ml-dataset/internal/comm"
	"github.com/couchcryptid/storm-ml-dataset/internal/config"
	"github.com/couchcryptid/storm-ml-dataset/internal/dataset"
	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
	"github.com/couchcryptid/storm-ml-dataset/internal/extract"
	"github.com/couchcryptid/storm-ml-dataset/internal/observability"
)

// runCreate executes one distributed dataset build and writes the result.
func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "dataset name (overrides STORMML_DATASET_NAME)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *name != "" {
		cfg.DatasetName = *name
	}
	if cfg.DatasetName == "" {
		return errors.New("dataset name is required (-name or STORMML_DATASET_NAME)")
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	tracker := httpadapter.NewTracker(cfg.Workers)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, tracker, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	maskPath := cfg.LandMask
	if !filepath.IsAbs(maskPath) {
		maskPath = filepath.Join(cfg.DataDir, maskPath)
	}
	mask, err := extract.LoadGridLandMask(maskPath)
	if err != nil {
		return fmt.Errorf("load land mask: %w", err)
	}

	runID := uuid.NewString()
	logger.Info("starting dataset build",
		"run_id", runID, "dataset", cfg.DatasetName, "workers", cfg.Workers)

	metrics.JobRunning.Set(1)
	defer metrics.JobRunning.Set(0)

	opts := dataset.Options{
		DataDir:   cfg.DataDir,
		StormsDir: cfg.StormsDir,
		Loader:    hdf5adapter.Loader{},
		Extractor: extract.Extractor{Mask: mask},
		Params:    cfg.Params,
		Logger:    logger,
		Metrics:   metrics,
		Progress:  tracker,
	}

	result, err := runGroup(cfg.Workers, opts)
	if err != nil {
		return err
	}

	tracker.SetPhase(httpadapter.PhaseWrite)
	outPath := filepath.Join(cfg.DataDir, "datasets", cfg.DatasetName+".hdf5")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create datasets dir: %w", err)
	}

	names := make([]string, len(result.Units))
	for i, u := range result.Units {
		names[i] = u.Label()
	}

	createdAt := domain.Now()
	writeStart := time.Now()
	w := hdf5adapter.NewWriter(logger)
	if err := w.Write(outPath, result.Data, names, cfg.Params, hdf5adapter.Meta{
		RunID:     runID,
		CreatedAt: createdAt,
	}); err != nil {
		return err
	}
	metrics.WriteDuration.Observe(time.Since(writeStart).Seconds())

	if cfg.KafkaEnabled() {
		publishReport(cfg, logger, runID, outPath, createdAt, result)
	}

	tracker.SetPhase(httpadapter.PhaseDone)
	logger.Info("dataset build complete",
		"path", outPath, "processed", result.Processed, "skipped", result.Skipped)
	return nil
}

// runGroup spawns one goroutine per rank and waits for the whole group. The
// coordinator's result (or error) is authoritative.
func runGroup(workers int, opts dataset.Options) (*dataset.Result, error) {
	comms := comm.NewGroup(workers)
	results := make([]*dataset.Result, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for rank, c := range comms {
		wg.Add(1)
		go func(rank int, c *comm.Comm) {
			defer wg.Done()
			results[rank], errs[rank] = dataset.Run(c, opts)
		}(rank, c)
	}
	wg.Wait()

	if errs[0] != nil {
		return nil, errs[0]
	}
	for rank, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", rank, err)
		}
	}
	return results[0], nil
}

// publishReport delivers the run report; failure is logged, never fatal.
func publishReport(cfg *config.Config, logger *slog.Logger, runID, outPath string, createdAt time.Time, result *dataset.Result) {
	rows := make(map[string]int, len(result.Data))
	for key, t := range result.Data {
		rows[key] = t.Rows()
	}

	reporter := kafkaadapter.NewReporter(cfg, logger)
	defer reporter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	err := reporter.Publish(ctx, kafkaadapter.RunReport{
		RunID:       runID,
		DatasetName: cfg.DatasetName,
		DatasetPath: outPath,
		CreatedAt:   createdAt,
		Workers:     cfg.Workers,
		Processed:   result.Processed,
		Skipped:     result.Skipped,
		RowsPerKey:  rows,
		Params:      cfg.Params,
	})
	if err != nil {
		logger.Error("run report publish failed", "error", err)
	}
}
