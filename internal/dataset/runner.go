// Package dataset implements the distributed dataset build: static
// round-robin work partitioning across a fixed rank group, per-rank
// accumulation and consolidation of extraction results, and the per-key
// collective gather that assembles the global dataset on the coordinator.
package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/storm-ml-dataset/internal/comm"
	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
	"github.com/couchcryptid/storm-ml-dataset/internal/mesh"
	"github.com/couchcryptid/storm-ml-dataset/internal/observability"
	"github.com/couchcryptid/storm-ml-dataset/internal/tensor"
)

// Extractor turns one unit into a named-array record. Returning an error
// wrapping domain.ErrNoUnitData marks a soft skip; any other error is
// likewise isolated to the unit and never aborts the rank's remaining work.
type Extractor interface {
	Extract(unit domain.Unit, store *mesh.Store, params domain.Params) (domain.Record, error)
}

// Progress observes coordinator-side build state, feeding the optional
// status endpoint. Implementations must be safe for concurrent reads.
type Progress interface {
	SetPhase(phase string)
	SetUnits(n int)
}

// Phases reported through Progress, in order.
const (
	PhaseSetup  = "setup"
	PhaseMap    = "map"
	PhaseGather = "gather"
)

// Options configures one distributed build.
type Options struct {
	DataDir   string
	StormsDir string // subdirectory of DataDir holding the storm directories
	Loader    mesh.Loader
	Extractor Extractor
	Params    domain.Params
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	Progress  Progress // optional
}

// Result is the coordinator's view of a finished build. Non-coordinator
// ranks receive a Result with a nil Data map.
type Result struct {
	Data      map[string]tensor.Tensor
	Units     []domain.Unit // canonical unit list, identical on every rank
	Processed int           // units contributing rows, summed over ranks
	Skipped   int           // units skipped (no data or extraction error)
}

// unitList is the single enumeration broadcast from the coordinator.
type unitList struct {
	Units  []domain.Unit
	Failed bool
}

// Run executes the build on one rank. All ranks proceed in lockstep through
// setup (enumerate + broadcast, reference store build + barrier), the fully
// parallel map phase, and the per-key gather. Any setup or gather failure is
// fatal for the whole group.
func Run(c *comm.Comm, opts Options) (*Result, error) {
	logger := opts.Logger.With("rank", c.Rank())

	setPhase(c, opts, PhaseSetup)
	units, err := distributeUnits(c, opts)
	if err != nil {
		return nil, err
	}
	if opts.Progress != nil && c.Rank() == 0 {
		opts.Progress.SetUnits(len(units))
	}

	store, err := mesh.Build(c, opts.DataDir, opts.Loader, logger)
	if err != nil {
		return nil, err
	}

	setPhase(c, opts, PhaseMap)
	local, processed, skipped, err := mapPhase(c, units, store, opts, logger)
	if err != nil {
		return nil, err
	}

	setPhase(c, opts, PhaseGather)
	gatherStart := time.Now()
	data, err := GatherAll(c, local, logger)
	if err != nil {
		return nil, err
	}
	if opts.Metrics != nil {
		opts.Metrics.GatherPhaseDuration.Observe(time.Since(gatherStart).Seconds())
		if c.Rank() == 0 {
			for _, t := range data {
				opts.Metrics.KeysGathered.Inc()
				opts.Metrics.RowsGathered.Add(float64(t.Rows()))
			}
		}
	}

	res := &Result{Data: data, Units: units}
	for _, n := range comm.Gather(c, 0, processed) {
		res.Processed += n
	}
	for _, n := range comm.Gather(c, 0, skipped) {
		res.Skipped += n
	}
	return res, nil
}

// setPhase reports a phase transition from the coordinator.
func setPhase(c *comm.Comm, opts Options, phase string) {
	if opts.Progress != nil && c.Rank() == 0 {
		opts.Progress.SetPhase(phase)
	}
}

// distributeUnits enumerates the storm directories on the coordinator and
// broadcasts the identical ordered list to every rank.
func distributeUnits(c *comm.Comm, opts Options) ([]domain.Unit, error) {
	var (
		list    unitList
		enumErr error
	)
	if c.Rank() == 0 {
		list.Units, enumErr = Enumerate(filepath.Join(opts.DataDir, opts.StormsDir))
		list.Failed = enumErr != nil
	}
	list = comm.Broadcast(c, 0, list)
	if list.Failed {
		if c.Rank() == 0 {
			return nil, enumErr
		}
		return nil, errors.New("dataset: unit enumeration failed on coordinator")
	}
	return list.Units, nil
}

// Enumerate discovers the processable units once: every subdirectory of
// stormsDir whose name contains no dot, in sorted name order. The index
// assigned here is the unit's identity for the rest of the run.
func Enumerate(stormsDir string) ([]domain.Unit, error) {
	entries, err := os.ReadDir(stormsDir)
	if err != nil {
		return nil, fmt.Errorf("enumerate storm dirs: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.Contains(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	units := make([]domain.Unit, len(names))
	for i, name := range names {
		units[i] = domain.Unit{Path: filepath.Join(stormsDir, name), Index: i}
	}
	return units, nil
}

// mapPhase extracts this rank's assigned units and accumulates the results.
// Per-unit failures are logged and isolated; they contribute zero rows.
func mapPhase(c *comm.Comm, units []domain.Unit, store *mesh.Store, opts Options, logger *slog.Logger) (map[string]tensor.Tensor, int, int, error) {
	acc := NewAccumulator()
	skipped := 0
	start := time.Now()

	for _, i := range Assign(len(units), c.Rank(), c.Size()) {
		rec, err := opts.Extractor.Extract(units[i], store, opts.Params)
		if err != nil {
			skipped++
			if opts.Metrics != nil {
				opts.Metrics.UnitsSkipped.Inc()
			}
			if errors.Is(err, domain.ErrNoUnitData) {
				logger.Info("storm missing data, skipped", "storm", units[i].Label(), "index", i)
			} else {
				logger.Warn("storm extraction failed, skipped", "storm", units[i].Label(), "index", i, "error", err)
			}
			continue
		}
		acc.Add(i, rec)
		if opts.Metrics != nil {
			opts.Metrics.UnitsProcessed.Inc()
		}
	}

	processed := acc.Units()
	local, err := acc.Consolidate()
	if err != nil {
		return nil, 0, 0, err
	}
	if opts.Metrics != nil {
		opts.Metrics.MapPhaseDuration.Observe(time.Since(start).Seconds())
	}
	return local, processed, skipped, nil
}
