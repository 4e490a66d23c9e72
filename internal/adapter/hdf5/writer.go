package hdf5

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	hdf5go "github.com/robert-malhotra/go-hdf5/hdf5"

	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
	"github.com/couchcryptid/storm-ml-dataset/internal/tensor"
)

// Meta is the run metadata attached to the written dataset alongside the
// extraction parameters.
type Meta struct {
	RunID     string
	CreatedAt time.Time
}

// Writer persists the consolidated dataset. It is invoked exactly once, by
// the coordinator, after all keys are gathered.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a dataset writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// Write creates path and stores one HDF5 dataset per key, a parallel
// storm_names dataset labeling every enumerated unit, and the run
// parameters and metadata as attributes on storm_names.
//
// Keys are written in sorted order so reruns produce identical layouts.
// The gather engine is rank-agnostic, but no extractor output exceeds two
// dimensions, so the writer materializes 1-D and 2-D tensors only.
func (w *Writer) Write(path string, data map[string]tensor.Tensor, stormNames []string, params domain.Params, meta Meta) error {
	f, err := hdf5go.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset file %s: %w", path, err)
	}
	defer f.Close()

	root := f.Root()

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := writeTensor(root, key, data[key]); err != nil {
			return err
		}
	}

	_, err = root.CreateDataset("storm_names", stormNames,
		hdf5go.WithAttribute("run_id", meta.RunID),
		hdf5go.WithAttribute("created_at", meta.CreatedAt.UTC().Format(time.RFC3339)),
		hdf5go.WithAttribute("hours_before", params.HoursBefore),
		hdf5go.WithAttribute("hours_after", params.HoursAfter),
		hdf5go.WithAttribute("cutoff_coastal_dist", params.CoastalDistCutoff),
		hdf5go.WithAttribute("max_depth", params.MaxDepth),
		hdf5go.WithAttribute("min_depth", params.MinDepth),
		hdf5go.WithAttribute("r", params.Radius),
		hdf5go.WithAttribute("downsample_factor", int64(params.DownsampleFactor)),
	)
	if err != nil {
		return fmt.Errorf("write storm_names: %w", err)
	}

	w.logger.Info("dataset written", "path", path, "keys", len(keys), "storms", len(stormNames))
	return nil
}

// writeTensor stores one gathered tensor under its key.
func writeTensor(root *hdf5go.Group, key string, t tensor.Tensor) error {
	var payload interface{}
	switch {
	case len(t.Shape) == 1 && t.Dtype() == tensor.Int64:
		payload = t.Ints
	case len(t.Shape) == 1:
		payload = t.Floats
	case len(t.Shape) == 2 && t.Dtype() == tensor.Int64:
		payload = nestInts(t.Ints, t.Shape)
	case len(t.Shape) == 2:
		payload = nestFloats(t.Floats, t.Shape)
	default:
		return fmt.Errorf("write key %q: unsupported rank %d", key, len(t.Shape))
	}
	if _, err := root.CreateDataset(key, payload); err != nil {
		return fmt.Errorf("write key %q: %w", key, err)
	}
	return nil
}

func nestFloats(flat []float64, shape []int) [][]float64 {
	out := make([][]float64, shape[0])
	for i := range out {
		out[i] = flat[i*shape[1] : (i+1)*shape[1]]
	}
	return out
}

func nestInts(flat []int64, shape []int) [][]int64 {
	out := make([][]int64, shape[0])
	for i := range out {
		out[i] = flat[i*shape[1] : (i+1)*shape[1]]
	}
	return out
}
