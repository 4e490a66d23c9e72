package dataset

import (
	"fmt"

	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
	"github.com/couchcryptid/storm-ml-dataset/internal/tensor"
)

// Accumulator collects per-unit extraction fragments on one rank during the
// map phase. Fragments are kept in unit processing order per key and merged
// into one local tensor per key by Consolidate.
type Accumulator struct {
	frags map[string][]tensor.Tensor
	units int
}

// NewAccumulator returns an empty per-rank accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{frags: make(map[string][]tensor.Tensor)}
}

// Add tags the record with the synthetic storm provenance column and
// appends every key's fragment. The storm column is the unit's global index
// repeated once per selected row, which is what lets downstream analysis
// recover per-row provenance after all keys are flattened.
func (a *Accumulator) Add(unitIndex int, rec domain.Record) {
	rows := rec.SelectedRows()
	storm := make([]int64, rows)
	for i := range storm {
		storm[i] = int64(unitIndex)
	}
	rec[domain.KeyStorm] = tensor.FromInts(storm)

	for key, frag := range rec {
		a.frags[key] = append(a.frags[key], frag)
	}
	a.units++
}

// Units returns the number of records accumulated so far.
func (a *Accumulator) Units() int { return a.units }

// Consolidate merges each key's fragments into one local tensor and
// releases the fragment storage, so peak memory on a rank is bounded by one
// consolidated copy rather than every unit's intermediates. The Accumulator
// is empty afterwards.
func (a *Accumulator) Consolidate() (map[string]tensor.Tensor, error) {
	local := make(map[string]tensor.Tensor, len(a.frags))
	for key, frags := range a.frags {
		merged, err := tensor.Concat(frags)
		if err != nil {
			return nil, fmt.Errorf("consolidate key %q: %w", key, err)
		}
		local[key] = merged
		delete(a.frags, key)
	}
	a.units = 0
	return local, nil
}
