package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/couchcryptid/storm-ml-dataset/internal/comm"
	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
	"github.com/couchcryptid/storm-ml-dataset/internal/tensor"
)

// keyHeader is one rank's contribution to the per-key length exchange.
type keyHeader struct {
	Rows     int
	Trailing []int
	Dtype    tensor.Dtype
}

// verdict is the coordinator's per-key decision, broadcast so that every
// rank issues (or skips) the data gather in lockstep. Aborting through a
// verdict instead of returning early is what keeps a shape mismatch from
// deadlocking ranks already blocked in the next collective.
type verdict struct {
	Action uint8 // one of verdictGather, verdictSkip, verdictAbort
	Dtype  tensor.Dtype
}

const (
	verdictGather uint8 = iota
	verdictSkip
	verdictAbort
)

// GatherAll assembles every key of the per-rank local data into the
// coordinator's address space. Keys are visited in a single globally agreed
// order: the lexicographically sorted union of all ranks' key sets, so each
// rank issues the identical sequence of collectives even when its local key
// set differs.
//
// Per key, one length exchange reports each rank's row count and trailing
// shape, then one variable-length gather moves the flattened data, placed
// in increasing-rank order. Keys with zero rows on every rank are skipped
// with a warning. A dtype or trailing-shape disagreement between ranks is a
// fatal *domain.ShapeMismatchError for the whole job.
//
// Non-coordinator ranks release each key's local tensor right after its
// gather, so a rank's resident memory is bounded by one key's data. The
// returned map is populated only on the coordinator.
func GatherAll(c *comm.Comm, local map[string]tensor.Tensor, logger *slog.Logger) (map[string]tensor.Tensor, error) {
	keys := sharedKeyOrder(c, local)

	var out map[string]tensor.Tensor
	if c.Rank() == 0 {
		out = make(map[string]tensor.Tensor, len(keys))
	}

	for _, key := range keys {
		lt := local[key]
		hdrs := comm.Gather(c, 0, keyHeader{Rows: lt.Rows(), Trailing: lt.Trailing(), Dtype: lt.Dtype()})

		var (
			v        verdict
			counts   []int
			total    int
			trailing []int
			vErr     error
		)
		if c.Rank() == 0 {
			v, counts, total, trailing, vErr = decide(key, hdrs)
		}
		v = comm.Broadcast(c, 0, v)

		switch v.Action {
		case verdictAbort:
			if c.Rank() == 0 {
				return nil, vErr
			}
			return nil, errors.New("dataset: gather aborted by coordinator")
		case verdictSkip:
			if c.Rank() == 0 {
				logger.Warn("key contributed no rows on any rank, skipping", "key", key)
			}
			delete(local, key)
			continue
		}

		var gathered tensor.Tensor
		var err error
		switch v.Dtype {
		case tensor.Int64:
			var data []int64
			data, err = comm.Gatherv(c, 0, lt.Ints, counts)
			gathered = tensor.FromInts(data, append([]int{total}, trailing...)...)
		default:
			var data []float64
			data, err = comm.Gatherv(c, 0, lt.Floats, counts)
			gathered = tensor.FromFloats(data, append([]int{total}, trailing...)...)
		}
		if err != nil {
			return nil, err
		}

		// Release the local copy before moving to the next key so ranks
		// never hold all keys' local data simultaneously.
		delete(local, key)

		if c.Rank() == 0 {
			out[key] = gathered
			logger.Info("gathered key", "key", key, "shape", gathered.Shape)
		}
	}
	return out, nil
}

// sharedKeyOrder computes the lexicographically sorted union of every
// rank's key set and distributes it, giving all ranks one shared iteration
// sequence for the collective rounds.
func sharedKeyOrder(c *comm.Comm, local map[string]tensor.Tensor) []string {
	mine := make([]string, 0, len(local))
	for key := range local {
		mine = append(mine, key)
	}
	sort.Strings(mine)

	perRank := comm.Gather(c, 0, mine)

	var keys []string
	if c.Rank() == 0 {
		seen := make(map[string]bool)
		for _, rankKeys := range perRank {
			for _, key := range rankKeys {
				if !seen[key] {
					seen[key] = true
					keys = append(keys, key)
				}
			}
		}
		sort.Strings(keys)
	}
	return comm.Broadcast(c, 0, keys)
}

// decide validates the per-rank headers for one key and produces the
// coordinator's verdict plus the element counts and output shape for the
// data gather. The reference shape comes from the first rank reporting any
// rows for the key.
func decide(key string, hdrs []keyHeader) (verdict, []int, int, []int, error) {
	ref := -1
	total := 0
	for r, h := range hdrs {
		if h.Rows == 0 {
			continue
		}
		total += h.Rows
		if ref < 0 {
			ref = r
			continue
		}
		if h.Dtype != hdrs[ref].Dtype || !sameShape(h.Trailing, hdrs[ref].Trailing) {
			err := &domain.ShapeMismatchError{
				Key:  key,
				Rank: r,
				Got:  shapeString(h),
				Want: shapeString(hdrs[ref]),
			}
			return verdict{Action: verdictAbort}, nil, 0, nil, err
		}
	}

	if ref < 0 {
		return verdict{Action: verdictSkip}, nil, 0, nil, nil
	}

	trailing := hdrs[ref].Trailing
	elemsPerRow := 1
	for _, d := range trailing {
		elemsPerRow *= d
	}
	counts := make([]int, len(hdrs))
	for r, h := range hdrs {
		counts[r] = h.Rows * elemsPerRow
	}
	return verdict{Action: verdictGather, Dtype: hdrs[ref].Dtype}, counts, total, trailing, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func shapeString(h keyHeader) string {
	if len(h.Trailing) == 0 {
		return h.Dtype.String()
	}
	return fmt.Sprintf("%s with trailing shape %v", h.Dtype, h.Trailing)
}
