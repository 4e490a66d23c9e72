package comm_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-ml-dataset/internal/comm"
)

// runRanks executes fn once per rank on its own goroutine and waits for all
// of them, mirroring how the job runner drives the group.
func runRanks(t *testing.T, size int, fn func(c *comm.Comm)) {
	t.Helper()
	comms := comm.NewGroup(size)
	var wg sync.WaitGroup
	for _, c := range comms {
		wg.Add(1)
		go func(c *comm.Comm) {
			defer wg.Done()
			fn(c)
		}(c)
	}
	wg.Wait()
}

func TestGroupIdentity(t *testing.T) {
	comms := comm.NewGroup(3)
	require.Len(t, comms, 3)
	for r, c := range comms {
		assert.Equal(t, r, c.Rank())
		assert.Equal(t, 3, c.Size())
	}
}

func TestBroadcast(t *testing.T) {
	var mu sync.Mutex
	got := map[int][]string{}

	runRanks(t, 4, func(c *comm.Comm) {
		var names []string
		if c.Rank() == 0 {
			names = []string{"bathy_mean", "coastal_dist"}
		}
		names = comm.Broadcast(c, 0, names)
		mu.Lock()
		got[c.Rank()] = names
		mu.Unlock()
	})

	for r := 0; r < 4; r++ {
		assert.Equal(t, []string{"bathy_mean", "coastal_dist"}, got[r], "rank %d", r)
	}
}

func TestGather_RankOrder(t *testing.T) {
	var root []int

	runRanks(t, 5, func(c *comm.Comm) {
		counts := comm.Gather(c, 0, c.Rank()*10)
		if c.Rank() == 0 {
			root = counts
		}
	})

	assert.Equal(t, []int{0, 10, 20, 30, 40}, root)
}

func TestGatherv_PlacementByRank(t *testing.T) {
	// Rank r contributes r+1 copies of float64(r).
	var (
		got []float64
		err error
	)

	runRanks(t, 3, func(c *comm.Comm) {
		local := make([]float64, c.Rank()+1)
		for i := range local {
			local[i] = float64(c.Rank())
		}
		counts := comm.Gather(c, 0, len(local))
		res, gerr := comm.Gatherv(c, 0, local, counts)
		if c.Rank() == 0 {
			got, err = res, gerr
		}
	})

	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1, 2, 2, 2}, got)
}

func TestGatherv_EmptyContribution(t *testing.T) {
	var got []int64

	runRanks(t, 3, func(c *comm.Comm) {
		var local []int64
		if c.Rank() == 1 {
			local = []int64{41, 42}
		}
		counts := comm.Gather(c, 0, len(local))
		res, err := comm.Gatherv(c, 0, local, counts)
		if c.Rank() == 0 {
			require.NoError(t, err)
			got = res
		}
	})

	assert.Equal(t, []int64{41, 42}, got)
}

func TestBackToBackCollectives(t *testing.T) {
	// Two gathers in a row must not interleave even when ranks race ahead.
	var first, second []int

	runRanks(t, 4, func(c *comm.Comm) {
		a := comm.Gather(c, 0, c.Rank())
		b := comm.Gather(c, 0, c.Rank()+100)
		if c.Rank() == 0 {
			first, second = a, b
		}
	})

	assert.Equal(t, []int{0, 1, 2, 3}, first)
	assert.Equal(t, []int{100, 101, 102, 103}, second)
}

func TestSingleRankGroup(t *testing.T) {
	runRanks(t, 1, func(c *comm.Comm) {
		c.Barrier()
		v := comm.Broadcast(c, 0, 7)
		assert.Equal(t, 7, v)
		counts := comm.Gather(c, 0, 3)
		assert.Equal(t, []int{3}, counts)
		res, err := comm.Gatherv(c, 0, []float64{1, 2, 3}, counts)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3}, res)
	})
}
