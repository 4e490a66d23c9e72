// Package comm implements blocking collective operations over a fixed group
// of rank goroutines. The topology mirrors a coordinator-plus-peers model:
// every collective is issued by all ranks, and every rank must issue the
// same sequence of collectives, or the group deadlocks. There is no timeout
// and no cancellation inside a collective.
//
// Messages travel over per-rank unbuffered channels, one inbound and one
// outbound channel per rank. Because each rank owns its channel pair and
// channels are FIFO, back-to-back collectives cannot interleave and no
// sequence tagging is needed.
package comm

import "fmt"

type group struct {
	size int
	// up[r] carries rank r's contribution to the collective root;
	// down[r] carries the root's payload to rank r.
	up   []chan any
	down []chan any
}

// Comm is one rank's handle on the group. It is not safe for concurrent use
// by multiple goroutines; each rank goroutine owns exactly one Comm.
type Comm struct {
	g    *group
	rank int
}

// NewGroup creates a fixed group of size ranks and returns one Comm per
// rank, indexed by rank. Rank 0 is the coordinator by convention, though
// any rank may act as the root of an individual collective.
func NewGroup(size int) []*Comm {
	if size < 1 {
		panic(fmt.Sprintf("comm: group size %d < 1", size))
	}
	g := &group{
		size: size,
		up:   make([]chan any, size),
		down: make([]chan any, size),
	}
	for r := 0; r < size; r++ {
		g.up[r] = make(chan any)
		g.down[r] = make(chan any)
	}
	comms := make([]*Comm, size)
	for r := 0; r < size; r++ {
		comms[r] = &Comm{g: g, rank: r}
	}
	return comms
}

// Rank returns this rank's identity within the group.
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the group.
func (c *Comm) Size() int { return c.g.size }

// Barrier blocks until every rank in the group has entered it.
func (c *Comm) Barrier() {
	if c.g.size == 1 {
		return
	}
	if c.rank == 0 {
		for r := 1; r < c.g.size; r++ {
			<-c.g.up[r]
		}
		for r := 1; r < c.g.size; r++ {
			c.g.down[r] <- nil
		}
		return
	}
	c.g.up[c.rank] <- nil
	<-c.g.down[c.rank]
}

// Broadcast distributes root's value to every rank and returns it. Non-root
// ranks pass the zero value; all ranks return root's v.
func Broadcast[T any](c *Comm, root int, v T) T {
	if c.g.size == 1 {
		return v
	}
	if c.rank == root {
		for r := 0; r < c.g.size; r++ {
			if r == root {
				continue
			}
			c.g.down[r] <- v
		}
		return v
	}
	return (<-c.g.down[c.rank]).(T)
}

// Gather collects one value per rank at root. The result is indexed by rank
// and is nil on non-root ranks.
func Gather[T any](c *Comm, root int, v T) []T {
	if c.rank != root {
		c.g.up[c.rank] <- v
		return nil
	}
	out := make([]T, c.g.size)
	for r := 0; r < c.g.size; r++ {
		if r == root {
			out[r] = v
			continue
		}
		out[r] = (<-c.g.up[r]).(T)
	}
	return out
}

// Gatherv performs a variable-length gather. Each rank contributes its local
// slice; root receives all contributions in one destination buffer, rank r's
// elements placed at the offset equal to the sum of counts[0:r]. counts is
// the per-rank element count, required at root and ignored elsewhere. The
// result is nil on non-root ranks.
//
// Rank order in the destination buffer is load-bearing: every key gathered
// through this call sees the identical per-rank placement, which is what
// keeps independently gathered keys row-aligned.
func Gatherv[E any](c *Comm, root int, local []E, counts []int) ([]E, error) {
	if c.rank != root {
		c.g.up[c.rank] <- local
		return nil, nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	dst := make([]E, total)
	off := 0
	for r := 0; r < c.g.size; r++ {
		var part []E
		if r == root {
			part = local
		} else {
			part = (<-c.g.up[r]).([]E)
		}
		if len(part) != counts[r] {
			return nil, fmt.Errorf("comm: rank %d sent %d elements, expected %d", r, len(part), counts[r])
		}
		copy(dst[off:], part)
		off += counts[r]
	}
	return dst, nil
}
