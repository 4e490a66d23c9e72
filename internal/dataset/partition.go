package dataset

// Assign returns the unit indices owned by one rank under the static
// round-robin partition: rank, rank+size, rank+2*size, ... The partition is
// data-independent, so a rerun with the same unit list and group size
// reproduces the same assignment; across all ranks it covers every unit
// exactly once.
func Assign(n, rank, size int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, (n-rank+size-1)/size)
	for i := rank; i < n; i += size {
		out = append(out, i)
	}
	return out
}
