package domain

import (
	"errors"
	"fmt"
)

// ErrNoUnitData marks the soft failure mode: a unit that yields no usable
// extraction. The partitioner logs and skips such units; they contribute
// zero rows to every key and never abort the run.
var ErrNoUnitData = errors.New("unit has no usable data in range")

// InconsistentLengthError is fatal at setup: the reference arrays loaded
// for the shared store disagree in length.
type InconsistentLengthError struct {
	Name string
	Len  int
	Want int
}

func (e *InconsistentLengthError) Error() string {
	return fmt.Sprintf("inconsistent lengths: reference array %q has length %d != %d", e.Name, e.Len, e.Want)
}

// ShapeMismatchError is fatal at gather: two ranks hold data for the same
// key with incompatible dtype or trailing shape. Gathering anyway would
// silently misalign rows, so the whole job aborts instead.
type ShapeMismatchError struct {
	Key  string
	Rank int
	Got  string
	Want string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("key %q: rank %d has %s, rank 0 reference is %s", e.Key, e.Rank, e.Got, e.Want)
}
