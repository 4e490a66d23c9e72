// Package mesh holds the shared reference store: precomputed per-mesh-node
// arrays (coastal distance, bathymetry statistics) replicated once per node
// and read by every rank during the map phase.
package mesh

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/couchcryptid/storm-ml-dataset/internal/comm"
	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
)

// Loader reads the named reference arrays from a data directory. It is
// invoked once, by the coordinator only.
type Loader interface {
	Load(dir string) (map[string][]float64, error)
}

// Store is the read-only handle on the shared reference arrays. It is built
// collectively before the map phase and never mutated afterwards, so ranks
// read it without locking. Within a group all ranks share the same backing
// arrays; the build-side barrier guarantees no rank observes them before
// the coordinator has finished populating.
type Store struct {
	names    []string
	numNodes int
	vars     map[string][]float64
}

// header is the single setup broadcast: variable names in their canonical
// order, the common array length, and whether the coordinator's load failed.
type header struct {
	Names    []string
	NumNodes int
	Failed   bool
}

// Build constructs the store collectively. The coordinator loads and
// validates the arrays, broadcasts the variable-name set and node count in
// one collective, then distributes each named array; all ranks synchronize
// before the store is returned, so a returned Store is safe to read.
//
// A length disagreement between reference arrays is a fatal
// *domain.InconsistentLengthError on the coordinator; non-coordinator ranks
// observe a generic setup failure and return before doing any unit work.
func Build(c *comm.Comm, dir string, loader Loader, logger *slog.Logger) (*Store, error) {
	var (
		vars    map[string][]float64
		hdr     header
		loadErr error
	)

	if c.Rank() == 0 {
		vars, loadErr = loader.Load(dir)
		if loadErr == nil {
			hdr, loadErr = validate(vars)
		}
		hdr.Failed = loadErr != nil
	}

	hdr = comm.Broadcast(c, 0, hdr)
	if hdr.Failed {
		if c.Rank() == 0 {
			return nil, loadErr
		}
		return nil, errors.New("mesh: reference store setup failed on coordinator")
	}

	s := &Store{
		names:    hdr.Names,
		numNodes: hdr.NumNodes,
		vars:     make(map[string][]float64, len(hdr.Names)),
	}
	for _, name := range hdr.Names {
		var arr []float64
		if c.Rank() == 0 {
			arr = vars[name]
		}
		s.vars[name] = comm.Broadcast(c, 0, arr)
	}

	// No rank may read until the coordinator has distributed every array.
	c.Barrier()

	if c.Rank() == 0 {
		logger.Info("reference store built", "vars", len(s.names), "num_nodes", s.numNodes)
	}
	return s, nil
}

// validate checks that every reference array has the same length and
// returns the canonical (sorted) name order.
func validate(vars map[string][]float64) (header, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	numNodes := -1
	for _, name := range names {
		if numNodes < 0 {
			numNodes = len(vars[name])
			continue
		}
		if len(vars[name]) != numNodes {
			return header{}, &domain.InconsistentLengthError{Name: name, Len: len(vars[name]), Want: numNodes}
		}
	}
	if numNodes < 0 {
		numNodes = 0
	}
	return header{Names: names, NumNodes: numNodes}, nil
}

// Names returns the variable names in canonical order.
func (s *Store) Names() []string { return s.names }

// NumNodes returns the common length of every reference array.
func (s *Store) NumNodes() int { return s.numNodes }

// Var returns the named reference array. The returned slice is shared and
// read-only; callers must not modify it.
func (s *Store) Var(name string) ([]float64, bool) {
	arr, ok := s.vars[name]
	return arr, ok
}
