package domain

import (
	"path/filepath"

	"github.com/couchcryptid/storm-ml-dataset/internal/tensor"
)

// Reserved key names added by the builder rather than the extractor.
const (
	// KeyStorm is the synthetic provenance column: the owning unit's global
	// index, one entry per selected row.
	KeyStorm = "storm"
	// KeyInds holds the selected mesh node indices and defines a record's
	// row count.
	KeyInds = "inds"
)

// Unit is one storm simulation directory to process. Index is the unit's
// position in the canonical, coordinator-sorted list; every rank holds the
// identical ordered sequence.
type Unit struct {
	Path  string
	Index int
}

// Label returns the human-readable storm name recorded alongside the
// dataset (the directory base name, e.g. "s001").
func (u Unit) Label() string {
	return filepath.Base(u.Path)
}

// Record is the named-array output of extracting one unit. The key set may
// differ between units, but any key present in several records must have an
// identical trailing shape in all of them.
type Record map[string]tensor.Tensor

// SelectedRows returns the number of selected mesh nodes, defined by the
// "inds" key. Keys whose first axis has this length are row-aligned with
// the storm provenance column.
func (r Record) SelectedRows() int {
	return r[KeyInds].Rows()
}
