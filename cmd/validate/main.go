// Command validate performs integrity checks on a built dataset file:
// required keys, row alignment against the storm provenance column,
// contiguity of per-storm row blocks, and run metadata presence.
//
// Usage:
//
//	go run ./cmd/validate -dataset data/datasets/gulf-v2.hdf5
package main

import (
	"flag"
	"fmt"
	"os"

	hdf5go "github.com/robert-malhotra/go-hdf5/hdf5"
)

// Keys every dataset must carry. Row-aligned keys share the storm column's
// length; landfall_location has one row per contributing storm.
var (
	rowAlignedKeys = []string{
		"storm", "inds", "x", "y", "depth", "landfall_dist", "maxele",
		"min_pressure", "max_pressure", "mean_pressure",
		"min_magnitude", "max_magnitude", "mean_magnitude",
	}
	requiredAttrs = []string{
		"run_id", "created_at", "hours_before", "hours_after",
		"cutoff_coastal_dist", "max_depth", "min_depth", "r", "downsample_factor",
	}
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataset := flag.String("dataset", "", "path to a built dataset .hdf5 file")
	flag.Parse()

	if *dataset == "" {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(*dataset))
}

func run(path string) int {
	f, err := hdf5go.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open dataset: %v\n", err)
		return 1
	}
	defer f.Close()

	fmt.Printf("=== Dataset Integrity Validation: %s ===\n\n", path)

	phases := []*phase{
		validateStructure(f),
		validateAlignment(f),
		validateProvenance(f),
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-40s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateStructure checks the required keys and run metadata.
func validateStructure(f *hdf5go.File) *phase {
	p := &phase{name: "Phase 1: Structure (keys and metadata)"}

	for _, key := range rowAlignedKeys {
		if _, err := f.OpenDataset(key); err != nil {
			p.errorf("missing key %q", key)
		}
	}
	if _, err := f.OpenDataset("landfall_location"); err != nil {
		p.errorf("missing key %q", "landfall_location")
	}
	if _, err := f.OpenDataset("storm_names"); err != nil {
		p.errorf("missing storm_names dataset")
		return p
	}

	for _, attr := range requiredAttrs {
		if _, err := f.ReadAttr("/storm_names@" + attr); err != nil {
			p.errorf("missing attribute %q on storm_names", attr)
		}
	}
	return p
}

// validateAlignment checks that every row-aligned key has exactly one row
// per entry of the storm column.
func validateAlignment(f *hdf5go.File) *phase {
	p := &phase{name: "Phase 2: Row Alignment"}

	storm, err := f.OpenDataset("storm")
	if err != nil {
		p.errorf("storm column unreadable: %v", err)
		return p
	}
	rows := int(storm.Dims()[0])

	for _, key := range rowAlignedKeys {
		ds, err := f.OpenDataset(key)
		if err != nil {
			continue // reported by phase 1
		}
		if got := int(ds.Dims()[0]); got != rows {
			p.errorf("key %q has %d rows, storm column has %d", key, got, rows)
		}
	}
	return p
}

// validateProvenance checks the storm column itself: ids within range,
// each storm's rows contiguous, and one landfall location per storm.
func validateProvenance(f *hdf5go.File) *phase {
	p := &phase{name: "Phase 3: Provenance (storm column)"}

	stormDS, err := f.OpenDataset("storm")
	if err != nil {
		p.errorf("storm column unreadable: %v", err)
		return p
	}
	storm, err := stormDS.ReadInt64()
	if err != nil {
		p.errorf("storm column not int64: %v", err)
		return p
	}

	namesDS, err := f.OpenDataset("storm_names")
	if err != nil {
		p.errorf("storm_names unreadable: %v", err)
		return p
	}
	names, err := namesDS.ReadString()
	if err != nil {
		p.errorf("storm_names not strings: %v", err)
		return p
	}

	seen := map[int64]bool{}
	var prev int64 = -1
	for i, id := range storm {
		if id < 0 || int(id) >= len(names) {
			p.errorf("row %d: storm id %d out of range [0, %d)", i, id, len(names))
			continue
		}
		if id != prev {
			if seen[id] {
				p.errorf("storm id %d appears in non-contiguous row blocks", id)
			}
			seen[id] = true
			prev = id
		}
	}

	if loc, err := f.OpenDataset("landfall_location"); err == nil {
		dims := loc.Dims()
		if len(dims) != 2 || int(dims[1]) != 2 {
			p.errorf("landfall_location has dims %v, want (storms, 2)", dims)
		} else if int(dims[0]) != len(seen) {
			p.errorf("landfall_location has %d rows, %d storms contributed", dims[0], len(seen))
		}
	}

	if len(storm) > 0 && len(seen) == 0 {
		p.errorf("no valid storm ids found")
	}
	return p
}
