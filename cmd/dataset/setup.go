package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Best-track columns kept for each storm, in output order.
var trackColumns = []string{
	"Central Pressure", "Forward Speed", "Heading", "Holland B1",
	"Radius Max Winds", "Radius Pressure 1", "Storm Latitude", "Storm Longitude",
}

// runSetup prepares the local data directory: folder structure, symlinks to
// the published simulation output, and per-storm best-track files split out
// of the project-wide CSV. Run once before building datasets.
func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	projectDir := fs.String("project-dir", os.ExpandEnv("$HOME/NHERI-Published/PRJ-2968"),
		"published simulation archive")
	dataDir := fs.String("data-dir", "data", "local data directory to create")
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, dir := range []string{*dataDir, filepath.Join(*dataDir, "storms"),
		filepath.Join(*dataDir, "datasets"), filepath.Join(*dataDir, "models")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	if err := linkStormOutput(filepath.Join(*projectDir, "storms"), filepath.Join(*dataDir, "storms")); err != nil {
		return err
	}
	return splitBestTracks(filepath.Join(*projectDir, "best_tracks.csv"), filepath.Join(*dataDir, "storms"))
}

// linkStormOutput mirrors every s* storm directory of the archive into the
// local storms directory, symlinking the NetCDF output instead of copying.
func linkStormOutput(srcDir, dstDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("read archive storms dir: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "s") {
			continue
		}
		stormDst := filepath.Join(dstDir, e.Name())
		if err := os.MkdirAll(stormDst, 0o755); err != nil {
			return err
		}

		ncFiles, err := filepath.Glob(filepath.Join(srcDir, e.Name(), "*.nc"))
		if err != nil {
			return err
		}
		for _, src := range ncFiles {
			dst := filepath.Join(stormDst, filepath.Base(src))
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				return err
			}
			if err := os.Symlink(src, dst); err != nil {
				return fmt.Errorf("link %s: %w", src, err)
			}
		}
	}
	return nil
}

// splitBestTracks splits the project-wide best-track CSV into one file per
// storm directory. The source file carries two unit rows below the header,
// which are dropped, and a "Storm ID" column selecting the target storm.
func splitBestTracks(path, stormsDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open best tracks: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("parse best tracks: %w", err)
	}
	if len(rows) < 4 {
		return fmt.Errorf("best tracks %s has no data rows", path)
	}

	header := rows[0]
	idCol := -1
	cols := make([]int, len(trackColumns))
	for i := range cols {
		cols[i] = -1
	}
	for i, name := range header {
		if name == "Storm ID" {
			idCol = i
		}
		for j, want := range trackColumns {
			if name == want {
				cols[j] = i
			}
		}
	}
	if idCol < 0 {
		return fmt.Errorf("best tracks %s missing Storm ID column", path)
	}
	for j, i := range cols {
		if i < 0 {
			return fmt.Errorf("best tracks %s missing column %q", path, trackColumns[j])
		}
	}

	byStorm := make(map[int][][]string)
	for _, row := range rows[3:] { // skip header and the two unit rows
		id, err := strconv.ParseFloat(row[idCol], 64)
		if err != nil {
			return fmt.Errorf("best tracks %s: bad storm id %q", path, row[idCol])
		}
		out := make([]string, len(cols))
		for j, i := range cols {
			out[j] = row[i]
		}
		byStorm[int(id)] = append(byStorm[int(id)], out)
	}

	for id, tracks := range byStorm {
		dst := filepath.Join(stormsDir, fmt.Sprintf("s%03d", id), "best_track.csv")
		if err := writeTrackCSV(dst, tracks); err != nil {
			return err
		}
	}
	return nil
}

func writeTrackCSV(path string, tracks [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(trackColumns); err != nil {
		return err
	}
	if err := w.WriteAll(tracks); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
