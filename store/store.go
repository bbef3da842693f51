// Package store reads and writes the snapshot file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fitomusic/artiststats/data"
)

// DefaultPath is where the landing page expects to find the snapshot,
// relative to the site root. It's resolved against the working directory, so
// the fetcher has to run from the site root.
const DefaultPath = "data/stats.json"

// Load reads the snapshot at path. A missing or unreadable file is never an
// error: Load logs it and returns data.Default().
func Load(path string) data.Snapshot {
	bs, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("no snapshot at '%s'; starting from defaults", path)
		return data.Default()
	} else if err != nil {
		log.Printf("warning: couldn't read snapshot at '%s': %s; starting from defaults", path, err)
		return data.Default()
	}

	var snap data.Snapshot
	if err := json.Unmarshal(bs, &snap); err != nil {
		log.Printf("warning: malformed snapshot at '%s': %s; starting from defaults", path, err)
		return data.Default()
	}
	if snap.MonthlyListeners < 0 || snap.Followers < 0 || snap.Releases < 0 {
		log.Printf("warning: snapshot at '%s' has negative counts; starting from defaults", path)
		return data.Default()
	}
	if p := snap.Popularity; p != nil && (*p < 0 || *p > 100) {
		log.Printf("warning: snapshot at '%s' has popularity %d; dropping it", path, *p)
		snap.Popularity = nil
	}

	return snap
}

// Save replaces the snapshot at path, creating its directory if needed. The
// new file is written next to the old one and renamed over it, so a reader
// sees either the old snapshot or the new one.
func Save(path string, snap data.Snapshot) error {
	bs, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}
	bs = append(bs, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file in '%s': %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(bs); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing '%s': %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("error syncing '%s': %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing '%s': %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("error setting mode on '%s': %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error replacing '%s': %w", path, err)
	}

	return nil
}
