// Package state persists scan progress so an interrupted scan can be
// resumed without re-doing or silently skipping work.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Version is the checkpoint format version. Files with any other version
// fail closed as corrupt rather than being misinterpreted.
const Version = 1

// ErrNotFound is returned by Load when no checkpoint file exists.
var ErrNotFound = errors.New("checkpoint not found")

// ErrCorruptState marks an unreadable or malformed checkpoint file.
var ErrCorruptState = errors.New("corrupt checkpoint")

// ErrConfigMismatch is returned when a checkpoint's configuration
// fingerprint disagrees with the current run. Resuming with blended
// settings is refused rather than silently proceeding.
var ErrConfigMismatch = errors.New("checkpoint configuration mismatch")

// Checkpoint is the persisted progress record.
type Checkpoint struct {
	Version     int       `json:"version"`
	SessionID   string    `json:"session_id"`
	Fingerprint string    `json:"fingerprint"`
	Offset      int64     `json:"offset"`
	Processed   int64     `json:"processed"`
	Accepted    int64     `json:"accepted"`
	Failed      int64     `json:"failed"`
	SavedAt     time.Time `json:"saved_at"`
}

// Load reads a checkpoint from disk.
func Load(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCorruptState, path, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrCorruptState, path, err)
	}
	if cp.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d in %s", ErrCorruptState, cp.Version, path)
	}
	if cp.Offset < 0 || cp.Fingerprint == "" {
		return nil, fmt.Errorf("%w: invalid fields in %s", ErrCorruptState, path)
	}
	return &cp, nil
}

// Save writes the checkpoint atomically via a temp file and rename, so a
// crash mid-write never leaves a truncated state file behind.
func Save(path string, cp *Checkpoint) error {
	cp.Version = Version
	cp.SavedAt = time.Now().UTC()

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("serializing checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dirblast-state-*")
	if err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

// Verify confirms the checkpoint belongs to the given configuration.
func (cp *Checkpoint) Verify(fingerprint string) error {
	if cp.Fingerprint != fingerprint {
		return fmt.Errorf("%w: checkpoint was taken with different settings (run with a fresh state file or restore the original configuration)", ErrConfigMismatch)
	}
	return nil
}
