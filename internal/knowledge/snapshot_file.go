package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReadSnapshotFile decodes a JSON snapshot from disk.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("knowledge: decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}

// WriteSnapshotFile writes a snapshot as indented JSON, atomically via a
// temp file in the same directory.
func WriteSnapshotFile(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("knowledge: encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("knowledge: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("knowledge: write snapshot: %w", err)
	}
	return nil
}
