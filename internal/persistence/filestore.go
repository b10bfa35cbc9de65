package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists snapshots as a single JSON document on disk. Writes are
// atomic: a temp file in the target directory is renamed over the previous
// state so a crash mid-write never leaves a truncated file.
type FileStore struct {
	path     string
	todayKey func() string
}

// NewFileStore returns a file-backed store. todayKey supplies the date key
// under which a legacy flat board is filed during migration.
func NewFileStore(path string, todayKey func() string) *FileStore {
	return &FileStore{path: path, todayKey: todayKey}
}

// rawState is the on-disk superset used to detect the legacy format: the old
// shape has a "board" key and no "schedules" key.
type rawState struct {
	Schedules    map[string]map[string]Entry `json:"schedules"`
	Board        map[string]LegacyEntry      `json:"board"`
	BoardMessage BoardMessageRef             `json:"board_message"`
}

// Load reads the snapshot from disk. A missing file yields an empty snapshot.
// A legacy-format file is migrated, persisted in the new shape (dropping the
// old key), and the migrated snapshot returned.
func (f *FileStore) Load(ctx context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{Schedules: map[string]map[string]Entry{}}, nil
		}
		return Snapshot{}, fmt.Errorf("read state file %s: %w", f.path, err)
	}

	var raw rawState
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCorruptState, f.path, err)
	}

	if raw.Board != nil && raw.Schedules == nil {
		snap := MigrateLegacy(raw.Board, raw.BoardMessage, f.todayKey())
		if err := f.Save(ctx, snap); err != nil {
			return Snapshot{}, fmt.Errorf("persist migrated state: %w", err)
		}
		return snap, nil
	}

	if raw.Schedules == nil {
		raw.Schedules = map[string]map[string]Entry{}
	}
	return Snapshot{Schedules: raw.Schedules, BoardMessage: raw.BoardMessage}, nil
}

// Save writes the snapshot atomically with 0600 permissions.
func (f *FileStore) Save(ctx context.Context, snap Snapshot) error {
	if snap.Schedules == nil {
		snap.Schedules = map[string]map[string]Entry{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".presence-state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Close implements Store; a file store holds no open resources.
func (f *FileStore) Close() error { return nil }
