package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const datasetFileName = "vehicles.json"

// FileBackend stores the dataset artifact as a single JSON file. Writes go to
// a temp file in the same directory followed by a rename, so readers only ever
// see a complete artifact.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the data directory if needed and returns a backend
// rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

// Path returns the location of the dataset artifact, for the file watcher.
func (b *FileBackend) Path() string {
	return filepath.Join(b.dir, datasetFileName)
}

func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	return data, nil
}

func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	tmp, err := os.CreateTemp(b.dir, datasetFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dataset file: %w", err)
	}
	tmpName := tmp.Name()

	// Any failure past this point must not leave the temp file behind.
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp dataset file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp dataset file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp dataset file: %w", err)
	}

	if err := os.Rename(tmpName, b.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace dataset file: %w", err)
	}
	return nil
}
