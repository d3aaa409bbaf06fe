package file

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/repository"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const defaultFileMode os.FileMode = 0o644

// fileDatasetStore implements repository.DatasetStore on a single JSON file.
type fileDatasetStore struct {
	path string
}

// NewFileDatasetStore creates a dataset store backed by the file at path.
func NewFileDatasetStore(path string) repository.DatasetStore {
	return &fileDatasetStore{path: path}
}

func (s *fileDatasetStore) Location() string {
	return s.path
}

// Load reads and parses the whole file.
func (s *fileDatasetStore) Load(ctx context.Context) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Decode(data, s.path)
}

// Save replaces the file with the encoded dataset. The new content is written
// to a temporary file in the same directory and renamed over the old one, so
// readers see either the previous file or the complete new one. The directory
// is synced after the rename.
func (s *fileDatasetStore) Save(ctx context.Context, ds *domain.Dataset) error {
	data, err := Encode(ds)
	if err != nil {
		return &repository.WriteError{Path: s.path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &repository.WriteError{Path: s.path, Err: err}
	}
	if err := writeAtomic(s.path, data); err != nil {
		return &repository.WriteError{Path: s.path, Err: err}
	}
	return nil
}

func writeAtomic(path string, data []byte) (err error) {
	mode := defaultFileMode
	if st, statErr := os.Stat(path); statErr == nil {
		if m := st.Mode().Perm(); m != 0 {
			mode = m
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, mode); err != nil {
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		return err
	}
	if err := syncDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("sync directory after rename: %w", err)
	}
	return nil
}

// syncDir flushes the directory entry so the rename survives a crash.
var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
