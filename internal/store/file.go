package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/carevault/medreports/internal/model"
)

// FileStore keeps the slot in a single JSON file on local disk, the default
// backend for a single-user deployment.
type FileStore struct {
	path string
}

// NewFileStore constructs a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the slot file. A missing file means no collection was ever saved.
func (s *FileStore) Load(ctx context.Context) (model.Collection, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Collection{}, nil
		}
		return nil, fmt.Errorf("read slot file: %w", err)
	}
	return decode(data), nil
}

// Save overwrites the slot file with the serialized collection.
func (s *FileStore) Save(ctx context.Context, col model.Collection) error {
	data, err := encode(col)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create slot dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o640); err != nil {
		return fmt.Errorf("write slot file: %w", err)
	}
	return nil
}
