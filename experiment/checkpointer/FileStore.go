package checkpointer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore stores each checkpoint as a file in a directory. Files are
// only open while a checkpoint is being saved or loaded.
type FileStore struct {
	dir       string
	extension string
}

// NewFileStore returns a FileStore which saves checkpoints in dir,
// creating dir if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newFileStore: %w", err)
	}
	return &FileStore{dir: dir, extension: ".bin"}, nil
}

// Path returns the file that the checkpoint name is stored in
func (f *FileStore) Path(name string) string {
	return filepath.Join(f.dir, name+f.extension)
}

// Save implements the Store interface. The checkpoint is first written
// to a temporary file which then replaces any previous checkpoint, so
// that a failed save never leaves a truncated checkpoint behind.
func (f *FileStore) Save(name string, data []byte) error {
	if err := validName(name); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path(name)); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Load implements the Store interface
func (f *FileStore) Load(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	data, err := os.ReadFile(f.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %q: %w", name, ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return data, nil
}
