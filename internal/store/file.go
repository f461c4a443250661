package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"rpicovid/internal/history"
)

// FileStore keeps the history as a JSON document on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) FileStore {
	return FileStore{path: path}
}

func (s FileStore) Path() string {
	return s.path
}

func (s FileStore) Load(ctx context.Context) (*history.History, error) {
	contents, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoState, s.path)
	}
	if err != nil {
		return nil, err
	}

	h := history.New()
	err = json.Unmarshal(contents, h)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if h.ByDate == nil {
		h.ByDate = map[history.Date]int{}
	}
	return h, nil
}

// Save writes the history to a temporary file next to the target and renames
// it over the target, a reader sees either the old or the new document.
func (s FileStore) Save(ctx context.Context, h *history.History) error {
	contents, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
