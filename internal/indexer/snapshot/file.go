package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/index"
)

// WriteFile atomically replaces path with the snapshot of idx. It writes to a
// .tmp file first, syncs it, and renames on success.
func WriteFile(path string, idx *index.InvertedIndex) error {
	if idx.Len() == 0 {
		return fmt.Errorf("cannot write empty index snapshot")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	if err := Encode(f, idx); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming snapshot file: %w", err)
	}
	return nil
}

// ReadFile loads the snapshot stored at path.
func ReadFile(path string) (*index.InvertedIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()
	idx, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return idx, nil
}
