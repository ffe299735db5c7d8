package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/MOE-sub001/internal/ir"
)

// FileStore keeps the whole database in memory and persists it as one JSON
// document.
type FileStore struct {
	snapshotStore
	path   string
	logger *slog.Logger
}

// OpenFile loads the document at path. A missing file is an empty store;
// the file is created on the first Write.
func OpenFile(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &FileStore{
		snapshotStore: snapshotStore{location: path},
		path:          path,
		logger:        logger,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("database file does not exist, starting empty", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, &IOError{Location: path, Op: "read", Err: err}
	}

	snap, err := ParseSnapshot(data)
	if err != nil {
		return nil, &ConfigError{Location: path, Err: err}
	}
	s.snap = snap

	logger.Debug("database loaded",
		"path", path,
		"equivalences", len(snap.Equivalences),
		"migrations", len(snap.Migrations))
	return s, nil
}

// ParseSnapshot decodes a database document. Facts repeated in the document
// are collapsed.
func ParseSnapshot(data []byte) (ir.Snapshot, error) {
	var snap ir.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ir.Snapshot{}, err
	}
	return snap, nil
}

// Write replaces the file with the current contents. The document is written
// to a temporary file in the same directory and renamed into place.
func (s *FileStore) Write(ctx context.Context) error {
	data, err := s.snap.MarshalCanonical()
	if err != nil {
		return &IOError{Location: s.path, Op: "write", Err: err}
	}
	data = append(data, '\n')

	if err := writeFileAtomic(s.path, data); err != nil {
		return &IOError{Location: s.path, Op: "write", Err: err}
	}

	s.logger.InfoContext(ctx, "database written",
		"path", s.path,
		"equivalences", len(s.snap.Equivalences),
		"migrations", len(s.snap.Migrations))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".db-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // No-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
