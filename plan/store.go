package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// DefaultStorePath is where the snapshot is kept when the config names none.
const DefaultStorePath = "plannotate.json"

// FileStore keeps the snapshot as indented JSON on disk.
type FileStore struct {
	Path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultStorePath
	}
	return &FileStore{Path: path}
}

// Load reads the snapshot. A missing file is not an error.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &snap, nil
}

// Save writes the snapshot through a temp file so a crash never leaves a
// truncated file behind.
func (s *FileStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// MultiStore loads from the first store that has a snapshot and saves to
// all of them. The first store is the primary: its save failure fails the
// whole save, later stores only log.
type MultiStore []Store

func (m MultiStore) Load(ctx context.Context) (*Snapshot, error) {
	for _, s := range m {
		snap, err := s.Load(ctx)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			return snap, nil
		}
	}
	return nil, nil
}

func (m MultiStore) Save(ctx context.Context, snap Snapshot) error {
	if len(m) == 0 {
		return errors.New("no snapshot store configured")
	}
	if err := m[0].Save(ctx, snap); err != nil {
		return err
	}
	for _, s := range m[1:] {
		if err := s.Save(ctx, snap); err != nil {
			log.Printf("[plan] warning: secondary snapshot store failed: %v", err)
		}
	}
	return nil
}
