package casefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// StaticSource serves snapshots held in memory, typically read from files
type StaticSource struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]*Snapshot
}

// NewStaticSource creates a source over the given snapshots
func NewStaticSource(snapshots ...*Snapshot) *StaticSource {
	s := &StaticSource{snapshots: make(map[uuid.UUID]*Snapshot, len(snapshots))}
	for _, snap := range snapshots {
		s.Put(snap)
	}
	return s
}

// Put adds or replaces a snapshot
func (s *StaticSource) Put(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.Case.ID] = snap
}

// LoadSnapshot implements SnapshotSource
func (s *StaticSource) LoadSnapshot(_ context.Context, caseID uuid.UUID) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[caseID]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return snap, nil
}

// ReadSnapshotFile decodes a JSON snapshot
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, path, err)
	}
	if snap.Case.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: %s: case id is required", ErrInvalidSnapshot, path)
	}
	return &snap, nil
}
