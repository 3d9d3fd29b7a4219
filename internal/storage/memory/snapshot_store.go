package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/storage"
)

// StepSnapshotStore is an in-memory implementation of storage.StepSnapshotStore.
type StepSnapshotStore struct {
	mu        sync.RWMutex
	snapshots []*domain.StepSnapshot
}

var _ storage.StepSnapshotStore = (*StepSnapshotStore)(nil)

// NewStepSnapshotStore creates an empty in-memory snapshot store.
func NewStepSnapshotStore() *StepSnapshotStore {
	return &StepSnapshotStore{}
}

func (s *StepSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.StepSnapshot) error {
	for _, snap := range snapshots {
		if snap == nil || snap.RunID == "" {
			return fmt.Errorf("%w: missing run_id", storage.ErrInvalidInput)
		}
		if snap.Label == "" {
			return fmt.Errorf("%w: missing step label", storage.ErrInvalidInput)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		stored := *snap
		s.snapshots = append(s.snapshots, &stored)
	}
	return nil
}

func (s *StepSnapshotStore) GetByRunID(ctx context.Context, runID string) ([]*domain.StepSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StepSnapshot
	for _, snap := range s.snapshots {
		if snap.RunID == runID {
			found := *snap
			result = append(result, &found)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Step < result[j].Step
	})
	return result, nil
}
