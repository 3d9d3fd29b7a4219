package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/storage"
)

// ViolationStore is an in-memory implementation of storage.ViolationStore.
type ViolationStore struct {
	mu         sync.RWMutex
	violations []*domain.ViolationRecord
}

var _ storage.ViolationStore = (*ViolationStore)(nil)

// NewViolationStore creates an empty in-memory violation store.
func NewViolationStore() *ViolationStore {
	return &ViolationStore{}
}

func (s *ViolationStore) Insert(ctx context.Context, v *domain.ViolationRecord) error {
	if err := validateViolation(v); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *v
	s.violations = append(s.violations, &stored)
	return nil
}

func (s *ViolationStore) InsertBulk(ctx context.Context, violations []*domain.ViolationRecord) error {
	for _, v := range violations {
		if err := validateViolation(v); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range violations {
		stored := *v
		s.violations = append(s.violations, &stored)
	}
	return nil
}

func (s *ViolationStore) GetByRunID(ctx context.Context, runID string) ([]*domain.ViolationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ViolationRecord
	for _, v := range s.violations {
		if v.RunID == runID {
			found := *v
			result = append(result, &found)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Step < result[j].Step
	})
	return result, nil
}

func validateViolation(v *domain.ViolationRecord) error {
	if v == nil || v.RunID == "" {
		return fmt.Errorf("%w: missing run_id", storage.ErrInvalidInput)
	}
	if v.Field == "" {
		return fmt.Errorf("%w: missing field", storage.ErrInvalidInput)
	}
	return nil
}
