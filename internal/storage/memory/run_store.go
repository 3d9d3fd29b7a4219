// Package memory provides in-memory storage implementations, used by tests
// and single-shot runs that do not need persistence.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/storage"
)

// ScenarioRunStore is an in-memory implementation of storage.ScenarioRunStore.
type ScenarioRunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.ScenarioRun
}

var _ storage.ScenarioRunStore = (*ScenarioRunStore)(nil)

// NewScenarioRunStore creates an empty in-memory run store.
func NewScenarioRunStore() *ScenarioRunStore {
	return &ScenarioRunStore{
		runs: make(map[string]*domain.ScenarioRun),
	}
}

func (s *ScenarioRunStore) Insert(ctx context.Context, run *domain.ScenarioRun) error {
	if run == nil || run.RunID == "" {
		return fmt.Errorf("%w: missing run_id", storage.ErrInvalidInput)
	}
	if run.ScenarioID == "" {
		return fmt.Errorf("%w: missing scenario_id", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; exists {
		return fmt.Errorf("%w: run_id %s", storage.ErrDuplicateKey, run.RunID)
	}

	stored := *run
	s.runs[run.RunID] = &stored
	return nil
}

func (s *ScenarioRunStore) GetByID(ctx context.Context, runID string) (*domain.ScenarioRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: run_id %s", storage.ErrNotFound, runID)
	}

	found := *run
	return &found, nil
}

func (s *ScenarioRunStore) GetByScenario(ctx context.Context, scenarioID string) ([]*domain.ScenarioRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScenarioRun
	for _, run := range s.runs {
		if run.ScenarioID == scenarioID {
			found := *run
			result = append(result, &found)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt < result[j].StartedAt
	})
	return result, nil
}

func (s *ScenarioRunStore) GetRecent(ctx context.Context, limit int) ([]*domain.ScenarioRun, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ScenarioRun, 0, len(s.runs))
	for _, run := range s.runs {
		found := *run
		result = append(result, &found)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt > result[j].StartedAt
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
