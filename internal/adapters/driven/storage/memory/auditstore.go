package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
)

// Ensure AuditStore implements the interface.
var _ driven.AuditStore = (*AuditStore)(nil)

// AuditStore keeps audit records in memory, in insertion order.
type AuditStore struct {
	mu      sync.RWMutex
	records []domain.AuditRecord
	ids     map[string]struct{}
}

// NewAuditStore creates an empty audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{ids: make(map[string]struct{})}
}

// Record appends a record. Record IDs must be unique.
func (s *AuditStore) Record(ctx context.Context, r domain.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuditFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[r.ID]; dup {
		return fmt.Errorf("%w: duplicate record id %s", domain.ErrAuditFailed, r.ID)
	}
	r.ViolationTypes = append([]string(nil), r.ViolationTypes...)
	s.records = append(s.records, r)
	s.ids[r.ID] = struct{}{}
	return nil
}

// List returns records matching filter, newest first.
func (s *AuditStore) List(_ context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	matched := make([]domain.AuditRecord, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		if filter.Matches(s.records[i]) {
			matched = append(matched, s.records[i])
		}
	}
	s.mu.RUnlock()

	// Newest first; records appended later win ties.
	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].Timestamp.After(matched[b].Timestamp)
	})
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Stats aggregates records matching filter.
func (s *AuditStore) Stats(_ context.Context, filter domain.AuditFilter) (domain.AuditStats, error) {
	stats := domain.NewAuditStats()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if filter.Matches(r) {
			stats.Add(r)
		}
	}
	return stats, nil
}

// Len returns the number of stored records.
func (s *AuditStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op.
func (s *AuditStore) Close() error {
	return nil
}
