package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driving"
)

// Ensure AuditService implements the interface.
var _ driving.AuditQuery = (*AuditService)(nil)

// AuditService reads the audit trail.
type AuditService struct {
	store driven.AuditStore
}

// NewAuditService creates a new audit service.
func NewAuditService(store driven.AuditStore) *AuditService {
	return &AuditService{store: store}
}

// List returns matching records, newest first. The limit defaults to 100
// and is capped at 1000.
func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	return records, nil
}

// Stats aggregates matching records.
func (s *AuditService) Stats(ctx context.Context, filter domain.AuditFilter) (domain.AuditStats, error) {
	if err := validateFilter(filter); err != nil {
		return domain.AuditStats{}, err
	}
	stats, err := s.store.Stats(ctx, filter)
	if err != nil {
		return domain.AuditStats{}, fmt.Errorf("audit stats: %w", err)
	}
	return stats, nil
}

func validateFilter(filter domain.AuditFilter) error {
	if filter.MinRisk != nil && !filter.MinRisk.IsValid() {
		return fmt.Errorf("%w: risk level %d", domain.ErrInvalidInput, int(*filter.MinRisk))
	}
	if filter.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", domain.ErrInvalidInput, filter.Limit)
	}
	return nil
}
