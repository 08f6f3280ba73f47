package driving

import (
	"context"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// AuditQuery reads the audit trail.
type AuditQuery interface {
	// List returns matching records, newest first.
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error)

	// Stats aggregates matching records.
	Stats(ctx context.Context, filter domain.AuditFilter) (domain.AuditStats, error)
}
