package driven

import (
	"context"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// AuditSink receives one record per processed request.
type AuditSink interface {
	// Record appends a record. Records are never updated or deleted.
	Record(ctx context.Context, record domain.AuditRecord) error
}

// AuditStore is an AuditSink that can be queried.
type AuditStore interface {
	AuditSink

	// List returns records matching filter, newest first, at most filter.Limit.
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error)

	// Stats aggregates records matching filter. The limit is ignored.
	Stats(ctx context.Context, filter domain.AuditFilter) (domain.AuditStats, error)

	// Close releases resources.
	Close() error
}
